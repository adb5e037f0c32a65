package presence

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
)

// scriptedRand replays fixed draws.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) IntN(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

const period = 5 * time.Second

func statuses(users []chat.User) []chat.Presence {
	out := make([]chat.Presence, len(users))
	for i, u := range users {
		out[i] = u.Status
	}
	return out
}

func TestNextAlwaysChangesState(t *testing.T) {
	require.Equal(t, chat.PresenceTyping, Next(chat.PresenceOnline, &scriptedRand{floats: []float64{0.71}}))
	require.Equal(t, chat.PresenceOffline, Next(chat.PresenceOnline, &scriptedRand{floats: []float64{0.7}}))
	require.Equal(t, chat.PresenceOffline, Next(chat.PresenceOnline, &scriptedRand{floats: []float64{0.1}}))
	require.Equal(t, chat.PresenceOnline, Next(chat.PresenceOffline, nil))
	require.Equal(t, chat.PresenceOnline, Next(chat.PresenceTyping, nil))
}

func TestTickTransitionsOnePeer(t *testing.T) {
	clock := sched.NewManual(time.Unix(0, 0))
	rnd := &scriptedRand{ints: []int{0, 1, 0, 0}, floats: []float64{0.9}}
	sim := NewSimulator(chat.SeedRoster(), clock, rnd, period)
	sim.Start()

	// john-doe online -> typing
	clock.Advance(period)
	require.Equal(t, []chat.Presence{chat.PresenceOnline, chat.PresenceOnline, chat.PresenceTyping, chat.PresenceOffline}, statuses(sim.Roster()))

	// jane-smith offline -> online
	clock.Advance(period)
	require.Equal(t, []chat.Presence{chat.PresenceOnline, chat.PresenceOnline, chat.PresenceTyping, chat.PresenceOnline}, statuses(sim.Roster()))

	// john-doe typing -> online
	clock.Advance(period)
	require.Equal(t, chat.PresenceOnline, sim.Roster()[2].Status)

	sim.Stop()
}

func TestNothingHappensBeforePeriod(t *testing.T) {
	clock := sched.NewManual(time.Unix(0, 0))
	sim := NewSimulator(chat.SeedRoster(), clock, rand.New(rand.NewPCG(1, 1)), period)
	sim.Start()
	defer sim.Stop()

	clock.Advance(period - time.Millisecond)
	require.Equal(t, chat.SeedRoster(), sim.Roster())
}

func TestFixedEntriesNeverChange(t *testing.T) {
	clock := sched.NewManual(time.Unix(0, 0))
	sim := NewSimulator(chat.SeedRoster(), clock, rand.New(rand.NewPCG(3, 4)), period)

	changes := 0
	unsubscribe := sim.Subscribe(func(users []chat.User) {
		changes++
		require.Len(t, users, 4)
	})
	defer unsubscribe()

	sim.Start()
	before := sim.Roster()
	for i := 0; i < 200; i++ {
		clock.Advance(period)
		after := sim.Roster()
		require.Equal(t, before[:2], after[:2])

		diff := 0
		for j := range after {
			if after[j].Status != before[j].Status {
				diff++
			}
		}
		require.Equal(t, 1, diff)
		before = after
	}
	require.Equal(t, 200, changes)
	sim.Stop()
}

func TestStopCancelsTimer(t *testing.T) {
	clock := sched.NewManual(time.Unix(0, 0))
	sim := NewSimulator(chat.SeedRoster(), clock, rand.New(rand.NewPCG(5, 6)), period)
	sim.Start()
	sim.Start()
	require.Equal(t, 1, clock.Pending())

	sim.Stop()
	require.False(t, sim.Running())
	require.Equal(t, 0, clock.Pending())

	clock.Advance(10 * period)
	require.Equal(t, chat.SeedRoster(), sim.Roster())
}

func TestRosterReturnsCopy(t *testing.T) {
	sim := NewSimulator(chat.SeedRoster(), sched.NewManual(time.Unix(0, 0)), nil, period)
	roster := sim.Roster()
	roster[2].Status = chat.PresenceTyping
	require.Equal(t, chat.PresenceOnline, sim.Roster()[2].Status)
}

func TestRealTimerStopsWithoutLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := sched.NewLoop()
	sim := NewSimulator(chat.SeedRoster(), sched.NewReal(loop), rand.New(rand.NewPCG(9, 9)), time.Millisecond)

	ticked := make(chan struct{}, 1)
	unsubscribe := sim.Subscribe(func([]chat.User) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	sim.Start()
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("presence never ticked")
	}
	sim.Stop()
	loop.Close()
}
