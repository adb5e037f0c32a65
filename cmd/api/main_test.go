package main

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/auro-chat/backend/internal/config"
	"github.com/zhouzirui/auro-chat/backend/internal/handler"
	"github.com/zhouzirui/auro-chat/backend/internal/sched"
	"github.com/zhouzirui/auro-chat/backend/internal/service/engine"
	"github.com/zhouzirui/auro-chat/backend/internal/storage"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancel")
	}
}

func TestRunServerReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	require.Error(t, runServer(context.Background(), srv))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}

func TestSetupLoggerSetsLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	setupLogger(config.LogConfig{Level: "error", Format: "json"})
	require.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestRunServerShutsDownWithOpenEventStream(t *testing.T) {
	e, err := engine.New(context.Background(), engine.Options{
		Backend:   storage.NewMemoryBackend(),
		Scheduler: sched.NewManual(time.Unix(0, 0)),
	})
	require.NoError(t, err)
	defer func() { _ = e.Close(context.Background()) }()
	e.Start()

	addr := freeAddr(t)
	srv := &http.Server{Addr: addr, Handler: handler.NewRouter(e)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/api/events")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "event: snapshot"), line)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
		require.Less(t, time.Since(start), 5*time.Second)
	case <-time.After(8 * time.Second):
		t.Fatal("runServer blocked on the open event stream")
	}
}
