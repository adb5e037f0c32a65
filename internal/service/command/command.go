// Package command recognizes slash commands typed into the chat input.
package command

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/auro-chat/backend/internal/metrics"
	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
)

// Command describes one entry of the help listing.
type Command struct {
	Trigger     string `json:"trigger"`
	Description string `json:"description"`
}

const (
	Help  = "/help"
	Clear = "/clear"
)

var commands = []Command{
	{Trigger: Help, Description: "Show this help message"},
	{Trigger: Clear, Description: "Clear chat history"},
	{Trigger: "/topic [topic]", Description: "Change discussion topic"},
	{Trigger: "/explain [concept]", Description: "Get detailed explanation"},
	{Trigger: "/quiz [topic]", Description: "Start a quiz on a topic"},
}

// Commands returns the command table in display order.
func Commands() []Command {
	return append([]Command(nil), commands...)
}

// HelpText renders the table as the body of the help message.
func HelpText() string {
	var b strings.Builder
	b.WriteString("**Available Commands:**")
	for _, c := range commands {
		b.WriteString("\n- ")
		b.WriteString(c.Trigger)
		b.WriteString(" - ")
		b.WriteString(c.Description)
	}
	return b.String()
}

// Parse extracts the command name from input. ok is false when input is not
// slash-prefixed.
func Parse(input string) (name string, ok bool) {
	if !strings.HasPrefix(input, "/") {
		return "", false
	}
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// Store is the part of the state store commands mutate.
type Store interface {
	SetMessages(messages []chat.Message)
	AddMessage(m chat.Message)
}

// Interpreter dispatches recognized commands against a Store.
type Interpreter struct {
	store Store
	now   func() time.Time
}

// NewInterpreter binds the interpreter to store; now stamps help messages.
func NewInterpreter(store Store, now func() time.Time) *Interpreter {
	if now == nil {
		now = time.Now
	}
	return &Interpreter{store: store, now: now}
}

// Handle runs input if it is a known command and reports whether it did.
// Unknown commands are left for the caller to treat as plain content.
func (i *Interpreter) Handle(input string) bool {
	name, ok := Parse(input)
	if !ok {
		return false
	}

	switch name {
	case Clear:
		i.store.SetMessages([]chat.Message{})
	case Help:
		i.store.AddMessage(chat.Message{
			ID:        uuid.NewString(),
			Content:   HelpText(),
			Sender:    chat.Assistant(),
			Timestamp: chat.FormatTimestamp(i.now()),
			Status:    chat.StatusRead,
		})
	default:
		return false
	}

	metrics.CommandsHandled.WithLabelValues(name).Inc()
	log.Debug().Str("component", "command").Str("command", name).Msg("command handled")
	return true
}
