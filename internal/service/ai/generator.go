// Package ai generates the assistant's replies from a fixed local table.
package ai

import (
	"strings"
	"time"
	"unicode/utf8"
)

// cannedResponses is the fixed table replies are drawn from.
var cannedResponses = []string{
	"That's a great question! Let me explain...",
	"I understand your point. However, consider this perspective...",
	"Based on the latest research in this field...",
	"Let me break this down into simpler concepts...",
	"Here's a step-by-step approach to solve this problem...",
	"This is a common misconception. Actually...",
	"Great question! The key concept here is...",
	"Let me provide some examples to illustrate this...",
}

type contextClause struct {
	trigger string
	suffix  string
}

// contextClauses are checked in order; the first trigger found wins.
var contextClauses = []contextClause{
	{trigger: "explain", suffix: " Let me provide a detailed explanation with examples..."},
	{trigger: "difference", suffix: " The key differences are..."},
	{trigger: "how to", suffix: " Here's a step-by-step guide:"},
}

// Rand is the randomness the generator needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Reply is a generated answer and how long the assistant "thinks" before it.
type Reply struct {
	Text  string
	Think time.Duration
}

// Generate picks a canned response uniformly and appends the context clause
// matching content, if any.
func Generate(content string, rnd Rand, unit time.Duration) Reply {
	text := cannedResponses[rnd.IntN(len(cannedResponses))]
	return Reply{
		Text:  text + ContextClause(content),
		Think: ThinkDuration(content, unit),
	}
}

// ContextClause returns the suffix for the first trigger contained in the
// lowercased content, or "".
func ContextClause(content string) string {
	normalized := strings.ToLower(content)
	for _, clause := range contextClauses {
		if strings.Contains(normalized, clause.trigger) {
			return clause.suffix
		}
	}
	return ""
}

// ThinkDuration is max(1.5, runes*0.03) time units.
func ThinkDuration(content string, unit time.Duration) time.Duration {
	floor := unit * 3 / 2
	think := unit * 3 / 100 * time.Duration(utf8.RuneCountInString(content))
	if think < floor {
		return floor
	}
	return think
}

// Responses returns a copy of the canned response table.
func Responses() []string {
	return append([]string(nil), cannedResponses...)
}
