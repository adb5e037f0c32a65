package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

// Service produces assistant replies locally. The reply pipeline is an eino
// chain so it has the same shape as a model-backed one: compose text, then wrap
// it as an assistant message.
type Service struct {
	mu    sync.Mutex
	rnd   Rand
	unit  time.Duration
	chain compose.Runnable[string, *schema.Message]
}

// NewService compiles the reply chain.
func NewService(ctx context.Context, rnd Rand, unit time.Duration) (*Service, error) {
	if rnd == nil {
		return nil, fmt.Errorf("ai service: random source is required")
	}
	if unit <= 0 {
		return nil, fmt.Errorf("ai service: time unit must be positive, got %s", unit)
	}

	s := &Service{rnd: rnd, unit: unit}

	chain := compose.NewChain[string, *schema.Message]()
	chain.AppendLambda(compose.InvokableLambda(s.composeReply))
	chain.AppendLambda(compose.InvokableLambda(wrapAssistant))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}
	s.chain = runnable
	return s, nil
}

func (s *Service) composeReply(_ context.Context, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Generate(content, s.rnd, s.unit).Text, nil
}

func wrapAssistant(_ context.Context, text string) (*schema.Message, error) {
	return schema.AssistantMessage(text, nil), nil
}

// GenerateResponse runs the chain for one user message.
func (s *Service) GenerateResponse(ctx context.Context, content string) (*schema.Message, error) {
	msg, err := s.chain.Invoke(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to run reply chain: %w", err)
	}
	log.Debug().Str("component", "ai").Int("length", len(msg.Content)).Msg("generated reply")
	return msg, nil
}

// Respond returns only the reply text.
func (s *Service) Respond(ctx context.Context, content string) (string, error) {
	msg, err := s.GenerateResponse(ctx, content)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// ThinkDuration is the simulated delay before replying to content.
func (s *Service) ThinkDuration(content string) time.Duration {
	return ThinkDuration(content, s.unit)
}
