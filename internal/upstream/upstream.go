// Package upstream produces assistant replies as lazy fragment streams,
// either from the Dify AI service or from a local canned-answer fallback.
package upstream

import (
	"context"
	"errors"

	"github.com/xiaot623/trainchat/internal/config"
)

// ErrUpstream indicates the provider transport failed, returned a
// non-success status, or sent a response that could not be parsed.
var ErrUpstream = errors.New("upstream AI error")

// Stream is a finite, non-restartable sequence of reply fragments.
// Fragments are non-empty and order-significant: concatenating them in
// yield order reconstructs the full reply. Next returns io.EOF when the
// sequence ends normally. Cancellation is simply ceasing to pull.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Mode identifies which connector implementation serves a request.
type Mode int

const (
	ModeProvider Mode = iota
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeProvider {
		return "provider"
	}
	return "fallback"
}

// Replier opens a fragment stream for one user message.
type Replier interface {
	StreamReply(ctx context.Context, userText, userID string) (Stream, error)
}

// Selector picks the provider-backed connector when the Dify endpoint, key
// and app id are all configured, and the local fallback otherwise. The
// choice is evaluated once per request.
type Selector struct {
	cfg      *config.Config
	provider Replier
	fallback Replier
}

// NewSelector builds a selector over the two connector implementations.
func NewSelector(cfg *config.Config) *Selector {
	return &Selector{
		cfg:      cfg,
		provider: NewDifyClient(cfg.DifyBaseURL, cfg.DifyAPIKey),
		fallback: NewFallback(cfg.FallbackChunkSize, cfg.FallbackDelay),
	}
}

// Mode returns the connector mode active for the current configuration.
func (s *Selector) Mode() Mode {
	if s.cfg.ProviderConfigured() {
		return ModeProvider
	}
	return ModeFallback
}

// StreamReply opens a fragment stream using the active connector.
func (s *Selector) StreamReply(ctx context.Context, userText, userID string) (Stream, error) {
	if s.Mode() == ModeProvider {
		return s.provider.StreamReply(ctx, userText, userID)
	}
	return s.fallback.StreamReply(ctx, userText, userID)
}
