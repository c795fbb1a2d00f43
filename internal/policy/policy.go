// ABOUTME: Channel policy lookups for generation and auto-send enablement.
// ABOUTME: Provider failures become typed fallback results, never surfaced errors.

package policy

import (
	"context"
	"errors"
	"log/slog"
)

// ErrChannelUnknown indicates the provider has no policy for the channel.
var ErrChannelUnknown = errors.New("channel has no policy entry")

// Lookup is the result of one policy question. Fallback is true when the
// provider could not answer and Enabled carries the configured default; the
// caller gets a branch to take, not an error to catch.
type Lookup struct {
	Enabled  bool
	Fallback bool
	Reason   string
}

// Provider answers raw policy questions and may fail (remote service down,
// unknown channel).
type Provider interface {
	GenerationEnabled(ctx context.Context, channelID string) (bool, error)
	AutoSendEnabled(ctx context.Context, channelID string) (bool, error)
}

// Defaults are the per-deployment answers used when the provider fails.
type Defaults struct {
	Generation bool
	AutoSend   bool
}

// Service wraps a Provider and converts its failures into Lookup fallbacks.
type Service struct {
	provider Provider
	defaults Defaults
	logger   *slog.Logger
}

// NewService creates a policy service over provider.
func NewService(provider Provider, defaults Defaults, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		defaults: defaults,
		logger:   logger.With("component", "policy"),
	}
}

// IsGenerationEnabled reports whether answer generation is allowed on the channel.
func (s *Service) IsGenerationEnabled(ctx context.Context, channelID string) Lookup {
	enabled, err := s.provider.GenerationEnabled(ctx, channelID)
	if err != nil {
		s.logger.Warn("generation policy lookup failed, using default",
			"channel_id", channelID,
			"default", s.defaults.Generation,
			"error", err,
		)
		return Lookup{Enabled: s.defaults.Generation, Fallback: true, Reason: err.Error()}
	}
	return Lookup{Enabled: enabled}
}

// IsAutoSendEnabled reports whether responses may be auto-sent on the channel.
func (s *Service) IsAutoSendEnabled(ctx context.Context, channelID string) Lookup {
	enabled, err := s.provider.AutoSendEnabled(ctx, channelID)
	if err != nil {
		s.logger.Warn("autosend policy lookup failed, using default",
			"channel_id", channelID,
			"default", s.defaults.AutoSend,
			"error", err,
		)
		return Lookup{Enabled: s.defaults.AutoSend, Fallback: true, Reason: err.Error()}
	}
	return Lookup{Enabled: enabled}
}

// StaticProvider answers from in-memory per-channel tables, typically built
// from the config file. Channels absent from both tables fail the lookup so
// the service's defaults apply.
type StaticProvider struct {
	Generation map[string]bool
	AutoSend   map[string]bool
}

// GenerationEnabled implements Provider.
func (p *StaticProvider) GenerationEnabled(_ context.Context, channelID string) (bool, error) {
	enabled, ok := p.Generation[channelID]
	if !ok {
		return false, ErrChannelUnknown
	}
	return enabled, nil
}

// AutoSendEnabled implements Provider.
func (p *StaticProvider) AutoSendEnabled(_ context.Context, channelID string) (bool, error) {
	enabled, ok := p.AutoSend[channelID]
	if !ok {
		return false, ErrChannelUnknown
	}
	return enabled, nil
}
