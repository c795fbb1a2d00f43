// ABOUTME: Authentication pre-hook verifying the bearer token on each inbound event.
// ABOUTME: Runs in the critical band, before anything with side effects.

package hooks

import (
	"context"

	"github.com/2389/answer-gateway/internal/auth"
	"github.com/2389/answer-gateway/internal/event"
)

// MetadataAuthToken is the event metadata key carrying the sender's token.
const MetadataAuthToken = "auth_token"

// AuthHook rejects events whose token is missing, invalid, minted for a
// different user, or not valid for the event's channel.
type AuthHook struct {
	verifier *auth.Verifier
}

// NewAuthHook creates the authentication pre-hook.
func NewAuthHook(verifier *auth.Verifier) *AuthHook {
	return &AuthHook{verifier: verifier}
}

func (h *AuthHook) Name() string  { return "auth" }
func (h *AuthHook) Priority() int { return PriorityCritical }

// Execute implements PreHook.
func (h *AuthHook) Execute(_ context.Context, ev *event.InboundEvent) error {
	token := ev.Metadata[MetadataAuthToken]
	if token == "" {
		return AuthenticationFailed("missing auth token", nil)
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		return AuthenticationFailed("token verification failed", err)
	}
	if claims.UserID != ev.UserID {
		return AuthenticationFailed("token subject does not match sender", nil)
	}
	if !claims.AllowsChannel(ev.ChannelID) {
		return AuthenticationFailed("token not valid for channel", auth.ErrChannelDenied)
	}
	return nil
}
