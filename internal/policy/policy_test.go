// ABOUTME: Tests for policy lookups and their fallback branch.
// ABOUTME: Provider failures must produce defaults, not errors.

package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingProvider struct {
	err error
}

func (p *failingProvider) GenerationEnabled(context.Context, string) (bool, error) {
	return false, p.err
}

func (p *failingProvider) AutoSendEnabled(context.Context, string) (bool, error) {
	return false, p.err
}

func TestService_StaticLookups(t *testing.T) {
	provider := &StaticProvider{
		Generation: map[string]bool{"slack": true, "web": false},
		AutoSend:   map[string]bool{"slack": false},
	}
	svc := NewService(provider, Defaults{Generation: true, AutoSend: true}, nil)

	lookup := svc.IsGenerationEnabled(context.Background(), "slack")
	assert.True(t, lookup.Enabled)
	assert.False(t, lookup.Fallback)

	lookup = svc.IsGenerationEnabled(context.Background(), "web")
	assert.False(t, lookup.Enabled)
	assert.False(t, lookup.Fallback)

	lookup = svc.IsAutoSendEnabled(context.Background(), "slack")
	assert.False(t, lookup.Enabled)
	assert.False(t, lookup.Fallback)
}

func TestService_UnknownChannelFallsBackToDefault(t *testing.T) {
	svc := NewService(&StaticProvider{}, Defaults{Generation: true, AutoSend: false}, nil)

	lookup := svc.IsGenerationEnabled(context.Background(), "mystery")
	assert.True(t, lookup.Enabled)
	assert.True(t, lookup.Fallback)
	assert.NotEmpty(t, lookup.Reason)

	lookup = svc.IsAutoSendEnabled(context.Background(), "mystery")
	assert.False(t, lookup.Enabled)
	assert.True(t, lookup.Fallback)
}

func TestService_ProviderFailureFallsBack(t *testing.T) {
	provider := &failingProvider{err: errors.New("policy service unreachable")}
	svc := NewService(provider, Defaults{Generation: false, AutoSend: true}, nil)

	lookup := svc.IsGenerationEnabled(context.Background(), "slack")
	assert.False(t, lookup.Enabled)
	assert.True(t, lookup.Fallback)
	assert.Contains(t, lookup.Reason, "unreachable")

	lookup = svc.IsAutoSendEnabled(context.Background(), "slack")
	assert.True(t, lookup.Enabled)
	assert.True(t, lookup.Fallback)
}
