package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipal_CurrentUser(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid session normalizes email", func(t *testing.T) {
		p := &Principal{Email: " Alice@Example.COM ", ExpiresAt: now.Add(time.Hour)}
		email, err := p.CurrentUser(now)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", email)
	})

	t.Run("expired session", func(t *testing.T) {
		p := &Principal{Email: "a@x.com", ExpiresAt: now}
		_, err := p.CurrentUser(now)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("no expiry set", func(t *testing.T) {
		p := &Principal{Email: "a@x.com"}
		email, err := p.CurrentUser(now)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", email)
	})

	t.Run("nil principal", func(t *testing.T) {
		var p *Principal
		_, err := p.CurrentUser(now)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryRevocationStore()
	s.now = func() time.Time { return now }

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "jti-1", now.Add(time.Minute)))
	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
