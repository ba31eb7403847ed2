package auth

import (
	"errors"
	"time"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrSessionExpired  = errors.New("session expired")
)

// Principal is the authenticated caller of a service operation
type Principal struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// CurrentUser returns the caller's normalized email if the session is still valid at now
func (p *Principal) CurrentUser(now time.Time) (string, error) {
	if p == nil || p.Email == "" {
		return "", ErrUnauthenticated
	}
	if !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt) {
		return "", ErrSessionExpired
	}
	return domain.NormalizeEmail(p.Email), nil
}
