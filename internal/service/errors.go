package service

import (
	"errors"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = domain.ErrEmailTaken
)
