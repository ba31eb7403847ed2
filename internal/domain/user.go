package domain

import "time"

// User is a credential held by the built-in identity provider
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
