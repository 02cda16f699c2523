// Package store persists user credentials.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmailTaken is returned by Create when the email already has an account.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
)

// User is a registered account.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository stores users keyed by email.
type UserRepository interface {
	// Create inserts u and sets its ID and CreatedAt.
	Create(ctx context.Context, u *User) error

	// FindByEmail returns the user with the given email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	Close() error
}
