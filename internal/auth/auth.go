// Package auth registers and verifies users with bcrypt password hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Brownie44l1/osteo-care/internal/store"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password; callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrMissingField is returned when a required field is blank.
	ErrMissingField = errors.New("full name, email and password are required")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)

	// ErrEmailTaken mirrors store.ErrEmailTaken for callers that only import auth.
	ErrEmailTaken = store.ErrEmailTaken
)

// Service handles sign up and log in.
type Service struct {
	users store.UserRepository
	cost  int
}

// NewService creates a Service using bcrypt.DefaultCost.
func NewService(users store.UserRepository) *Service {
	return &Service{users: users, cost: bcrypt.DefaultCost}
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, fullName, email, password string) (*store.User, error) {
	fullName, email = strings.TrimSpace(fullName), strings.TrimSpace(email)
	if fullName == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &store.User{FullName: fullName, Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns the user whose email and password match.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
