package user

import (
	"context"
	"errors"

	"github.com/hmaged/tutorbase/pkg/middleware"
)

// Common errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// Repository abstracts user data persistence
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetBySessionToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context, search, role string, limit, offset int) ([]*User, int, error)
}

// Service handles user business logic
type Service struct {
	repo Repository
}

// NewService creates a new user service with repository dependency injected
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List retrieves users matching the filter with pagination
func (s *Service) List(ctx context.Context, search, role string, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, search, role, perPage, offset)
}

// GetUserBySessionToken implements middleware.SessionStore. A missing or
// expired token resolves to nil without error.
func (s *Service) GetUserBySessionToken(ctx context.Context, token string) (*middleware.AuthUser, error) {
	user, err := s.repo.GetBySessionToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &middleware.AuthUser{ID: user.ID, Role: user.Role}, nil
}
