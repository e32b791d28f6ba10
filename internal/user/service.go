package user

import (
	"context"
	"errors"
)

// Service contains business logic for user management.
type Service struct {
	repo *Repository
}

// NewService creates a new user Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByAvatar returns the user owning the given avatar object name.
func (s *Service) FindByAvatar(ctx context.Context, avatar string) (*User, error) {
	return s.repo.FindByAvatar(ctx, avatar)
}

// UpdateAvatar re-points the user record at a new avatar object name.
func (s *Service) UpdateAvatar(ctx context.Context, id, avatar string) (*User, error) {
	return s.repo.UpdateAvatar(ctx, id, avatar)
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
