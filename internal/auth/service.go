package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// userStore is the slice of Repository the service needs.
type userStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	Warehouses(ctx context.Context, userID int64) ([]string, error)
}

// Service authenticates users and answers warehouse authorization queries.
type Service struct {
	repo   userStore
	policy WarehousePolicy
}

// NewService builds the service.
func NewService(repo userStore, policy WarehousePolicy) *Service {
	if policy == nil {
		policy = DefaultWarehousePolicy()
	}
	return &Service{repo: repo, policy: policy}
}

// Authenticate verifies credentials and returns the user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MayPostInWarehouse reports whether a user may submit stock affecting
// documents in the warehouse. Strict mode ignores substitute zones; it is
// used for returns that lack breakage approval.
func (s *Service) MayPostInWarehouse(ctx context.Context, userID int64, warehouse string, strict bool) (bool, error) {
	granted, err := s.repo.Warehouses(ctx, userID)
	if err != nil {
		return false, err
	}
	if strict {
		for _, g := range granted {
			if g == warehouse {
				return true, nil
			}
		}
		return false, nil
	}
	return s.policy.Allows(granted, warehouse), nil
}
