package seeder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DefaultUser defines a user to be registered when the directory lacks it
type DefaultUser struct {
	Username       string
	InitialBalance decimal.Decimal
}

// UserRegistrar is the part of the trading service the seeder needs
type UserRegistrar interface {
	HasUser(username string) bool
	RegisterUser(ctx context.Context, username string, initialBalance decimal.Decimal) (*domain.User, error)
}

// UserSeeder handles seeding of default users after the snapshot is loaded
type UserSeeder struct {
	registrar UserRegistrar
}

// NewUserSeeder creates a new UserSeeder instance
func NewUserSeeder(registrar UserRegistrar) *UserSeeder {
	return &UserSeeder{
		registrar: registrar,
	}
}

// Seed registers every default user that does not exist yet.
// Existing users are left untouched so a restart keeps their restored portfolio.
// It returns the usernames that were created.
func (s *UserSeeder) Seed(ctx context.Context, users []DefaultUser) ([]string, error) {
	var created []string
	for _, user := range users {
		if s.registrar.HasUser(user.Username) {
			continue
		}
		if _, err := s.registrar.RegisterUser(ctx, user.Username, user.InitialBalance); err != nil {
			return created, fmt.Errorf("failed to seed user %q: %w", user.Username, err)
		}
		created = append(created, user.Username)
	}
	return created, nil
}
