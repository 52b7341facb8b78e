// internal/repository/user_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"
)

// UserRepository stores ledger actors. Usernames are unique; a clash on
// create returns util.ErrDuplicateEntry.
type UserRepository interface {
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	// GetUserByID returns util.ErrNotFound for an unknown id.
	GetUserByID(ctx context.Context, q DBExecutor, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, q DBExecutor, username string) (*domain.User, error)
}
