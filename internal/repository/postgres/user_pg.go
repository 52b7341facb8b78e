// internal/repository/postgres/user_pg.go
package postgres

import (
	"context"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
)

const (
	userColumns = `id, username, role, verification_level, timezone, phone_number, email, is_active, created_at, updated_at`

	insertUserSQL = `
		INSERT INTO users (username, role, verification_level, timezone, phone_number, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
)

// UserRepository implements repository.UserRepository for PostgreSQL.
type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) CreateUser(ctx context.Context, q repository.DBExecutor, user *domain.User) error {
	err := q.GetContext(ctx, &user.ID, insertUserSQL, user.Username, user.Role, user.VerificationLevel, user.Timezone,
		user.PhoneNumber, user.Email, user.IsActive, user.CreatedAt, user.UpdatedAt)
	return mapError(err, "create user %q", user.Username)
}

func (r *UserRepository) GetUserByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.User, error) {
	return r.getOne(ctx, q, "id", id)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.User, error) {
	return r.getOne(ctx, q, "username", username)
}

// getOne loads a user by a unique column. column is always a literal from
// this file, never caller input.
func (r *UserRepository) getOne(ctx context.Context, q repository.DBExecutor, column string, value interface{}) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	if err := q.GetContext(ctx, &user, query, value); err != nil {
		return nil, mapError(err, "get user by %s %v", column, value)
	}
	return &user, nil
}
