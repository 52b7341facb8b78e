// internal/repository/memory/user.go
package memory

import (
	"context"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// CreateUser adds a user with a unique username.
func (s *Store) CreateUser(ctx context.Context, q repository.DBExecutor, user *domain.User) error {
	user.ID = s.nextID("users")
	row := *user
	return s.write(q, operation{
		check: func(st *Store) error {
			for _, u := range st.users {
				if u.Username == row.Username {
					return fmt.Errorf("failed to create user: %w", util.ErrDuplicateEntry)
				}
			}
			return nil
		},
		apply: func(st *Store) {
			cp := row
			st.users[row.ID] = &cp
		},
	})
}

// GetUserByID retrieves a user by ID. Users created inside a pending
// transaction are not visible until it commits.
func (s *Store) GetUserByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, util.ErrNotFound
}
