package database

import (
	"database/sql"
	"fmt"
)

// UserRepositoryImpl handles database operations for users
type UserRepositoryImpl struct {
	db *DB
}

var _ UserRepository = (*UserRepositoryImpl)(nil)

func NewUserRepository(db *DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) GetUserByUsername(username string) (*User, error) {
	var user User
	err := r.db.QueryRow(`
		SELECT id, username, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) CreateUser(username string) (*User, error) {
	var user User
	err := r.db.QueryRow(`
		INSERT INTO users (username)
		VALUES ($1)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, created_at
	`, username).Scan(&user.ID, &user.Username, &user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}
