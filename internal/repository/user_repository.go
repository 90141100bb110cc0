package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/todoapp/todo-api/internal/utils"
)

// User mirrors the 'users' table.  The password hash never leaves the API:
// it is only ever compared through bcrypt's own constant-time verify.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// Create hashes the password, inserts the user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return User{}, err
	}
	u := User{Email: email, PasswordHash: hash}
	err = r.DB.QueryRowContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES ($1,$2) RETURNING id, created_at, updated_at",
		email, hash).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,created_at,updated_at FROM users WHERE email=$1 LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,created_at,updated_at FROM users WHERE id=$1 LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
