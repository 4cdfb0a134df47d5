package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmailTaken is returned by Create when the email's unique index
	// rejects the insert.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned by FindByEmail for unknown emails.
	ErrUserNotFound = errors.New("user not found")
)

// UserAccount is a registered credential record. Accounts are written once
// at registration and never mutated.
type UserAccount struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	CreatedAt    time.Time
}

// UserStore persists and looks up user accounts. Email uniqueness is
// enforced at the storage layer, not just by the handler's pre-check.
type UserStore interface {
	Create(ctx context.Context, u *UserAccount) error
	FindByEmail(ctx context.Context, email string) (UserAccount, error)
}

type pgUserStore struct {
	db *sql.DB
}

// NewUserStore returns a UserStore backed by the users table.
func NewUserStore(db *sql.DB) UserStore {
	return &pgUserStore{db: db}
}

// uniqueViolation is the Postgres error code for a unique index conflict.
const uniqueViolation = "23505"

func (s *pgUserStore) Create(ctx context.Context, u *UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.PasswordHash, u.FullName, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (UserAccount, error) {
	var u UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, full_name, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserAccount{}, ErrUserNotFound
		}
		return UserAccount{}, err
	}
	return u, nil
}
