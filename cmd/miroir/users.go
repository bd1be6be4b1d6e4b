package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/miroir/auth"
	"github.com/hazyhaar/miroir/idgen"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user',
    status        TEXT NOT NULL DEFAULT 'active',
    created_at    INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

type userService struct {
	db *sql.DB
}

func newUserService(db *sql.DB) *userService {
	return &userService{db: db}
}

func (s *userService) migrate() error {
	_, err := s.db.Exec(usersSchema)
	return err
}

// seedAdmin creates the initial admin account when none exists. With no
// ADMIN_PASSWORD set, seeding is skipped and only registered users can log
// in.
func (s *userService) seedAdmin(ctx context.Context, email, password string) error {
	if password == "" {
		return nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin' AND status = 'active'`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id := idgen.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, status, created_at)
		VALUES (?, 'admin', ?, ?, 'admin', 'active', ?)`,
		id, email, string(hash), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("admin user seeded", "email", email, "id", id)
	return nil
}

func (s *userService) authenticate(ctx context.Context, email, password string) (*auth.HorosClaims, error) {
	var userID, name, role, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, role, password_hash FROM users WHERE email = ? AND status = 'active'`, email).
		Scan(&userID, &name, &role, &hash)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, fmt.Errorf("wrong password")
	}
	return &auth.HorosClaims{
		UserID:      userID,
		DisplayName: name,
		Role:        role,
		Email:       email,
	}, nil
}

func (s *userService) create(ctx context.Context, email, name, password string) (map[string]string, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id := idgen.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, status, created_at)
		VALUES (?, ?, ?, ?, 'user', 'active', ?)`,
		id, name, email, string(hash), time.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return map[string]string{"id": id, "name": name, "email": email, "role": "user"}, nil
}

func (s *userService) get(ctx context.Context, userID string) (map[string]any, error) {
	var id, name, email, role string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ? AND status = 'active'`, userID).
		Scan(&id, &name, &email, &role, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	return map[string]any{
		"id": id, "name": name, "email": email, "role": role, "created_at": createdAt,
	}, nil
}

// deactivate soft-deletes the account; existing clones stay on disk and in
// the registry but become unreachable without a session.
func (s *userService) deactivate(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = 'deleted' WHERE id = ?`, userID)
	return err
}

func (s *userService) update(ctx context.Context, userID, name, password string) error {
	if name != "" {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET name = ? WHERE id = ?`, name, userID); err != nil {
			return err
		}
	}
	if password != "" {
		if len(password) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET password_hash = ? WHERE id = ?`, string(hash), userID); err != nil {
			return err
		}
	}
	return nil
}
