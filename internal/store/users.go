package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/timegrid/internal/model"
)

// CreateUser inserts u and returns it with its new id. secret is the
// client secret accepted by the token endpoint; empty disables it.
func (s *Store) CreateUser(u model.User, secret string) (model.User, error) {
	res, err := s.db.Exec(`
		INSERT INTO users (login, first_name, last_name, secret)
		VALUES (?, ?, ?, ?)
	`, u.Login, u.FirstName, u.LastName, secret)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user %s: %w", u.Login, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = int(id)
	return u, nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to read user: %w", err)
	}
	return u, nil
}

// User returns the user with the given id.
func (s *Store) User(id int) (model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT id, login, first_name, last_name FROM users WHERE id = ?`, id))
}

// UserByLogin returns the user with the given login.
func (s *Store) UserByLogin(login string) (model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT id, login, first_name, last_name FROM users WHERE login = ?`, login))
}

// Authenticate checks a login/secret pair.
func (s *Store) Authenticate(login, secret string) (model.User, error) {
	if secret == "" {
		return model.User{}, ErrNotFound
	}
	return scanUser(s.db.QueryRow(`
		SELECT id, login, first_name, last_name FROM users WHERE login = ? AND secret = ?
	`, login, secret))
}

// IssueToken creates a bearer token for userID valid for ttl.
func (s *Store) IssueToken(userID int, ttl time.Duration) (string, time.Time, error) {
	token := uuid.New().String()
	expires := s.now().Add(ttl).UTC()
	if _, err := s.db.Exec(`
		INSERT INTO tokens (token, user_id, expires_at) VALUES (?, ?, ?)
	`, token, userID, expires.Format(time.RFC3339)); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, expires, nil
}

// UserByToken resolves an unexpired bearer token.
func (s *Store) UserByToken(token string) (model.User, error) {
	return scanUser(s.db.QueryRow(`
		SELECT u.id, u.login, u.first_name, u.last_name
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ? AND t.expires_at > ?
	`, token, s.now().UTC().Format(time.RFC3339)))
}
