package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/asock/catio-cam/internal/logging"
)

// SessionDuration is the length of time a session remains valid.
const SessionDuration = 7 * 24 * time.Hour

// CreateSession issues a new session token for the user.
func (d *Database) CreateSession(ctx context.Context, userID int64) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	token := uuid.NewString()
	expiresAt := time.Now().Add(SessionDuration)

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)
	`, userID, token, expiresAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// GetUserByToken resolves a session token to its user. Expired or unknown
// tokens return ErrNotFound.
func (d *Database) GetUserByToken(ctx context.Context, token string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user_by_token", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var isAdmin int
	var createdAt int64

	err = d.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.name, u.avatar_url, u.provider, u.provider_id, u.is_admin, u.created_at
		FROM sessions s
		INNER JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().Unix()).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &isAdmin, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.IsAdmin = isAdmin != 0
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// DeleteSession removes a session token (logout).
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes sessions past their expiry.
func (d *Database) CleanExpiredSessions(ctx context.Context) {
	start := time.Now()
	var err error
	defer func() { recordQuery("clean_sessions", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		logging.Warn("failed to clean expired sessions: %v", err)
		return
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		logging.Debug("Cleaned %d expired sessions", rows)
	}
}
