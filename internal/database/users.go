package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UpsertUser finds or creates a user from externally verified identity
// claims and returns the stored record. Matching is on (email, provider),
// mirroring how the OAuth layer identifies returning users.
func (d *Database) UpsertUser(ctx context.Context, email, name, avatarURL, provider, providerID string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_user", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email, provider) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url
	`, email, name, avatarURL, provider, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return d.getUserByEmailLocked(ctx, email, provider)
}

func (d *Database) getUserByEmailLocked(ctx context.Context, email, provider string) (*User, error) {
	var user User
	var isAdmin int
	var createdAt int64

	err := d.db.QueryRowContext(ctx, `
		SELECT id, email, name, avatar_url, provider, provider_id, is_admin, created_at
		FROM users WHERE email = ? AND provider = ?
	`, email, provider).Scan(
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

// GetUser retrieves a user by id.
func (d *Database) GetUser(ctx context.Context, id int64) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var isAdmin int
	var createdAt int64

	err = d.db.QueryRowContext(ctx, `
		SELECT id, email, name, avatar_url, provider, provider_id, is_admin, created_at
		FROM users WHERE id = ?
	`, id).Scan(
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

// SetAdmin grants or revokes admin rights for the user with the given
// email. Used by the promote CLI.
func (d *Database) SetAdmin(ctx context.Context, email string, admin bool) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_admin", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	flag := 0
	if admin {
		flag = 1
	}

	result, err := d.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE email = ?", flag, email)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUsers returns the total number of user accounts.
func (d *Database) CountUsers(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
