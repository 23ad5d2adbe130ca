package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// commentPageSize caps how many comments a single listing returns.
const commentPageSize = 50

// AddComment stores a comment and returns it joined with the author's
// display info.
func (d *Database) AddComment(ctx context.Context, userID, assetID int64, body string) (*Comment, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_comment", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO comments (user_id, asset_id, body, created_at)
		VALUES (?, ?, ?, strftime('%s','now'))
	`, userID, assetID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	row := d.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.asset_id, c.body, c.created_at, u.name, u.avatar_url
		FROM comments c
		INNER JOIN users u ON c.user_id = u.id
		WHERE c.id = ?
	`, id)
	return scanComment(row)
}

// ListComments returns the most recent comments on an asset, newest first.
func (d *Database) ListComments(ctx context.Context, assetID int64) ([]Comment, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_comments", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.asset_id, c.body, c.created_at, u.name, u.avatar_url
		FROM comments c
		INNER JOIN users u ON c.user_id = u.id
		WHERE c.asset_id = ?
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?
	`, assetID, commentPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment. Only the author or an admin may delete;
// the handler enforces that, this just deletes by id.
func (d *Database) DeleteComment(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_comment", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return err
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

// GetComment fetches a single comment by id.
func (d *Database) GetComment(ctx context.Context, id int64) (*Comment, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_comment", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.asset_id, c.body, c.created_at, u.name, u.avatar_url
		FROM comments c
		INNER JOIN users u ON c.user_id = u.id
		WHERE c.id = ?
	`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func scanComment(row interface{ Scan(...any) error }) (*Comment, error) {
	var c Comment
	var createdAt int64
	if err := row.Scan(&c.ID, &c.UserID, &c.AssetID, &c.Body, &createdAt,
		&c.UserName, &c.UserAvatar); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}
