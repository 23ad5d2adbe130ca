package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ToggleLike adds or removes a user's like on an asset and adjusts the
// denormalized counter in the same transaction. Returns the new liked state
// and the resulting count.
func (d *Database) ToggleLike(ctx context.Context, userID, assetID int64) (liked bool, likes int64, err error) {
	start := time.Now()
	defer func() { recordQuery("toggle_like", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		row := tx.QueryRowContext(ctx,
			"SELECT 1 FROM likes WHERE user_id = ? AND asset_id = ?", userID, assetID)
		switch err := row.Scan(&exists); {
		case errors.Is(err, sql.ErrNoRows):
			// Not yet liked; insert and increment. The insert fails if the
			// asset was deleted out from under us, which rolls everything back.
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO likes (user_id, asset_id, created_at) VALUES (?, ?, strftime('%s','now'))",
				userID, assetID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE assets SET likes = likes + 1 WHERE id = ?", assetID); err != nil {
				return err
			}
			liked = true
		case err != nil:
			return err
		default:
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM likes WHERE user_id = ? AND asset_id = ?", userID, assetID); err != nil {
				return err
			}
			// The MAX guard keeps the counter from going negative if it ever
			// drifts from the join table.
			if _, err := tx.ExecContext(ctx,
				"UPDATE assets SET likes = MAX(likes - 1, 0) WHERE id = ?", assetID); err != nil {
				return err
			}
			liked = false
		}

		row = tx.QueryRowContext(ctx, "SELECT likes FROM assets WHERE id = ?", assetID)
		if err := row.Scan(&likes); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

// HasLiked reports whether the user has liked the asset.
func (d *Database) HasLiked(ctx context.Context, userID, assetID int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("has_liked", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists int
	row := d.db.QueryRowContext(ctx,
		"SELECT 1 FROM likes WHERE user_id = ? AND asset_id = ?", userID, assetID)
	err = row.Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
