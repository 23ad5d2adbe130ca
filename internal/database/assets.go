package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const assetColumns = `
	a.id, a.user_id, a.title, a.description, a.stored_name, a.original_name,
	a.size, a.duration, a.width, a.height, a.content_type,
	a.thumb_name, a.thumb_type, a.tags, a.status, a.is_featured,
	a.views, a.likes, a.created_at`

func scanAsset(row interface{ Scan(...any) error }, withOwner bool) (*Asset, error) {
	var a Asset
	var featured int
	var createdAt int64

	dest := []any{
		&a.ID, &a.UserID, &a.Title, &a.Description, &a.StoredName, &a.OriginalName,
		&a.Size, &a.Duration, &a.Width, &a.Height, &a.ContentType,
		&a.ThumbName, &a.ThumbType, &a.Tags, &a.Status, &featured,
		&a.Views, &a.Likes, &createdAt,
	}
	if withOwner {
		dest = append(dest, &a.OwnerName, &a.OwnerAvatar)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	a.IsFeatured = featured != 0
	a.CreatedAt = time.Unix(createdAt, 0)
	return &a, nil
}

// InsertAsset persists a newly ingested asset and returns it with its
// assigned id.
func (d *Database) InsertAsset(ctx context.Context, a *Asset) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_asset", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO assets (user_id, title, description, stored_name, original_name,
			size, duration, width, height, content_type, thumb_name, thumb_type,
			tags, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.UserID, a.Title, a.Description, a.StoredName, a.OriginalName,
		a.Size, a.Duration, a.Width, a.Height, a.ContentType,
		a.ThumbName, a.ThumbType, a.Tags, a.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	stored := *a
	stored.ID = id
	stored.CreatedAt = time.Now()
	return &stored, nil
}

// GetAsset retrieves a single asset by id, joined with owner info.
func (d *Database) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_asset", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`, u.name, u.avatar_url
		FROM assets a
		INNER JOIN users u ON a.user_id = u.id
		WHERE a.id = ?
	`, id)

	asset, err := scanAsset(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// GetByStoredName resolves a blob filename back to its asset. Used by
// the media delivery handler.
func (d *Database) GetByStoredName(ctx context.Context, storedName string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_by_stored_name", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`, u.name, u.avatar_url
		FROM assets a
		INNER JOIN users u ON a.user_id = u.id
		WHERE a.stored_name = ?
	`, storedName)

	asset, err := scanAsset(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// GetFeatured returns the single featured published asset, or ErrNotFound.
func (d *Database) GetFeatured(ctx context.Context) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_featured", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`, u.name, u.avatar_url
		FROM assets a
		INNER JOIN users u ON a.user_id = u.id
		WHERE a.is_featured = 1 AND a.status = 'published'
		LIMIT 1
	`)

	asset, err := scanAsset(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListPublished returns published, non-featured assets ordered by views
// then recency, optionally filtered by tag or free-text search.
func (d *Database) ListPublished(ctx context.Context, opts ListOptions) ([]Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_published", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		SELECT ` + assetColumns + `, u.name, u.avatar_url
		FROM assets a
		INNER JOIN users u ON a.user_id = u.id
		WHERE a.is_featured = 0 AND a.status = 'published'`

	var params []any
	if opts.Tag != "" {
		query += " AND a.tags LIKE ?"
		params = append(params, "%"+opts.Tag+"%")
	}
	if opts.Search != "" {
		query += " AND (a.title LIKE ? OR a.description LIKE ?)"
		like := "%" + opts.Search + "%"
		params = append(params, like, like)
	}

	query += " ORDER BY a.views DESC, a.created_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	return d.queryAssets(ctx, query, params...)
}

// ListByOwner returns every asset belonging to a user, any status.
func (d *Database) ListByOwner(ctx context.Context, userID int64) ([]Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_by_owner", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.queryAssets(ctx, `
		SELECT `+assetColumns+`, u.name, u.avatar_url
		FROM assets a
		INNER JOIN users u ON a.user_id = u.id
		WHERE a.user_id = ?
		ORDER BY a.created_at DESC
	`, userID)
}

// ListByStatus returns assets in the given moderation state, newest first.
// Used by the admin panel.
func (d *Database) ListByStatus(ctx context.Context, status AssetStatus) ([]Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_by_status", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.queryAssets(ctx, `
		SELECT `+assetColumns+`, u.name, u.avatar_url
		FROM assets a
		INNER JOIN users u ON a.user_id = u.id
		WHERE a.status = ?
		ORDER BY a.is_featured DESC, a.created_at DESC
	`, status)
}

func (d *Database) queryAssets(ctx context.Context, query string, params ...any) ([]Asset, error) {
	rows, err := d.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("asset query failed: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows, true)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

// UpdateStatus moves an asset to a new moderation state.
func (d *Database) UpdateStatus(ctx context.Context, id int64, status AssetStatus) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_status", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "UPDATE assets SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update asset status: %w", err)
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

// SetFeatured makes the given asset the single featured one. All featured
// flags are cleared and the new one set inside one transaction, so at most
// one asset is ever featured.
func (d *Database) SetFeatured(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_featured", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE assets SET is_featured = 0 WHERE is_featured = 1"); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "UPDATE assets SET is_featured = 1 WHERE id = ?", id)
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
	})
	return err
}

// IncrementViews bumps the view counter. The increment happens in SQL so
// concurrent views never lose updates.
func (d *Database) IncrementViews(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("increment_views", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "UPDATE assets SET views = views + 1 WHERE id = ?", id)
	return err
}

// SetThumbnail replaces an asset's thumbnail reference (poster upload).
func (d *Database) SetThumbnail(ctx context.Context, id int64, thumbName, thumbType string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_thumbnail", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE assets SET thumb_name = ?, thumb_type = ? WHERE id = ?",
		thumbName, thumbType, id)
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

// DeleteAsset removes the metadata row and returns the stored filenames so
// the caller can remove the backing files. Likes and comments cascade.
func (d *Database) DeleteAsset(ctx context.Context, id int64) (storedName, thumbName string, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_asset", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, "SELECT stored_name, thumb_name FROM assets WHERE id = ?", id)
		if err := row.Scan(&storedName, &thumbName); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM likes WHERE asset_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE asset_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
		return err
	})
	if err != nil {
		return "", "", err
	}
	return storedName, thumbName, nil
}

// Stats returns the aggregate counters for /api/stats. ActiveConnections
// is filled in by the caller from the live hub.
func (d *Database) Stats(ctx context.Context) (*HubStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s HubStats

	if err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assets WHERE status = 'published'").Scan(&s.PublishedAssets); err != nil {
		return nil, err
	}
	if err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assets WHERE status = 'processing'").Scan(&s.ProcessingAssets); err != nil {
		return nil, err
	}
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&s.Users); err != nil {
		return nil, err
	}
	if err = d.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(views), 0) FROM assets WHERE status = 'published'").Scan(&s.TotalViews); err != nil {
		return nil, err
	}

	return &s, nil
}

// ListStoredNames returns every stored blob and thumbnail filename known to
// the database. Used by the janitor to detect orphaned files.
func (d *Database) ListStoredNames(ctx context.Context) (map[string]bool, map[string]bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_stored_names", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT stored_name, thumb_name FROM assets")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	blobs := make(map[string]bool)
	thumbs := make(map[string]bool)
	for rows.Next() {
		var stored, thumb string
		if err := rows.Scan(&stored, &thumb); err != nil {
			return nil, nil, err
		}
		blobs[stored] = true
		if thumb != "" {
			thumbs[thumb] = true
		}
	}
	return blobs, thumbs, rows.Err()
}
