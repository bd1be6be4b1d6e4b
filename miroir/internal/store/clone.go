package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/miroir/dbopen"
)

// StatusActive is the only status the engine persists; a clone whose
// artifact went missing is purged rather than marked.
const StatusActive = "active"

// Clone is a registry record.
type Clone struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	SourceURL   string    `json:"source_url"`
	ArtifactRef string    `json:"artifact_ref"`
	PixelID     *string   `json:"pixel_id"`
	Status      string    `json:"status"`
	ViewCount   int64     `json:"view_count"`
	CreatedAt   int64     `json:"created_at"`
	LastUpdated int64     `json:"last_updated"`
	Scripts     []*Script `json:"scripts"`
}

// Script is one injected content block tracked for a clone.
type Script struct {
	ID        string `json:"script_id"`
	Content   string `json:"content"`
	Location  string `json:"location"`
	Position  int    `json:"-"`
	CreatedAt int64  `json:"created_at"`
}

// Insert creates a new clone record.
func (s *Store) Insert(ctx context.Context, c *Clone) error {
	now := time.Now().UnixMilli()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.LastUpdated = now
	if c.Status == "" {
		c.Status = StatusActive
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO clones (id, owner_id, source_url, artifact_ref, pixel_id, status, view_count, created_at, last_updated)
		VALUES (?,?,?,?,?,?,0,?,?)`,
		c.ID, c.OwnerID, c.SourceURL, c.ArtifactRef, c.PixelID, c.Status, c.CreatedAt, c.LastUpdated)
	return err
}

// Get retrieves a clone with its scripts, scoped to owner.
// Returns (nil, nil) when absent or owned by someone else.
func (s *Store) Get(ctx context.Context, id, owner string) (*Clone, error) {
	c := &Clone{}
	var pixelID sql.NullString
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_id, source_url, artifact_ref, pixel_id, status, view_count, created_at, last_updated
		FROM clones WHERE id = ? AND owner_id = ?`, id, owner).Scan(
		&c.ID, &c.OwnerID, &c.SourceURL, &c.ArtifactRef, &pixelID, &c.Status, &c.ViewCount, &c.CreatedAt, &c.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if pixelID.Valid {
		c.PixelID = &pixelID.String
	}

	scripts, err := s.scriptsFor(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Scripts = scripts
	return c, nil
}

// ListActiveByOwner returns the owner's active clones, newest first, scripts
// included.
func (s *Store) ListActiveByOwner(ctx context.Context, owner string) ([]*Clone, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_id, source_url, artifact_ref, pixel_id, status, view_count, created_at, last_updated
		FROM clones WHERE owner_id = ? AND status = ?
		ORDER BY created_at DESC`, owner, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clones []*Clone
	for rows.Next() {
		c := &Clone{}
		var pixelID sql.NullString
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.SourceURL, &c.ArtifactRef, &pixelID,
			&c.Status, &c.ViewCount, &c.CreatedAt, &c.LastUpdated); err != nil {
			return nil, err
		}
		if pixelID.Valid {
			c.PixelID = &pixelID.String
		}
		clones = append(clones, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range clones {
		scripts, err := s.scriptsFor(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Scripts = scripts
	}
	return clones, nil
}

// Delete removes a clone record (scripts cascade), scoped to owner.
// Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, id, owner string) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM clones WHERE id = ? AND owner_id = ?`, id, owner)
	return err
}

// Purge removes a clone record regardless of owner. Used by the
// self-healing path when a registry record has lost its artifact.
func (s *Store) Purge(ctx context.Context, id string) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM clones WHERE id = ?`, id)
	return err
}

// UpdatePixel sets or clears the tracked pixel id, scoped to owner.
func (s *Store) UpdatePixel(ctx context.Context, id, owner string, pixelID *string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE clones SET pixel_id = ?, last_updated = ? WHERE id = ? AND owner_id = ?`,
		pixelID, time.Now().UnixMilli(), id, owner)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AddScript appends a script entry at the next position, scoped to owner.
func (s *Store) AddScript(ctx context.Context, cloneID, owner string, sc *Script) error {
	now := time.Now().UnixMilli()
	sc.CreatedAt = now
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM clones WHERE id = ? AND owner_id = ?`, cloneID, owner).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: clone %s not found for owner", cloneID)
		}
		if err != nil {
			return err
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM clone_scripts WHERE clone_id = ?`, cloneID).Scan(&next); err != nil {
			return err
		}
		sc.Position = next

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clone_scripts (id, clone_id, content, location, position, created_at)
			VALUES (?,?,?,?,?,?)`,
			sc.ID, cloneID, sc.Content, sc.Location, sc.Position, sc.CreatedAt); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE clones SET last_updated = ? WHERE id = ?`, now, cloneID)
		return err
	})
}

// RemoveScript deletes one script entry, scoped to owner via the clone row.
func (s *Store) RemoveScript(ctx context.Context, cloneID, owner, scriptID string) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM clone_scripts WHERE id = ? AND clone_id IN
				(SELECT id FROM clones WHERE id = ? AND owner_id = ?)`,
			scriptID, cloneID, owner)
		if err != nil {
			return err
		}
		if err := requireRow(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE clones SET last_updated = ? WHERE id = ?`, now, cloneID)
		return err
	})
}

// Touch refreshes last_updated, scoped to owner. Used by mutations that keep
// no other registry bookkeeping (link rewrites, HTML replacement).
func (s *Store) Touch(ctx context.Context, id, owner string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE clones SET last_updated = ? WHERE id = ? AND owner_id = ?`,
		time.Now().UnixMilli(), id, owner)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// IncrementViews bumps the view counter atomically. Not owner-scoped:
// artifact serving is public.
func (s *Store) IncrementViews(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE clones SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

func (s *Store) scriptsFor(ctx context.Context, cloneID string) ([]*Script, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, content, location, position, created_at
		FROM clone_scripts WHERE clone_id = ? ORDER BY position ASC`, cloneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scripts []*Script
	for rows.Next() {
		sc := &Script{}
		if err := rows.Scan(&sc.ID, &sc.Content, &sc.Location, &sc.Position, &sc.CreatedAt); err != nil {
			return nil, err
		}
		scripts = append(scripts, sc)
	}
	return scripts, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
