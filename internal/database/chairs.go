package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chairbook/internal/models"
)

const chairColumns = `id, name, location, status, description, created_at, updated_at`

// SaveChairs replaces the stored chair list.
func (db *DB) SaveChairs(ctx context.Context, chairs []models.Chair) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chairs`); err != nil {
			return fmt.Errorf("clear chairs: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO chairs (`+chairColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range chairs {
			c := &chairs[i]
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Location, c.Status, c.Description,
				c.CreatedAt.UTC(), c.UpdatedAt.UTC()); err != nil {
				return fmt.Errorf("insert chair %d: %w", c.ID, err)
			}
		}
		return markSynced(ctx, tx, "chairs")
	})
}

// SaveChair inserts or replaces a single chair, leaving the rest of the list alone.
func (db *DB) SaveChair(ctx context.Context, c models.Chair) error {
	_, err := db.db.ExecContext(ctx, `INSERT OR REPLACE INTO chairs (`+chairColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Location, c.Status, c.Description, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert chair %d: %w", c.ID, err)
	}
	return nil
}

func (db *DB) ListChairs(ctx context.Context) ([]models.Chair, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT `+chairColumns+` FROM chairs ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Chair
	for rows.Next() {
		c, err := scanChair(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

func (db *DB) GetChair(ctx context.Context, id int64) (*models.Chair, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+chairColumns+` FROM chairs WHERE id = ?`, id)
	c, err := scanChair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chair %d: %w", id, ErrNotFound)
	}
	return c, err
}

func scanChair(r rowScanner) (*models.Chair, error) {
	var c models.Chair
	var created, updated sql.NullTime
	if err := r.Scan(&c.ID, &c.Name, &c.Location, &c.Status, &c.Description, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = created.Time
	c.UpdatedAt = updated.Time
	return &c, nil
}
