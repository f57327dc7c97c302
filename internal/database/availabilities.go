package database

import (
	"context"
	"database/sql"
	"fmt"

	"chairbook/internal/models"
)

const availabilityColumns = `id, chair_id, day_of_week, start_time, end_time, is_active, valid_from, valid_to, created_at, updated_at`

// SaveAvailabilities replaces the stored windows of chairID, or all windows when chairID is 0.
func (db *DB) SaveAvailabilities(ctx context.Context, chairID int64, availabilities []models.Availability) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if chairID == 0 {
			_, err = tx.ExecContext(ctx, `DELETE FROM availabilities`)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM availabilities WHERE chair_id = ?`, chairID)
		}
		if err != nil {
			return fmt.Errorf("clear availabilities: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO availabilities (`+availabilityColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range availabilities {
			a := &availabilities[i]
			if _, err := stmt.ExecContext(ctx, a.ID, a.ChairID, a.DayOfWeek, a.StartTime, a.EndTime, a.IsActive,
				a.ValidFrom, a.ValidTo, a.CreatedAt.UTC(), a.UpdatedAt.UTC()); err != nil {
				return fmt.Errorf("insert availability %d: %w", a.ID, err)
			}
		}
		return markSynced(ctx, tx, fmt.Sprintf("availabilities:%d", chairID))
	})
}

// ListAvailabilities returns stored windows of chairID, or of every chair when chairID is 0.
// Inactive windows are returned too; filtering is the resolver's job.
func (db *DB) ListAvailabilities(ctx context.Context, chairID int64) ([]models.Availability, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if chairID == 0 {
		rows, err = db.db.QueryContext(ctx, `SELECT `+availabilityColumns+` FROM availabilities ORDER BY chair_id, day_of_week, id`)
	} else {
		rows, err = db.db.QueryContext(ctx, `SELECT `+availabilityColumns+` FROM availabilities
            WHERE chair_id = ? ORDER BY day_of_week, id`, chairID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *a)
	}
	return res, rows.Err()
}

func scanAvailability(r rowScanner) (*models.Availability, error) {
	var a models.Availability
	var created, updated sql.NullTime
	if err := r.Scan(&a.ID, &a.ChairID, &a.DayOfWeek, &a.StartTime, &a.EndTime, &a.IsActive,
		&a.ValidFrom, &a.ValidTo, &created, &updated); err != nil {
		return nil, err
	}
	a.CreatedAt = created.Time
	a.UpdatedAt = updated.Time
	return &a, nil
}
