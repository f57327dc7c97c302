package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/models"
)

const bookingColumns = `id, user_id, chair_id, start_time, end_time, status, notes, created_at, updated_at`

// SaveBookings upserts bookings by id. Times are stored in UTC so range filters compare correctly.
func (db *DB) SaveBookings(ctx context.Context, bookings []models.Booking) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bookings (`+bookingColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range bookings {
			b := &bookings[i]
			if _, err := stmt.ExecContext(ctx, b.ID, b.UserID, b.ChairID, b.StartTime.UTC(), b.SessionEnd().UTC(),
				b.Status, b.Notes, b.CreatedAt.UTC(), b.UpdatedAt.UTC()); err != nil {
				return fmt.Errorf("insert booking %d: %w", b.ID, err)
			}
		}
		return markSynced(ctx, tx, "bookings")
	})
}

func (db *DB) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]models.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.ChairID != 0 {
		where = append(where, "chair_id = ?")
		args = append(args, filter.ChairID)
	}
	if filter.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, filter.To.UTC())
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *b)
	}
	return res, rows.Err()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return b, err
}

// PurgeBookingsBefore drops snapshot rows that start before cutoff.
func (db *DB) PurgeBookingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM bookings WHERE start_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanBooking(r rowScanner) (*models.Booking, error) {
	var b models.Booking
	var created, updated sql.NullTime
	if err := r.Scan(&b.ID, &b.UserID, &b.ChairID, &b.StartTime, &b.EndTime, &b.Status, &b.Notes,
		&created, &updated); err != nil {
		return nil, err
	}
	b.CreatedAt = created.Time
	b.UpdatedAt = updated.Time
	return &b, nil
}
