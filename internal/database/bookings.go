package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waschplan/internal/models"
)

const bookingColumns = `id, room_number, machine_name, machine_type, date, slot_start, duration, created_at`

func scanBooking(scanner interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	err := scanner.Scan(&b.ID, &b.RoomNumber, &b.MachineName, &b.MachineType,
		&dateStr, &b.SlotStart, &b.Duration, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Date, err = models.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse booking date %q: %w", dateStr, err)
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	defer rows.Close()
	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// InsertBookings commits a batch of reservations in a single
// transaction. Each insert re-checks overlap against current state,
// including rows written earlier in the same transaction, so claims
// within one batch cannot conflict with each other. Any failure rolls
// the whole batch back.
func (db *DB) InsertBookings(ctx context.Context, bookings []*models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range bookings {
		if err := db.insertBookingTx(ctx, tx, b); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) insertBookingTx(ctx context.Context, tx *sql.Tx, b *models.Booking) error {
	// Neighboring dates are included so cross-midnight spans are caught.
	from := models.FormatDate(b.Date.AddDate(0, 0, -1))
	to := models.FormatDate(b.Date.AddDate(0, 0, 1))
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE machine_name = ? AND date BETWEEN ? AND ?`,
		b.MachineName, from, to)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	existing, err := collectBookings(rows)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	for i := range existing {
		if b.Overlaps(&existing[i]) {
			return fmt.Errorf("%w: %s slot %d on %s overlaps booking %d",
				models.ErrSlotUnavailable, b.MachineName, b.SlotStart,
				models.FormatDate(b.Date), existing[i].ID)
		}
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (room_number, machine_name, machine_type, date, slot_start, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.RoomNumber, b.MachineName, b.MachineType, models.FormatDate(b.Date),
		b.SlotStart, b.Duration, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// GetBooking looks a reservation up by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// DeleteBooking removes a reservation by id.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// BookingsBetween returns all bookings with dates in [from, to],
// inclusive, across all machines.
func (db *DB) BookingsBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE date BETWEEN ? AND ? ORDER BY machine_name, date, slot_start`,
		models.FormatDate(from), models.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("bookings between: %w", err)
	}
	return collectBookings(rows)
}

// BookingsAround returns the machine's bookings for the date and its
// direct neighbors, the window the conflict guard validates against.
func (db *DB) BookingsAround(ctx context.Context, machine string, date time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE machine_name = ? AND date BETWEEN ? AND ? ORDER BY date, slot_start`,
		machine,
		models.FormatDate(date.AddDate(0, 0, -1)),
		models.FormatDate(date.AddDate(0, 0, 1)))
	if err != nil {
		return nil, fmt.Errorf("bookings around: %w", err)
	}
	return collectBookings(rows)
}

// FutureBookingsByRoom returns the room's bookings dated at or after
// from, soonest first.
func (db *DB) FutureBookingsByRoom(ctx context.Context, room string, from time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE room_number = ? AND date >= ? ORDER BY date, slot_start`,
		room, models.FormatDate(from))
	if err != nil {
		return nil, fmt.Errorf("future bookings: %w", err)
	}
	return collectBookings(rows)
}

// BookingsByRoomPaged returns a page of the room's booking history,
// newest first.
func (db *DB) BookingsByRoomPaged(ctx context.Context, room string, page, size int) ([]models.Booking, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE room_number = ?
		 ORDER BY date DESC, slot_start DESC LIMIT ? OFFSET ?`,
		room, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("bookings by room: %w", err)
	}
	return collectBookings(rows)
}

// UsedMinutes sums the minutes the room has reserved on machines of the
// given type with dates in [from, to], inclusive.
func (db *DB) UsedMinutes(ctx context.Context, room string, mtype models.MachineType, from, to time.Time) (int, error) {
	var used sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT SUM(duration) FROM bookings
		 WHERE room_number = ? AND machine_type = ? AND date BETWEEN ? AND ?`,
		room, mtype, models.FormatDate(from), models.FormatDate(to),
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("used minutes: %w", err)
	}
	return int(used.Int64), nil
}

// UsedMinutesByDate returns the room's reserved minutes per date on
// machines of the given type, for dates in [from, to] inclusive. Dates
// without bookings are absent from the map.
func (db *DB) UsedMinutesByDate(ctx context.Context, room string, mtype models.MachineType, from, to time.Time) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT date, SUM(duration) FROM bookings
		 WHERE room_number = ? AND machine_type = ? AND date BETWEEN ? AND ?
		 GROUP BY date`,
		room, mtype, models.FormatDate(from), models.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("used minutes by date: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var minutes int
		if err := rows.Scan(&day, &minutes); err != nil {
			return nil, fmt.Errorf("used minutes by date: %w", err)
		}
		out[day] = minutes
	}
	return out, rows.Err()
}
