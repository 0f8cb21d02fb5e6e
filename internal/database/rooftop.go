package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waschplan/internal/models"
)

const requestColumns = `id, room_number, date, reason, contact, time_span, status, reviewed_by, reviewed_at, decision_reason, created_at`

func scanRequest(scanner interface{ Scan(...any) error }) (*models.RooftopRequest, error) {
	var r models.RooftopRequest
	var dateStr string
	var reviewedBy, decisionReason sql.NullString
	var reviewedAt sql.NullTime
	err := scanner.Scan(&r.ID, &r.RoomNumber, &dateStr, &r.Reason, &r.Contact,
		&r.TimeSpan, &r.Status, &reviewedBy, &reviewedAt, &decisionReason, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if r.Date, err = models.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("parse request date: %w", err)
	}
	r.ReviewedBy = reviewedBy.String
	r.DecisionReason = decisionReason.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		r.ReviewedAt = &t
	}
	return &r, nil
}

func collectRequests(rows *sql.Rows) ([]models.RooftopRequest, error) {
	defer rows.Close()
	var out []models.RooftopRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CreateRequest inserts a new rooftop request in REQUESTED state. The
// transaction rejects a second non-terminal request for the same
// (room, date) and a date that already carries a committed booking.
func (db *DB) CreateRequest(ctx context.Context, r *models.RooftopRequest) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateStr := models.FormatDate(r.Date)

	var pending int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooftop_requests WHERE room_number = ? AND date = ? AND status = ?`,
		r.RoomNumber, dateStr, models.RequestRequested,
	).Scan(&pending)
	if err != nil {
		return fmt.Errorf("check pending request: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("%w: room %s already has a pending request for %s",
			models.ErrDuplicateRequest, r.RoomNumber, dateStr)
	}

	var booked int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooftop_bookings WHERE date = ?`, dateStr).Scan(&booked)
	if err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if booked > 0 {
		return fmt.Errorf("%w: rooftop already booked on %s", models.ErrSlotUnavailable, dateStr)
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.Status = models.RequestRequested
	result, err := tx.ExecContext(ctx, `
		INSERT INTO rooftop_requests (room_number, date, reason, contact, time_span, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RoomNumber, dateStr, r.Reason, r.Contact, r.TimeSpan, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	if r.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return tx.Commit()
}

// GetRequest looks a rooftop request up by id.
func (db *DB) GetRequest(ctx context.Context, id int64) (*models.RooftopRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM rooftop_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

// SearchRequests filters rooftop requests by room, status and date
// range. Empty/zero filters are ignored.
func (db *DB) SearchRequests(ctx context.Context, room string, status models.RequestStatus, from, to time.Time) ([]models.RooftopRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rooftop_requests WHERE 1=1`
	var args []any
	if room != "" {
		query += ` AND room_number = ?`
		args = append(args, room)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, models.FormatDate(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, models.FormatDate(to))
	}
	query += ` ORDER BY date, created_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search requests: %w", err)
	}
	return collectRequests(rows)
}

// UpdateRequestDecision records a terminal transition. The update is
// guarded on the current status so a concurrent decision loses cleanly.
func (db *DB) UpdateRequestDecision(ctx context.Context, id int64, to models.RequestStatus, reviewedBy, decisionReason string, reviewedAt time.Time) error {
	return db.updateDecision(ctx, db.DB, id, to, reviewedBy, decisionReason, reviewedAt)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) updateDecision(ctx context.Context, ex execer, id int64, to models.RequestStatus, reviewedBy, decisionReason string, reviewedAt time.Time) error {
	result, err := ex.ExecContext(ctx, `
		UPDATE rooftop_requests
		SET status = ?, reviewed_by = ?, reviewed_at = ?, decision_reason = ?
		WHERE id = ? AND status = ?`,
		to, reviewedBy, reviewedAt, decisionReason, id, models.RequestRequested)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("request %d is not pending: %w", id, models.ErrInvalidState)
	}
	return nil
}

// ApproveRequest atomically marks the request approved and commits the
// rooftop booking for its date. If the date is already booked the whole
// transaction rolls back.
func (db *DB) ApproveRequest(ctx context.Context, request *models.RooftopRequest, reviewedBy, decisionReason string, reviewedAt time.Time) (*models.RooftopBooking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateStr := models.FormatDate(request.Date)
	var booked int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooftop_bookings WHERE date = ?`, dateStr).Scan(&booked); err != nil {
		return nil, fmt.Errorf("check booking: %w", err)
	}
	if booked > 0 {
		return nil, fmt.Errorf("%w: rooftop already booked on %s", models.ErrSlotUnavailable, dateStr)
	}

	if err := db.updateDecision(ctx, tx, request.ID, models.RequestApproved, reviewedBy, decisionReason, reviewedAt); err != nil {
		return nil, err
	}

	booking := &models.RooftopBooking{
		RoomNumber: request.RoomNumber,
		Date:       models.DateOnly(request.Date),
		Reason:     request.Reason,
		CreatedAt:  reviewedAt,
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO rooftop_bookings (room_number, date, reason, created_at)
		VALUES (?, ?, ?, ?)`,
		booking.RoomNumber, dateStr, booking.Reason, booking.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert rooftop booking: %w", err)
	}
	if booking.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return booking, nil
}

const rooftopBookingColumns = `id, room_number, date, reason, created_at`

func scanRooftopBooking(scanner interface{ Scan(...any) error }) (*models.RooftopBooking, error) {
	var b models.RooftopBooking
	var dateStr string
	err := scanner.Scan(&b.ID, &b.RoomNumber, &dateStr, &b.Reason, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if b.Date, err = models.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("parse rooftop booking date: %w", err)
	}
	return &b, nil
}

// RooftopBookingByDate returns the booking occupying the date, or
// ErrNotFound.
func (db *DB) RooftopBookingByDate(ctx context.Context, date time.Time) (*models.RooftopBooking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+rooftopBookingColumns+` FROM rooftop_bookings WHERE date = ?`,
		models.FormatDate(date))
	b, err := scanRooftopBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rooftop booking on %s: %w", models.FormatDate(date), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("rooftop booking by date: %w", err)
	}
	return b, nil
}

// GetRooftopBooking looks a rooftop booking up by id.
func (db *DB) GetRooftopBooking(ctx context.Context, id int64) (*models.RooftopBooking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+rooftopBookingColumns+` FROM rooftop_bookings WHERE id = ?`, id)
	b, err := scanRooftopBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rooftop booking %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rooftop booking: %w", err)
	}
	return b, nil
}

// SearchRooftopBookings filters rooftop bookings by date range and room.
func (db *DB) SearchRooftopBookings(ctx context.Context, room string, from, to time.Time) ([]models.RooftopBooking, error) {
	query := `SELECT ` + rooftopBookingColumns + ` FROM rooftop_bookings WHERE 1=1`
	var args []any
	if room != "" {
		query += ` AND room_number = ?`
		args = append(args, room)
	}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, models.FormatDate(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, models.FormatDate(to))
	}
	query += ` ORDER BY date`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search rooftop bookings: %w", err)
	}
	defer rows.Close()
	var out []models.RooftopBooking
	for rows.Next() {
		b, err := scanRooftopBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// CreateRooftopBooking inserts a direct (admin-made) rooftop booking.
// The transaction rejects a duplicate date.
func (db *DB) CreateRooftopBooking(ctx context.Context, b *models.RooftopBooking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateStr := models.FormatDate(b.Date)
	var booked int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooftop_bookings WHERE date = ?`, dateStr).Scan(&booked); err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if booked > 0 {
		return fmt.Errorf("%w: rooftop already booked on %s", models.ErrSlotUnavailable, dateStr)
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO rooftop_bookings (room_number, date, reason, created_at)
		VALUES (?, ?, ?, ?)`,
		b.RoomNumber, dateStr, b.Reason, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rooftop booking: %w", err)
	}
	if b.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return tx.Commit()
}

// DeleteRooftopBooking removes a rooftop booking by id.
func (db *DB) DeleteRooftopBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM rooftop_bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rooftop booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rooftop booking %d: %w", id, models.ErrNotFound)
	}
	return nil
}
