package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waschplan/internal/models"
)

const overrideColumns = `id, machine_name, status, start_date, end_date, start_slot, end_slot, created_by, created_at`

func scanOverride(scanner interface{ Scan(...any) error }) (*models.Override, error) {
	var o models.Override
	var startStr, endStr string
	var startSlot, endSlot sql.NullInt64
	err := scanner.Scan(&o.ID, &o.MachineName, &o.Status, &startStr, &endStr,
		&startSlot, &endSlot, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if o.StartDate, err = models.ParseDate(startStr); err != nil {
		return nil, fmt.Errorf("parse override start date: %w", err)
	}
	if o.EndDate, err = models.ParseDate(endStr); err != nil {
		return nil, fmt.Errorf("parse override end date: %w", err)
	}
	if startSlot.Valid {
		v := int(startSlot.Int64)
		o.StartSlot = &v
	}
	if endSlot.Valid {
		v := int(endSlot.Int64)
		o.EndSlot = &v
	}
	return &o, nil
}

func collectOverrides(rows *sql.Rows) ([]models.Override, error) {
	defer rows.Close()
	var out []models.Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func nullableSlot(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateOverride inserts a new slot override.
func (db *DB) CreateOverride(ctx context.Context, o *models.Override) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO slot_overrides (machine_name, status, start_date, end_date, start_slot, end_slot, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.MachineName, o.Status,
		models.FormatDate(o.StartDate), models.FormatDate(o.EndDate),
		nullableSlot(o.StartSlot), nullableSlot(o.EndSlot),
		o.CreatedBy, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create override: %w", err)
	}
	o.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// GetOverride looks an override up by id.
func (db *DB) GetOverride(ctx context.Context, id int64) (*models.Override, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+overrideColumns+` FROM slot_overrides WHERE id = ?`, id)
	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("override %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}
	return o, nil
}

// UpdateOverride persists a modified override.
func (db *DB) UpdateOverride(ctx context.Context, o *models.Override) error {
	result, err := db.ExecContext(ctx, `
		UPDATE slot_overrides
		SET status = ?, start_date = ?, end_date = ?, start_slot = ?, end_slot = ?
		WHERE id = ?`,
		o.Status, models.FormatDate(o.StartDate), models.FormatDate(o.EndDate),
		nullableSlot(o.StartSlot), nullableSlot(o.EndSlot), o.ID)
	if err != nil {
		return fmt.Errorf("update override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("override %d: %w", o.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteOverride removes an override by id.
func (db *DB) DeleteOverride(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM slot_overrides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("override %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// SearchOverrides returns overrides filtered by machine and active date
// window. A zero time disables that bound; machine "" matches all.
func (db *DB) SearchOverrides(ctx context.Context, machine string, from, to time.Time) ([]models.Override, error) {
	query := `SELECT ` + overrideColumns + ` FROM slot_overrides WHERE 1=1`
	var args []any
	if machine != "" {
		query += ` AND machine_name = ?`
		args = append(args, machine)
	}
	if !from.IsZero() {
		query += ` AND end_date >= ?`
		args = append(args, models.FormatDate(from))
	}
	if !to.IsZero() {
		query += ` AND start_date <= ?`
		args = append(args, models.FormatDate(to))
	}
	query += ` ORDER BY start_date, machine_name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search overrides: %w", err)
	}
	return collectOverrides(rows)
}

// OverridesForDate returns the machine's overrides active on the date.
func (db *DB) OverridesForDate(ctx context.Context, machine string, date time.Time) ([]models.Override, error) {
	return db.SearchOverrides(ctx, machine, date, date)
}
