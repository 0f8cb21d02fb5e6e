package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waschplan/internal/models"
)

// ListMachines returns all machines, ordered by name.
func (db *DB) ListMachines(ctx context.Context) ([]models.Machine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, type, slot_duration, created_at FROM machines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	var machines []models.Machine
	for rows.Next() {
		var m models.Machine
		if err := rows.Scan(&m.Name, &m.Type, &m.SlotDuration, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// GetMachine looks a machine up by name.
func (db *DB) GetMachine(ctx context.Context, name string) (*models.Machine, error) {
	var m models.Machine
	err := db.QueryRowContext(ctx,
		`SELECT name, type, slot_duration, created_at FROM machines WHERE name = ?`,
		name,
	).Scan(&m.Name, &m.Type, &m.SlotDuration, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("machine %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}
	return &m, nil
}

// CreateMachine inserts a new machine. Duplicate names fail validation.
func (db *DB) CreateMachine(ctx context.Context, m *models.Machine) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM machines WHERE name = ?`, m.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check machine: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: machine %q already exists", models.ErrValidation, m.Name)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO machines (name, type, slot_duration, created_at) VALUES (?, ?, ?, ?)`,
		m.Name, m.Type, m.SlotDuration, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create machine: %w", err)
	}
	return nil
}

// DeleteMachine removes a machine. Deletion is rejected while the
// machine still has reservations at or after the given date, so that
// no reservation is silently orphaned.
func (db *DB) DeleteMachine(ctx context.Context, name string, from time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM machines WHERE name = ?`, name).Scan(&exists); err != nil {
		return fmt.Errorf("check machine: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("machine %q: %w", name, models.ErrNotFound)
	}

	var future int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE machine_name = ? AND date >= ?`,
		name, models.FormatDate(from),
	).Scan(&future)
	if err != nil {
		return fmt.Errorf("check future bookings: %w", err)
	}
	if future > 0 {
		return fmt.Errorf("%w: machine %q still has %d upcoming bookings",
			models.ErrValidation, name, future)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM slot_overrides WHERE machine_name = ?`, name); err != nil {
		return fmt.Errorf("delete overrides: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM machines WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete machine: %w", err)
	}
	return tx.Commit()
}
