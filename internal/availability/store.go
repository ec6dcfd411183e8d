package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/telehealth-platform/internal/postgres"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Store persists availability windows.
type Store struct {
	pool   postgres.Pool
	logger *logging.Logger
}

// NewStore creates a store backed by pgx.
func NewStore(pool postgres.Pool, logger *logging.Logger) *Store {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{pool: pool, logger: logger.Component("availability")}
}

const windowColumns = `id, doctor_id, start_time, end_time, status, created_at`

// SetWindow replaces the doctor's availability in one transaction: windows
// with no appointment booked off them are deleted, any remaining AVAILABLE
// window is marked SUPERSEDED, and the new window is inserted AVAILABLE.
// Slots previously advertised from deleted windows stop being offered from
// this point.
func (s *Store) SetWindow(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*Window, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	var w *Window
	err := postgres.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM availability_windows
			WHERE doctor_id = $1
			  AND id NOT IN (
				SELECT window_id FROM appointments WHERE window_id IS NOT NULL
			  )
		`, doctorID)
		if err != nil {
			return fmt.Errorf("availability: delete unused windows: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE availability_windows
			SET status = $1
			WHERE doctor_id = $2 AND status = $3
		`, StatusSuperseded, doctorID, StatusAvailable)
		if err != nil {
			return fmt.Errorf("availability: supersede windows: %w", err)
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO availability_windows (id, doctor_id, start_time, end_time, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+windowColumns,
			uuid.New(), doctorID, start, end, StatusAvailable,
		)
		w, err = scanWindow(row)
		if err != nil {
			return fmt.Errorf("availability: insert window: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("availability window set",
		"doctor_id", doctorID,
		"window_id", w.ID,
		"start", w.StartTime,
		"end", w.EndTime,
	)
	return w, nil
}

// GetWindow returns the doctor's current AVAILABLE window, or ErrNoWindow.
func (s *Store) GetWindow(ctx context.Context, doctorID uuid.UUID) (*Window, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, doctorID, StatusAvailable)

	w, err := scanWindow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoWindow
		}
		return nil, fmt.Errorf("availability: select window: %w", err)
	}
	return w, nil
}

// ListWindows returns every window for the doctor, newest first. Retained
// superseded windows are included so the dashboard can show history.
func (s *Store) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*Window, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY created_at DESC
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("availability: list windows: %w", err)
	}
	defer rows.Close()

	var windows []*Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("availability: scan window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: list windows: %w", err)
	}
	return windows, nil
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	if err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.StartTime,
		&w.EndTime,
		&w.Status,
		&w.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}
