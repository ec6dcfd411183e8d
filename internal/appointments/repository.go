package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/telehealth-platform/internal/postgres"
	"github.com/carebridge/telehealth-platform/internal/schedule"
)

// Repository persists appointments. Write methods take the caller's querier
// so they can run inside the booking or cancellation unit of work.
type Repository struct {
	pool postgres.Pool
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool postgres.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{pool: pool}
}

const apptColumns = `id, patient_id, doctor_id, window_id, start_time, end_time, status, patient_description, notes, video_session_id, created_at`

// CreateParams describes a new SCHEDULED appointment.
type CreateParams struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	WindowID       *uuid.UUID
	Start          time.Time
	End            time.Time
	Description    string
	VideoSessionID string
}

// Create validates the slot, re-checks overlap against SCHEDULED
// appointments with the same predicate slot generation uses, and inserts.
// Run it inside a serializable transaction: the overlap check and the
// insert must not interleave with a racing booking.
func (r *Repository) Create(ctx context.Context, q postgres.Querier, p CreateParams) (*Appointment, error) {
	if !p.Start.Before(p.End) || p.End.Sub(p.Start) != Duration {
		return nil, ErrInvalidRange
	}
	if p.PatientID == p.DoctorID {
		return nil, ErrSelfBooking
	}

	conflict, err := r.HasOverlap(ctx, q, p.DoctorID, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrOverlapConflict
	}

	row := q.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, doctor_id, window_id, start_time, end_time, status, patient_description, video_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))
		RETURNING `+apptColumns,
		uuid.New(), p.PatientID, p.DoctorID, p.WindowID, p.Start, p.End,
		StatusScheduled, p.Description, p.VideoSessionID,
	)
	appt, err := scanAppointment(row)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrOverlapConflict
		}
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return appt, nil
}

// HasOverlap mirrors schedule.Overlaps in SQL over the doctor's SCHEDULED
// appointments: conflict iff start < existing.end AND end > existing.start.
func (r *Repository) HasOverlap(ctx context.Context, q postgres.Querier, doctorID uuid.UUID, start, end time.Time) (bool, error) {
	if q == nil {
		q = r.pool
	}
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status = $2
			  AND start_time < $4
			  AND end_time > $3
		)
	`, doctorID, StatusScheduled, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: overlap check: %w", err)
	}
	return exists, nil
}

// Get fetches one appointment.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apptColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return appt, nil
}

// ListScheduledForDoctor returns the doctor's SCHEDULED appointments ordered
// by start time. Slot generation feeds these through ScheduledRanges.
func (r *Repository) ListScheduledForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND status = $2
		ORDER BY start_time ASC
	`, doctorID, StatusScheduled)
}

// ListForDoctor returns every appointment for the doctor dashboard.
func (r *Repository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY start_time ASC
	`, doctorID)
}

// ListForPatient returns every appointment for the patient dashboard.
func (r *Repository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time ASC
	`, patientID)
}

// MarkCancelled flips SCHEDULED to CANCELLED. The status guard in the WHERE
// clause is what makes concurrent cancel/complete resolve to a single
// winner; zero rows means the appointment was no longer SCHEDULED.
func (r *Repository) MarkCancelled(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	return r.transition(ctx, q, id, StatusCancelled, ErrAlreadyTerminal)
}

// MarkCompleted flips SCHEDULED to COMPLETED under the same guard.
func (r *Repository) MarkCompleted(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	return r.transition(ctx, q, id, StatusCompleted, ErrNotScheduled)
}

func (r *Repository) transition(ctx context.Context, q postgres.Querier, id uuid.UUID, to Status, guardErr error) error {
	if q == nil {
		q = r.pool
	}
	tag, err := q.Exec(ctx, `
		UPDATE appointments SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, StatusScheduled)
	if err != nil {
		return fmt.Errorf("appointments: transition to %s: %w", to, err)
	}
	if tag.RowsAffected() == 0 {
		return guardErr
	}
	return nil
}

// UpdateNotes overwrites the doctor notes. Notes stay editable until the
// appointment is cancelled.
func (r *Repository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET notes = $1 WHERE id = $2 AND status <> $3
	`, notes, id, StatusCancelled)
	if err != nil {
		return fmt.Errorf("appointments: update notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

// ScheduledRanges converts appointments to the generator's interval form.
func ScheduledRanges(appts []*Appointment) []schedule.TimeRange {
	ranges := make([]schedule.TimeRange, 0, len(appts))
	for _, a := range appts {
		ranges = append(ranges, schedule.TimeRange{Start: a.StartTime, End: a.EndTime})
	}
	return ranges
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a           Appointment
		description *string
		notes       *string
		sessionID   *string
	)
	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.WindowID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&description,
		&notes,
		&sessionID,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if description != nil {
		a.PatientDescription = *description
	}
	if notes != nil {
		a.Notes = *notes
	}
	if sessionID != nil {
		a.VideoSessionID = *sessionID
	}
	return &a, nil
}

// isExclusionViolation detects the schema's no-overlap exclusion constraint,
// the commit-time backstop behind the serializable booking transaction.
func isExclusionViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		// 23P01 exclusion_violation
		return pgErr.SQLState() == "23P01"
	}
	return false
}
