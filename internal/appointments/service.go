package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebridge/telehealth-platform/internal/credits"
	"github.com/carebridge/telehealth-platform/internal/postgres"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

var apptTracer = otel.Tracer("carebridge.internal.appointments")

// CancelCutoff is the default for how long before the start the
// cancellation window closes. It applies to both the patient and the
// doctor.
const CancelCutoff = 30 * time.Minute

// Notifier is told about cancellations after they commit. Notification is
// best effort and runs outside the request path.
type Notifier interface {
	AppointmentCancelled(ctx context.Context, appt *Appointment, refundedCredits int)
}

// CancelObserver records cancellation outcomes for metrics.
type CancelObserver interface {
	ObserveCancellation(outcome string)
}

// Service owns appointment lifecycle transitions. Cancellation refunds the
// credit charge in the same database transaction that flips the status.
type Service struct {
	pool     postgres.Pool
	repo     *Repository
	credits  *credits.Repository
	notifier Notifier
	observer CancelObserver
	logger   *logging.Logger
	cost     int
	cutoff   time.Duration
	now      func() time.Time
}

// NewService constructs an appointment lifecycle service.
func NewService(pool postgres.Pool, repo *Repository, creditsRepo *credits.Repository, cost int, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if creditsRepo == nil {
		panic("appointments: credits repository required")
	}
	if cost <= 0 {
		cost = credits.AppointmentCost
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		pool:    pool,
		repo:    repo,
		credits: creditsRepo,
		logger:  logger.Component("appointments"),
		cost:    cost,
		cutoff:  CancelCutoff,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithNotifier attaches a cancellation notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithObserver attaches a cancellation metrics observer.
func (s *Service) WithObserver(o CancelObserver) *Service {
	s.observer = o
	return s
}

// WithCancelCutoff overrides how long before the start cancellation
// closes. Non-positive values keep the default.
func (s *Service) WithCancelCutoff(cutoff time.Duration) *Service {
	if cutoff > 0 {
		s.cutoff = cutoff
	}
	return s
}

// Cancel moves a SCHEDULED appointment to CANCELLED and refunds the credit
// charge atomically. Either assigned party may cancel until the cutoff
// before the start, 30 minutes unless configured otherwise.
func (s *Service) Cancel(ctx context.Context, actorID, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.cancel(ctx, actorID, appointmentID)
	if s.observer != nil {
		s.observer.ObserveCancellation(cancelOutcome(err))
	}
	return appt, err
}

func (s *Service) cancel(ctx context.Context, actorID, appointmentID uuid.UUID) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment_id", appointmentID.String()))

	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.IsParty(actorID) {
		return nil, ErrForbidden
	}
	if appt.Status != StatusScheduled {
		return nil, ErrAlreadyTerminal
	}
	if s.now().After(appt.StartTime.Add(-s.cutoff)) {
		return nil, ErrTooLateToCancel
	}

	err = postgres.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.repo.MarkCancelled(ctx, tx, appointmentID); err != nil {
			return err
		}
		return s.credits.Refund(ctx, tx, appt.PatientID, appt.DoctorID, s.cost)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	appt.Status = StatusCancelled
	s.logger.Info("appointment cancelled",
		"appointment_id", appointmentID,
		"actor_id", actorID,
		"refund", s.cost,
	)
	if s.notifier != nil {
		go s.notifier.AppointmentCancelled(context.WithoutCancel(ctx), appt, s.cost)
	}
	return appt, nil
}

// Complete marks a SCHEDULED appointment COMPLETED. Only the assigned
// doctor may complete, and only once the end time has passed.
func (s *Service) Complete(ctx context.Context, actorID, appointmentID uuid.UUID) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.complete")
	defer span.End()
	span.SetAttributes(attribute.String("appointment_id", appointmentID.String()))

	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != actorID {
		return nil, ErrForbidden
	}
	if appt.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}
	if s.now().Before(appt.EndTime) {
		return nil, ErrTooEarly
	}

	if err := s.repo.MarkCompleted(ctx, nil, appointmentID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	appt.Status = StatusCompleted
	s.logger.Info("appointment completed", "appointment_id", appointmentID, "doctor_id", actorID)
	return appt, nil
}

// AddNotes overwrites the doctor's notes. Allowed in any non-CANCELLED
// state, including COMPLETED.
func (s *Service) AddNotes(ctx context.Context, actorID, appointmentID uuid.UUID, notes string) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != actorID {
		return nil, ErrForbidden
	}

	if err := s.repo.UpdateNotes(ctx, appointmentID, notes); err != nil {
		return nil, err
	}
	appt.Notes = notes
	return appt, nil
}

func cancelOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTooLateToCancel):
		return "too_late"
	case errors.Is(err, ErrAlreadyTerminal):
		return "already_terminal"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
