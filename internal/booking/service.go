package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carebridge/telehealth-platform/internal/appointments"
	"github.com/carebridge/telehealth-platform/internal/availability"
	"github.com/carebridge/telehealth-platform/internal/credits"
	"github.com/carebridge/telehealth-platform/internal/observability/metrics"
	"github.com/carebridge/telehealth-platform/internal/postgres"
	"github.com/carebridge/telehealth-platform/internal/schedule"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/internal/video"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Notifier is told about confirmed bookings after they commit. Notification
// is best effort and runs outside the request path.
type Notifier interface {
	BookingConfirmed(ctx context.Context, appt *appointments.Appointment)
}

// Service is the booking orchestrator: the one multi-entity write path.
// Book validates against current store state, obtains a video session, and
// then charges credits and inserts the appointment as a single serializable
// transaction, so two racing bookings for the same slot (or the same
// credits) cannot both commit.
type Service struct {
	pool        postgres.Pool
	users       *users.Repository
	windows     *availability.Store
	appts       *appointments.Repository
	credits     *credits.Repository
	video       video.Service
	cache       *SlotCache
	metrics     *metrics.BookingMetrics
	notifier    Notifier
	tracer      trace.Tracer
	logger      *logging.Logger
	cost        int
	horizonDays int
	joinGrace   time.Duration
	now         func() time.Time
}

// ServiceConfig wires the orchestrator's collaborators.
type ServiceConfig struct {
	Pool         postgres.Pool
	Users        *users.Repository
	Availability *availability.Store
	Appointments *appointments.Repository
	Credits      *credits.Repository
	Video        video.Service
	Cache        *SlotCache
	Metrics      *metrics.BookingMetrics
	Notifier     Notifier
	Logger       *logging.Logger

	// AppointmentCost defaults to credits.AppointmentCost.
	AppointmentCost int
	// HorizonDays defaults to schedule.DefaultHorizonDays.
	HorizonDays int
	// JoinGrace extends join-token validity past the appointment end.
	JoinGrace time.Duration
}

// NewService constructs the orchestrator.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Pool == nil {
		panic("booking: pgx pool required")
	}
	if cfg.Users == nil || cfg.Availability == nil || cfg.Appointments == nil || cfg.Credits == nil {
		panic("booking: repositories required")
	}
	if cfg.Video == nil {
		panic("booking: video service required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.AppointmentCost <= 0 {
		cfg.AppointmentCost = credits.AppointmentCost
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = schedule.DefaultHorizonDays
	}
	if cfg.JoinGrace <= 0 {
		cfg.JoinGrace = 15 * time.Minute
	}
	return &Service{
		pool:        cfg.Pool,
		users:       cfg.Users,
		windows:     cfg.Availability,
		appts:       cfg.Appointments,
		credits:     cfg.Credits,
		video:       cfg.Video,
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		notifier:    cfg.Notifier,
		tracer:      otel.Tracer("carebridge.internal.booking"),
		logger:      cfg.Logger.Component("booking"),
		cost:        cfg.AppointmentCost,
		horizonDays: cfg.HorizonDays,
		joinGrace:   cfg.JoinGrace,
		now:         time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListAvailableSlots returns the doctor's bookable slots for the horizon,
// keyed by day. A doctor with no AVAILABLE window yields empty lists, not
// an error; callers distinguish "no availability" via the availability
// store. Listings may be stale relative to concurrent bookings.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID) (map[string][]schedule.Slot, error) {
	started := s.now()

	if _, err := s.users.GetVerifiedDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	if slots, ok := s.cache.Get(ctx, doctorID); ok {
		return slots, nil
	}

	slots, err := s.generateSlots(ctx, doctorID, s.now())
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, doctorID, slots)
	s.metrics.ObserveSlotQuery(time.Since(started).Seconds())
	return slots, nil
}

func (s *Service) generateSlots(ctx context.Context, doctorID uuid.UUID, now time.Time) (map[string][]schedule.Slot, error) {
	window, err := s.windows.GetWindow(ctx, doctorID)
	if err != nil {
		if errors.Is(err, availability.ErrNoWindow) {
			return emptyHorizon(now, s.horizonDays), nil
		}
		return nil, err
	}

	booked, err := s.appts.ListScheduledForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	return schedule.GenerateSlots(
		window.StartTime, window.EndTime,
		appointments.ScheduledRanges(booked),
		now, s.horizonDays,
	), nil
}

// Book reserves a slot: role and verification checks, slot validation
// against the doctor's window, video session creation, then the atomic
// charge+insert. On any failure nothing is persisted; a session created for
// an aborted booking is abandoned unused.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, start, end time.Time, description string) (*appointments.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("patient_id", patientID.String()),
		attribute.String("doctor_id", doctorID.String()),
	)

	appt, err := s.book(ctx, patientID, doctorID, start, end, description)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking(bookingOutcome(err), 0)
		return nil, err
	}

	s.metrics.ObserveBooking("success", s.cost)
	s.cache.Invalidate(ctx, doctorID)
	if s.notifier != nil {
		go s.notifier.BookingConfirmed(context.WithoutCancel(ctx), appt)
	}
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"patient_id", patientID,
		"doctor_id", doctorID,
		"start", appt.StartTime,
	)
	return appt, nil
}

func (s *Service) book(ctx context.Context, patientID, doctorID uuid.UUID, start, end time.Time, description string) (*appointments.Appointment, error) {
	now := s.now()

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.Role != users.RolePatient {
		return nil, ErrNotPatient
	}
	if _, err := s.users.GetVerifiedDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if patientID == doctorID {
		return nil, appointments.ErrSelfBooking
	}
	if !start.Before(end) || end.Sub(start) != appointments.Duration {
		return nil, appointments.ErrInvalidRange
	}
	if !end.After(now) {
		// Mirrors the generator: a slot is gone once its end has passed.
		return nil, appointments.ErrInvalidRange
	}

	window, err := s.windows.GetWindow(ctx, doctorID)
	if err != nil {
		if errors.Is(err, availability.ErrNoWindow) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	if !slotOffered(window, start, end, now, s.horizonDays) {
		return nil, ErrSlotUnavailable
	}

	// Authoritative time-of-check; the transaction below re-checks under
	// serializable isolation.
	conflict, err := s.appts.HasOverlap(ctx, nil, doctorID, start, end)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, appointments.ErrOverlapConflict
	}

	sessionID, err := s.video.CreateSession(ctx)
	if err != nil {
		return nil, err
	}

	var appt *appointments.Appointment
	err = postgres.RunInSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.credits.Charge(ctx, tx, patientID, doctorID, s.cost); err != nil {
			return err
		}
		created, err := s.appts.Create(ctx, tx, appointments.CreateParams{
			PatientID:      patientID,
			DoctorID:       doctorID,
			WindowID:       &window.ID,
			Start:          start,
			End:            end,
			Description:    description,
			VideoSessionID: sessionID,
		})
		if err != nil {
			return err
		}
		appt = created
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			// The racing booking won; surface it like any other lost slot.
			return nil, appointments.ErrOverlapConflict
		}
		return nil, err
	}
	return appt, nil
}

// InvalidateSlots drops the doctor's cached slot listing. Called after a
// cancellation frees a slot so the next listing reflects it immediately.
func (s *Service) InvalidateSlots(ctx context.Context, doctorID uuid.UUID) {
	s.cache.Invalidate(ctx, doctorID)
}

// JoinToken mints the caller's join credentials for a SCHEDULED
// appointment. Doctors join as moderator, patients as publisher; tokens
// stay valid until the appointment end plus a grace period.
func (s *Service) JoinToken(ctx context.Context, actorID, appointmentID uuid.UUID) (string, string, error) {
	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return "", "", err
	}
	if !appt.IsParty(actorID) {
		return "", "", appointments.ErrForbidden
	}
	if appt.Status != appointments.StatusScheduled {
		return "", "", appointments.ErrNotScheduled
	}
	if appt.VideoSessionID == "" {
		return "", "", fmt.Errorf("%w: appointment has no session", video.ErrVideoService)
	}

	role := video.RolePublisher
	if actorID == appt.DoctorID {
		role = video.RoleModerator
	}
	expiry := appt.EndTime.Add(s.joinGrace)
	token, err := s.video.GenerateToken(appt.VideoSessionID, role, expiry, "user="+actorID.String())
	if err != nil {
		return "", "", err
	}
	return appt.VideoSessionID, token, nil
}

// slotOffered checks the requested range against the grid the window
// currently advertises, ignoring existing bookings (the transaction owns
// that check).
func slotOffered(window *availability.Window, start, end, now time.Time, horizonDays int) bool {
	offered := schedule.GenerateSlots(window.StartTime, window.EndTime, nil, now, horizonDays)
	for _, slots := range offered {
		for _, slot := range slots {
			if slot.StartTime.Equal(start) && slot.EndTime.Equal(end) {
				return true
			}
		}
	}
	return false
}

func emptyHorizon(now time.Time, horizonDays int) map[string][]schedule.Slot {
	out := make(map[string][]schedule.Slot, horizonDays)
	for _, key := range schedule.DayKeys(now, horizonDays) {
		out[key] = []schedule.Slot{}
	}
	return out
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, appointments.ErrOverlapConflict):
		return "overlap_conflict"
	case errors.Is(err, credits.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, video.ErrVideoService):
		return "video_error"
	default:
		return "error"
	}
}

// isSerializationFailure detects postgres aborting one of two racing
// serializable transactions.
func isSerializationFailure(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure
		return pgErr.SQLState() == "40001"
	}
	return false
}
