package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/telehealth-platform/internal/appointments"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

const apptTimeFormat = "Monday, January 2 at 3:04 PM"

// UserDirectory resolves notification recipients.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Service sends appointment lifecycle emails to both parties. Sending is
// best effort: a failed email never fails the booking or cancellation that
// triggered it, so errors are logged and swallowed.
type Service struct {
	email  EmailSender
	users  UserDirectory
	logger *logging.Logger
}

// NewService creates a notification service. A nil sender falls back to the
// logging stub.
func NewService(email EmailSender, directory UserDirectory, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{email: email, users: directory, logger: logger.Component("notify")}
}

// BookingConfirmed resolves both parties and emails them about the new
// appointment.
func (s *Service) BookingConfirmed(ctx context.Context, appt *appointments.Appointment) {
	patient, doctor, ok := s.resolve(ctx, appt)
	if !ok {
		return
	}
	s.SendBookingConfirmation(ctx, appt, patient, doctor)
}

// AppointmentCancelled resolves both parties and emails them about the
// cancellation and refund.
func (s *Service) AppointmentCancelled(ctx context.Context, appt *appointments.Appointment, refundedCredits int) {
	patient, doctor, ok := s.resolve(ctx, appt)
	if !ok {
		return
	}
	s.SendCancellation(ctx, appt, patient, doctor, refundedCredits)
}

// SendBookingConfirmation emails the patient and the doctor about a new
// appointment.
func (s *Service) SendBookingConfirmation(ctx context.Context, appt *appointments.Appointment, patient, doctor *users.User) {
	when := appt.StartTime.Format(apptTimeFormat)

	s.send(ctx, EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: "Your appointment is confirmed",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour video consultation with Dr. %s is confirmed for %s.\n\nYou can join the call from your dashboard at the scheduled time.",
			patient.Name, doctor.Name, when,
		),
	})

	s.send(ctx, EmailMessage{
		To:      doctor.Email,
		ToName:  doctor.Name,
		Subject: "New appointment booked",
		Body: fmt.Sprintf(
			"Hi Dr. %s,\n\n%s booked a video consultation for %s.",
			doctor.Name, patient.Name, when,
		),
	})
}

// SendCancellation emails both parties that the appointment was cancelled
// and the patient's credits refunded.
func (s *Service) SendCancellation(ctx context.Context, appt *appointments.Appointment, patient, doctor *users.User, refunded int) {
	when := appt.StartTime.Format(apptTimeFormat)

	s.send(ctx, EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: "Your appointment was cancelled",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour consultation with Dr. %s on %s was cancelled. %d credits have been returned to your account.",
			patient.Name, doctor.Name, when, refunded,
		),
	})

	s.send(ctx, EmailMessage{
		To:      doctor.Email,
		ToName:  doctor.Name,
		Subject: "Appointment cancelled",
		Body: fmt.Sprintf(
			"Hi Dr. %s,\n\nThe consultation with %s on %s was cancelled.",
			doctor.Name, patient.Name, when,
		),
	})
}

func (s *Service) resolve(ctx context.Context, appt *appointments.Appointment) (*users.User, *users.User, bool) {
	if s.users == nil {
		s.logger.Warn("notification skipped, no user directory configured", "appointment_id", appt.ID)
		return nil, nil, false
	}
	patient, err := s.users.GetByID(ctx, appt.PatientID)
	if err != nil {
		s.logger.Error("notification recipient lookup failed", "error", err, "user_id", appt.PatientID)
		return nil, nil, false
	}
	doctor, err := s.users.GetByID(ctx, appt.DoctorID)
	if err != nil {
		s.logger.Error("notification recipient lookup failed", "error", err, "user_id", appt.DoctorID)
		return nil, nil, false
	}
	return patient, doctor, true
}

func (s *Service) send(ctx context.Context, msg EmailMessage) {
	if msg.To == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notification send failed", "error", err, "to", msg.To, "subject", msg.Subject)
	}
}
