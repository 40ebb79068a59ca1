package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/redis"
)

// Clock abstracts the current time so past-slot checks are testable with
// fixed timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

// IdentityResolver maps a human-facing identification number to exactly one
// patient account. Satisfied by identity.Service.
type IdentityResolver interface {
	Resolve(ctx context.Context, idNumber string) (*identity.User, error)
}

type Service struct {
	appts      Repository
	identities IdentityResolver
	locks      redis.Locker
	clock      Clock
	log        zerolog.Logger
}

func NewService(appts Repository, identities IdentityResolver, locks redis.Locker, clock Clock, log zerolog.Logger) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	if locks == nil {
		locks = redis.NoopLocker{}
	}
	return &Service{
		appts:      appts,
		identities: identities,
		locks:      locks,
		clock:      clock,
		log:        log.With().Str("component", "appointment").Logger(),
	}
}

type CreateInput struct {
	Start                       time.Time
	End                         time.Time
	Status                      Status
	PatientIdentificationNumber string
	Type                        Type
	Location                    *string
	MeetingLink                 *string
}

type UpdateInput struct {
	ID uuid.UUID
	CreateInput
}

type BookInput struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Type          Type
	Location      *string
	MeetingLink   *string
}

// Create inserts a new slot, optionally pre-booked for a patient resolved by
// identification number. The conflict check and the insert run in one
// transaction so a concurrent create cannot slip an overlapping row between
// them.
func (s *Service) Create(ctx context.Context, caller auth.Caller, in CreateInput) (*Appointment, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	a, err := s.buildRow(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.appts.InTx(ctx, func(ctx context.Context) error {
		overlap, err := s.appts.HasOverlap(ctx, a.StartTime, a.EndTime, nil)
		if err != nil {
			return s.storeFailure(CodeServerError, "conflict check failed", err)
		}
		if overlap {
			return newError(CodeConflict, "interval overlaps an existing appointment")
		}
		if err := s.appts.Create(ctx, a); err != nil {
			if errors.Is(err, ErrOverlap) {
				return newError(CodeConflict, "interval overlaps an existing appointment")
			}
			return s.storeFailure(CodeServerError, "could not create appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.asCommandError(err, CodeServerError)
	}
	return a, nil
}

// Update overwrites a slot wholesale. The row being edited is excluded from
// its own conflict check.
func (s *Service) Update(ctx context.Context, caller auth.Caller, in UpdateInput) (*Appointment, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	if in.ID == uuid.Nil {
		return nil, newError(CodeInvalidInput, "appointment id is required")
	}
	a, err := s.buildRow(ctx, in.CreateInput)
	if err != nil {
		return nil, err
	}
	a.ID = in.ID

	err = s.appts.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.appts.GetByID(ctx, in.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(CodeAppointmentNotFound, "appointment not found")
			}
			return s.storeFailure(CodeServerError, "could not load appointment", err)
		}
		overlap, err := s.appts.HasOverlap(ctx, a.StartTime, a.EndTime, &in.ID)
		if err != nil {
			return s.storeFailure(CodeServerError, "conflict check failed", err)
		}
		if overlap {
			return newError(CodeConflict, "interval overlaps an existing appointment")
		}
		if err := s.appts.Overwrite(ctx, a); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(CodeAppointmentNotFound, "appointment not found")
			}
			if errors.Is(err, ErrOverlap) {
				return newError(CodeConflict, "interval overlaps an existing appointment")
			}
			return s.storeFailure(CodeServerError, "could not update appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.asCommandError(err, CodeServerError)
	}
	return s.reload(ctx, a)
}

// Book transitions an available future slot to booked for the caller. The
// availability check and the transition are one conditional write, so two
// concurrent attempts on the same slot cannot both succeed; the per-slot lock
// keeps the losing request from even issuing the write under load.
func (s *Service) Book(ctx context.Context, caller auth.Caller, in BookInput) (*Appointment, error) {
	if caller.IsZero() {
		return nil, newError(CodeUnauthenticated, "authentication required")
	}
	if in.PatientID != caller.UserID {
		return nil, newError(CodeForbidden, "cannot book on behalf of another patient")
	}
	if in.AppointmentID == uuid.Nil {
		return nil, newError(CodeInvalidInput, "appointment id is required")
	}
	if !in.Type.Valid() {
		return nil, newError(CodeInvalidInput, "appointment type must be in-person or virtual")
	}

	var booked *Appointment
	err := s.locks.WithLock(ctx, in.AppointmentID, func(ctx context.Context) error {
		a, err := s.appts.Book(ctx, in.AppointmentID, BookParams{
			PatientID:   in.PatientID,
			Type:        in.Type,
			Location:    in.Location,
			MeetingLink: in.MeetingLink,
		}, s.clock.Now())
		if err != nil {
			if errors.Is(err, ErrNotBookable) {
				return s.classifyBookFailure(ctx, in.AppointmentID)
			}
			return s.storeFailure(CodeServerError, "could not book appointment", err)
		}
		booked = a
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, newError(CodeAlreadyBooked, "appointment is being booked by another request")
		}
		return nil, s.asCommandError(err, CodeServerError)
	}
	return booked, nil
}

// classifyBookFailure re-reads the row after a zero-row conditional update to
// report why the transition was refused.
func (s *Service) classifyBookFailure(ctx context.Context, id uuid.UUID) error {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(CodeNotFound, "appointment not found")
		}
		return s.storeFailure(CodeServerError, "could not load appointment", err)
	}
	if a.IsBooked() {
		return newError(CodeAlreadyBooked, "appointment is already booked")
	}
	if !a.StartTime.After(s.clock.Now()) {
		return newError(CodePastAppointment, "appointment start is in the past")
	}
	return newError(CodeAlreadyBooked, "appointment is not available")
}

// Cancel reverts the caller's own booking to available, clearing the booking
// fields. Ownership is part of the conditional write.
func (s *Service) Cancel(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Appointment, error) {
	if caller.IsZero() {
		return nil, newError(CodeUnauthenticated, "authentication required")
	}
	a, err := s.appts.Cancel(ctx, id, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrNotCancellable) {
			return nil, s.classifyCancelFailure(ctx, id)
		}
		return nil, s.storeFailure(CodeInternalServerError, "could not cancel appointment", err)
	}
	return a, nil
}

func (s *Service) classifyCancelFailure(ctx context.Context, id uuid.UUID) *Error {
	_, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(CodeNotFound, "appointment not found")
		}
		return s.storeFailure(CodeInternalServerError, "could not load appointment", err)
	}
	return newError(CodeForbidden, "appointment is not booked by the caller")
}

func (s *Service) Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.appts.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(CodeNotFound, "appointment not found")
		}
		return s.storeFailure(CodeInternalServerError, "could not delete appointment", err)
	}
	return nil
}

// Get returns the admin view of a slot with patient contact details.
func (s *Service) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Detail, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	d, err := s.appts.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(CodeNotFound, "appointment not found")
		}
		return nil, s.storeFailure(CodeServerError, "could not load appointment", err)
	}
	return d, nil
}

// List returns the calendar feed. Admins see the full history; everyone else
// sees only slots starting at or after now.
func (s *Service) List(ctx context.Context, caller auth.Caller, limit, offset int) ([]*Appointment, int, error) {
	if caller.IsZero() {
		return nil, 0, newError(CodeUnauthenticated, "authentication required")
	}
	var from *time.Time
	if !caller.IsAdmin() {
		now := s.clock.Now()
		from = &now
	}
	items, total, err := s.appts.List(ctx, from, limit, offset)
	if err != nil {
		return nil, 0, s.storeFailure(CodeServerError, "could not list appointments", err)
	}
	return items, total, nil
}

// ListForUser returns a patient's own bookings. Admins may inspect any
// patient's list.
func (s *Service) ListForUser(ctx context.Context, caller auth.Caller, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	if caller.IsZero() {
		return nil, 0, newError(CodeUnauthenticated, "authentication required")
	}
	if !caller.IsAdmin() && caller.UserID != userID {
		return nil, 0, newError(CodeForbidden, "cannot view another patient's appointments")
	}
	items, total, err := s.appts.ListByPatient(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, s.storeFailure(CodeServerError, "could not list appointments", err)
	}
	return items, total, nil
}

// ListIncoming returns the admin dashboard of future booked appointments with
// patient contact details.
func (s *Service) ListIncoming(ctx context.Context, caller auth.Caller, limit, offset int) ([]*IncomingAppointment, int, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, 0, err
	}
	items, total, err := s.appts.ListIncoming(ctx, s.clock.Now(), limit, offset)
	if err != nil {
		return nil, 0, s.storeFailure(CodeServerError, "could not list incoming appointments", err)
	}
	return items, total, nil
}

// buildRow validates admin-shaped input and resolves the patient reference,
// producing a row that satisfies the booked/available consistency invariant.
func (s *Service) buildRow(ctx context.Context, in CreateInput) (*Appointment, error) {
	if in.Start.IsZero() || in.End.IsZero() {
		return nil, newError(CodeInvalidInput, "start and end are required")
	}
	if !in.Start.Before(in.End) {
		return nil, newError(CodeInvalidInput, "start must be before end")
	}
	if !in.Status.Valid() {
		return nil, newError(CodeInvalidInput, "status must be available or booked")
	}

	a := &Appointment{
		StartTime: in.Start,
		EndTime:   in.End,
		Status:    in.Status,
	}
	if in.Status == StatusBooked {
		if in.PatientIdentificationNumber == "" {
			return nil, newError(CodeInvalidInput, "patient identification number is required for a booked appointment")
		}
		if !in.Type.Valid() {
			return nil, newError(CodeInvalidInput, "appointment type must be in-person or virtual")
		}
		patient, err := s.identities.Resolve(ctx, in.PatientIdentificationNumber)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return nil, newError(CodeUserNotFound, "no account matches the identification number")
			}
			return nil, s.storeFailure(CodeServerError, "could not resolve patient", err)
		}
		typ := in.Type
		a.PatientID = &patient.ID
		a.Type = &typ
		a.Location = in.Location
		a.MeetingLink = in.MeetingLink
	}
	return a, nil
}

func (s *Service) reload(ctx context.Context, a *Appointment) (*Appointment, error) {
	fresh, err := s.appts.GetByID(ctx, a.ID)
	if err != nil {
		// The write committed; fall back to the row we assembled.
		return a, nil
	}
	return fresh, nil
}

func (s *Service) requireAdmin(caller auth.Caller) *Error {
	if caller.IsZero() {
		return newError(CodeUnauthenticated, "authentication required")
	}
	if !caller.IsAdmin() {
		return newError(CodeForbidden, "admin role required")
	}
	return nil
}

// storeFailure logs the underlying cause and returns a generic typed error so
// no store detail reaches the caller.
func (s *Service) storeFailure(code Code, message string, cause error) *Error {
	s.log.Error().Err(cause).Msg(message)
	return wrapError(code, message, cause)
}

// asCommandError normalizes errors escaping a transaction closure: typed
// errors pass through, anything else is an infrastructure failure.
func (s *Service) asCommandError(err error, fallback Code) error {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return s.storeFailure(fallback, "operation failed", err)
}
