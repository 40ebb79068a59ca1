package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the target appointment row does not exist.
	ErrNotFound = errors.New("appointment not found")
	// ErrNotBookable is returned by Book when the conditional transition
	// matched no row: the slot is gone, already booked, or in the past.
	ErrNotBookable = errors.New("appointment not bookable")
	// ErrNotCancellable is returned by Cancel when the conditional transition
	// matched no row: the slot is gone, not booked, or booked by someone else.
	ErrNotCancellable = errors.New("appointment not cancellable")
	// ErrOverlap is returned when the store's exclusion constraint rejects an
	// interval that slipped past the application-level conflict check.
	ErrOverlap = errors.New("appointment interval overlaps")
)

// BookParams carries everything the booked state needs set in one write.
type BookParams struct {
	PatientID   uuid.UUID
	Type        Type
	Location    *string
	MeetingLink *string
}

// Repository is the slot store. Book and Cancel perform their status check
// and transition as a single conditional write so concurrent requests cannot
// both observe the same slot as free.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	Overwrite(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// HasOverlap reports whether any row's half-open interval intersects
	// [start, end), excluding the row identified by excludeID when non-nil.
	HasOverlap(ctx context.Context, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	// Book atomically transitions an available, future slot to booked.
	Book(ctx context.Context, id uuid.UUID, p BookParams, now time.Time) (*Appointment, error)
	// Cancel atomically reverts a slot booked by patientID to available.
	Cancel(ctx context.Context, id uuid.UUID, patientID uuid.UUID) (*Appointment, error)

	// List returns appointments starting at or after from, oldest first.
	// A nil from returns everything.
	List(ctx context.Context, from *time.Time, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListIncoming returns future booked appointments with patient contact
	// details, soonest first.
	ListIncoming(ctx context.Context, now time.Time, limit, offset int) ([]*IncomingAppointment, int, error)

	// InTx runs fn with every repository call inside one transaction.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
