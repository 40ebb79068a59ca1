package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrAmbiguousIdentity is returned when an identification number matches
	// more than one account. Callers treat it the same as not-found.
	ErrAmbiguousIdentity = errors.New("identification number matches multiple users")
	ErrDuplicateIdentity = errors.New("identification number already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByIdentificationNumber returns the single user carrying the given
	// identification number, ErrUserNotFound when none does, and
	// ErrAmbiguousIdentity when more than one does.
	FindByIdentificationNumber(ctx context.Context, idNumber string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}
