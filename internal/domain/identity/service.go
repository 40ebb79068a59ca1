package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// ErrInvalidUser wraps input validation failures so handlers can tell them
// apart from storage errors.
var ErrInvalidUser = errors.New("invalid user")

type Service struct {
	users Repository
}

func NewService(users Repository) *Service {
	return &Service{users: users}
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	u.FullName = strings.TrimSpace(u.FullName)
	if u.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidUser)
	}
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if !ValidIdentificationNumber(u.IdentificationNumber) {
		return fmt.Errorf("%w: identification_number must be 6-14 digits", ErrInvalidUser)
	}
	if u.Role == "" {
		u.Role = auth.RolePatient
	}
	if u.Role != auth.RoleAdmin && u.Role != auth.RolePatient {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidUser, u.Role)
	}
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// Resolve maps a human-facing identification number to exactly one account.
// An ambiguous match is reported as not-found so the caller cannot probe for
// duplicate registrations.
func (s *Service) Resolve(ctx context.Context, idNumber string) (*User, error) {
	u, err := s.users.FindByIdentificationNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, ErrAmbiguousIdentity) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}
