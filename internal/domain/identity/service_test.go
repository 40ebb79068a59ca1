package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type mockUserRepo struct {
	byID       map[uuid.UUID]*User
	byIDNumber map[string][]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:       make(map[uuid.UUID]*User),
		byIDNumber: make(map[string][]*User),
	}
}

func (m *mockUserRepo) add(u *User) *User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.byID[u.ID] = u
	m.byIDNumber[u.IdentificationNumber] = append(m.byIDNumber[u.IdentificationNumber], u)
	return u
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.byID {
		if existing.IdentificationNumber == u.IdentificationNumber {
			return ErrDuplicateIdentity
		}
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	m.add(u)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) FindByIdentificationNumber(_ context.Context, idNumber string) (*User, error) {
	matches := m.byIDNumber[idNumber]
	switch len(matches) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousIdentity
	}
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	all := make([]*User, 0, len(m.byID))
	for _, u := range m.byID {
		all = append(all, u)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMockUserRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		user User
	}{
		{"empty name", User{Email: "a@b.se", IdentificationNumber: "198001011234"}},
		{"empty email", User{FullName: "Ann", IdentificationNumber: "198001011234"}},
		{"short id number", User{FullName: "Ann", Email: "a@b.se", IdentificationNumber: "12345"}},
		{"non-numeric id number", User{FullName: "Ann", Email: "a@b.se", IdentificationNumber: "19800101-123"}},
		{"unknown role", User{FullName: "Ann", Email: "a@b.se", IdentificationNumber: "198001011234", Role: "doctor"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			err := svc.CreateUser(ctx, &u)
			if !errors.Is(err, ErrInvalidUser) {
				t.Fatalf("expected ErrInvalidUser, got %v", err)
			}
		})
	}
}

func TestCreateUserDefaultsRole(t *testing.T) {
	svc := NewService(newMockUserRepo())
	u := &User{FullName: "Ann Larsson", Email: "ann@example.com", IdentificationNumber: "198001011234"}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Role != auth.RolePatient {
		t.Fatalf("expected default role patient, got %s", u.Role)
	}
}

func TestResolveSingleMatch(t *testing.T) {
	repo := newMockUserRepo()
	want := repo.add(&User{FullName: "Ann", Email: "ann@example.com", IdentificationNumber: "198001011234"})
	svc := NewService(repo)

	got, err := svc.Resolve(context.Background(), "198001011234")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("resolved wrong user: got %s want %s", got.ID, want.ID)
	}
}

func TestResolveMissingIsNotFound(t *testing.T) {
	svc := NewService(newMockUserRepo())
	_, err := svc.Resolve(context.Background(), "190001019999")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResolveAmbiguousIsNotFound(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&User{FullName: "A", Email: "a@example.com", IdentificationNumber: "198001011234"})
	repo.add(&User{FullName: "B", Email: "b@example.com", IdentificationNumber: "198001011234"})
	svc := NewService(repo)

	_, err := svc.Resolve(context.Background(), "198001011234")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ambiguous identity must surface as not-found, got %v", err)
	}
}
