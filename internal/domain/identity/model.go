package identity

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// User maps to the app_user table. Patients and admins share the table; the
// role column decides what the booking state machine lets them do.
type User struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	FullName             string    `db:"full_name" json:"full_name"`
	Email                string    `db:"email" json:"email"`
	Phone                *string   `db:"phone" json:"phone,omitempty"`
	IdentificationNumber string    `db:"identification_number" json:"identification_number"`
	Role                 auth.Role `db:"role" json:"role"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

var identificationNumberPattern = regexp.MustCompile(`^[0-9]{6,14}$`)

// ValidIdentificationNumber reports whether s looks like a human-facing
// identification number: digits only, 6 to 14 of them.
func ValidIdentificationNumber(s string) bool {
	return identificationNumberPattern.MatchString(s)
}
