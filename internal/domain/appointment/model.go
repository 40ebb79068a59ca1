package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
)

func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusBooked
}

type Type string

const (
	TypeInPerson Type = "in-person"
	TypeVirtual  Type = "virtual"
)

func (t Type) Valid() bool {
	return t == TypeInPerson || t == TypeVirtual
}

// Appointment is a single bookable slot. A booked slot always carries both a
// patient and a type; an available slot carries neither.
type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StartTime   time.Time  `db:"start_time" json:"startTime"`
	EndTime     time.Time  `db:"end_time" json:"endTime"`
	Status      Status     `db:"status" json:"status"`
	PatientID   *uuid.UUID `db:"patient_id" json:"patientId,omitempty"`
	Type        *Type      `db:"type" json:"type,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	MeetingLink *string    `db:"meeting_link" json:"meetingLink,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

func (a *Appointment) IsBooked() bool {
	return a.Status == StatusBooked
}

// CheckConsistency enforces the structural invariants every stored row must
// satisfy: a valid interval and patient/type set exactly when booked.
func (a *Appointment) CheckConsistency() error {
	if !a.StartTime.Before(a.EndTime) {
		return fmt.Errorf("start_time must be before end_time")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	switch a.Status {
	case StatusBooked:
		if a.PatientID == nil {
			return fmt.Errorf("booked appointment requires a patient")
		}
		if a.Type == nil {
			return fmt.Errorf("booked appointment requires a type")
		}
		if !a.Type.Valid() {
			return fmt.Errorf("invalid appointment type: %s", *a.Type)
		}
	case StatusAvailable:
		if a.PatientID != nil || a.Type != nil {
			return fmt.Errorf("available appointment must not carry patient or type")
		}
	}
	return nil
}

// Overlaps reports whether the half-open intervals of two appointments
// intersect. Edge-touching intervals do not overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}

// PatientContact is the slice of a patient account the scheduling side is
// allowed to see.
type PatientContact struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Phone    *string   `json:"phone,omitempty"`
}

// Detail is the admin view of a single appointment, with the booking
// patient's contact details attached when booked.
type Detail struct {
	Appointment
	Patient *PatientContact `json:"patient,omitempty"`
}

// IncomingAppointment is a future booked slot on the admin dashboard.
type IncomingAppointment struct {
	Appointment
	Patient PatientContact `json:"patient"`
}
