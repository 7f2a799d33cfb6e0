package appointment

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusBooked      Status = "BOOKED"
	StatusCancelled   Status = "CANCELLED"
	StatusCompleted   Status = "COMPLETED"
	StatusUnavailable Status = "UNAVAILABLE"
)

// ParseStatus maps a textual status token to the closed enum.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusBooked, StatusCancelled, StatusCompleted, StatusUnavailable:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "PENDING"
	PrescriptionDispensed PrescriptionStatus = "DISPENSED"
)

func ParsePrescriptionStatus(s string) (PrescriptionStatus, error) {
	switch PrescriptionStatus(s) {
	case PrescriptionPending, PrescriptionDispensed:
		return PrescriptionStatus(s), nil
	}
	return "", fmt.Errorf("unknown prescription status %q", s)
}

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrConflict     = errors.New("appointment state conflict")
	ErrInvalidState = errors.New("appointment is not in a valid state for this operation")
)

// ValidationError describes a file row that could not be decoded.
type ValidationError struct {
	Line  int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: field %s: %s", e.Line, e.Field, e.Msg)
}

// Slot is a fixed calendar date+time window a doctor can be booked for.
// Copied by value; it carries no ownership.
type Slot struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// SlotAt builds a Slot from a point in time, truncating below the minute.
func SlotAt(t time.Time) Slot {
	return Slot{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// Time returns the slot's combined timestamp, used for ordering.
func (s Slot) Time() time.Time {
	return time.Date(s.Year, s.Month, s.Day, s.Hour, s.Minute, 0, 0, time.UTC)
}

// Stamp renders the slot as YYYYMMDDHHMM, the fragment used in slot ids.
func (s Slot) Stamp() string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d", s.Year, int(s.Month), s.Day, s.Hour, s.Minute)
}

func (s Slot) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", s.Year, int(s.Month), s.Day, s.Hour, s.Minute)
}

type Prescription struct {
	Medicine string
	Dosage   int
	Status   PrescriptionStatus
}

// Appointment binds a slot to a doctor, optionally a patient, and its
// lifecycle status. The id is immutable once created.
type Appointment struct {
	ID            string
	DoctorID      string
	PatientID     string // empty for an unbooked slot
	Slot          Slot
	Status        Status
	Notes         string
	Prescriptions []Prescription
}

// Available reports whether the slot is offerable for booking. Status is the
// single source of truth: freshly generated and cancelled slots are open,
// everything else is not.
func (a *Appointment) Available() bool {
	return a.Status == StatusPending || a.Status == StatusCancelled
}

func (a *Appointment) clone() *Appointment {
	c := *a
	if len(a.Prescriptions) > 0 {
		c.Prescriptions = make([]Prescription, len(a.Prescriptions))
		copy(c.Prescriptions, a.Prescriptions)
	}
	return &c
}
