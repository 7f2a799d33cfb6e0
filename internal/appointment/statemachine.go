package appointment

import "fmt"

// Event is a requested lifecycle change. Transitions are the only way an
// appointment mutates after creation.
type Event string

const (
	EventBook     Event = "BOOK"
	EventCancel   Event = "CANCEL"
	EventBlock    Event = "BLOCK"
	EventUnblock  Event = "UNBLOCK"
	EventComplete Event = "COMPLETE"
)

// Payload carries the event-specific inputs of a transition.
type Payload struct {
	PatientID     string         // BOOK
	Notes         string         // COMPLETE
	Prescriptions []Prescription // COMPLETE, replaces the list wholesale
}

// apply checks the guard for ev and mutates a in place on success. On a
// guard violation a is left untouched and ErrConflict is returned. The
// caller must hold the store lock: guard check and mutation are one
// critical section.
func apply(a *Appointment, ev Event, p Payload) error {
	switch ev {
	case EventBook:
		if !a.Available() {
			return conflict(a, ev)
		}
		if p.PatientID == "" {
			return fmt.Errorf("%w: booking requires a patient id", ErrConflict)
		}
		a.Status = StatusBooked
		a.PatientID = p.PatientID
		return nil

	case EventCancel:
		if a.Status != StatusBooked {
			return conflict(a, ev)
		}
		// Cancellation recycles the slot: it stays in the table, becomes
		// re-offerable, and the patient ref is cleared.
		a.Status = StatusCancelled
		a.PatientID = ""
		return nil

	case EventBlock:
		if a.Status != StatusPending {
			return conflict(a, ev)
		}
		a.Status = StatusUnavailable
		return nil

	case EventUnblock:
		if a.Status != StatusUnavailable {
			return conflict(a, ev)
		}
		a.Status = StatusPending
		return nil

	case EventComplete:
		if a.Status != StatusBooked {
			return conflict(a, ev)
		}
		a.Status = StatusCompleted
		a.Notes = p.Notes
		a.Prescriptions = p.Prescriptions
		return nil
	}

	return fmt.Errorf("%w: unknown event %q", ErrConflict, ev)
}

func conflict(a *Appointment, ev Event) error {
	return fmt.Errorf("%w: cannot %s appointment %s in state %s", ErrConflict, ev, a.ID, a.Status)
}
