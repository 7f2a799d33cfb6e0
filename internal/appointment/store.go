package appointment

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store is the authoritative table of appointments, keyed by appointment id.
// Doctor and patient "appointment lists" are computed views over this table,
// never separately stored collections.
//
// A single mutex serializes every mutation so that each transition's
// check-then-set runs as one critical section. The current deployment is
// single-actor; the mutex is what lets a future multi-session deployment
// keep the same code.
type Store struct {
	mu            sync.Mutex
	table         map[string]*Appointment
	patientTotals map[string]int
}

func NewStore() *Store {
	return &Store{
		table:         make(map[string]*Appointment),
		patientTotals: make(map[string]int),
	}
}

// Reset replaces the table contents, used when loading from the data file.
// Patient totals are recomputed from the rows that still carry a patient ref.
func (s *Store) Reset(appts []*Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = make(map[string]*Appointment, len(appts))
	s.patientTotals = make(map[string]int)
	for _, a := range appts {
		s.table[a.ID] = a.clone()
		if a.PatientID != "" {
			s.patientTotals[a.PatientID]++
		}
	}
}

// CreateSlot inserts a freshly generated open slot for a doctor. The id is
// derived from the (doctor, slot) pair; inserting the same pair twice is a
// conflict.
func (s *Store) CreateSlot(doctorID string, slot Slot) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSlotLocked(doctorID, slot)
}

func (s *Store) createSlotLocked(doctorID string, slot Slot) (*Appointment, error) {
	id := SlotID(doctorID, slot)
	if _, exists := s.table[id]; exists {
		return nil, fmt.Errorf("%w: appointment %s already exists", ErrConflict, id)
	}

	a := &Appointment{
		ID:       id,
		DoctorID: doctorID,
		Slot:     slot,
		Status:   StatusPending,
	}
	s.table[id] = a
	return a.clone(), nil
}

// CreateRecord inserts a doctor-authored historical encounter, already
// COMPLETED, bypassing the booked state.
func (s *Store) CreateRecord(doctorID, patientID string, slot Slot, notes string, prescriptions []Prescription, now time.Time) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := RecordID(patientID, now)
	if _, exists := s.table[id]; exists {
		return nil, fmt.Errorf("%w: appointment %s already exists", ErrConflict, id)
	}

	a := &Appointment{
		ID:            id,
		DoctorID:      doctorID,
		PatientID:     patientID,
		Slot:          slot,
		Status:        StatusCompleted,
		Notes:         notes,
		Prescriptions: prescriptions,
	}
	s.table[id] = a
	s.patientTotals[patientID]++
	return a.clone(), nil
}

// GenerateWeek creates the 20 slots of the week after now for a doctor.
// Slots whose derived id already exists are skipped, not duplicated, so
// re-running for the same doctor and week is a no-op. Returns the number of
// slots actually created.
func (s *Store) GenerateWeek(doctorID string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	for _, slot := range WeekGrid(now) {
		if _, exists := s.table[SlotID(doctorID, slot)]; exists {
			continue
		}
		if _, err := s.createSlotLocked(doctorID, slot); err == nil {
			created++
		}
	}
	return created
}

// Get returns a copy of the appointment with the given id.
func (s *Store) Get(id string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.table[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.clone(), nil
}

// ByDoctor returns the doctor's appointments sorted ascending by slot time,
// optionally restricted to the given statuses.
func (s *Store) ByDoctor(doctorID string, statuses ...Status) []*Appointment {
	return s.view(func(a *Appointment) bool { return a.DoctorID == doctorID }, statuses)
}

// ByPatient is the patient-side counterpart of ByDoctor.
func (s *Store) ByPatient(patientID string, statuses ...Status) []*Appointment {
	return s.view(func(a *Appointment) bool { return a.PatientID != "" && a.PatientID == patientID }, statuses)
}

func (s *Store) view(match func(*Appointment) bool, statuses []Status) []*Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Appointment
	for _, a := range s.table {
		if !match(a) {
			continue
		}
		if len(statuses) > 0 && !statusIn(a.Status, statuses) {
			continue
		}
		out = append(out, a.clone())
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Slot.Time(), out[j].Slot.Time()
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.Before(tj)
	})
	return out
}

func statusIn(st Status, statuses []Status) bool {
	for _, want := range statuses {
		if st == want {
			return true
		}
	}
	return false
}

// Transition is the only mutation entry point for existing appointments. It
// delegates to the state machine; on a guard violation the record is
// unchanged and ErrConflict is returned.
func (s *Store) Transition(id string, ev Event, p Payload) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.table[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := apply(a, ev, p); err != nil {
		return nil, err
	}

	// The historical total is monotonic: bookings count, cancellations do
	// not subtract.
	if ev == EventBook {
		s.patientTotals[a.PatientID]++
	}
	return a.clone(), nil
}

// MarkPrescriptionDispensed flips one prescription entry of a completed
// appointment from PENDING to DISPENSED. Stock bookkeeping belongs to the
// inventory collaborator; this only records the outcome on the appointment.
func (s *Store) MarkPrescriptionDispensed(id, medicine string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.table[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if a.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: appointment %s has no recorded outcome", ErrInvalidState, id)
	}

	for i := range a.Prescriptions {
		if a.Prescriptions[i].Medicine != medicine {
			continue
		}
		if a.Prescriptions[i].Status == PrescriptionDispensed {
			return nil, fmt.Errorf("%w: prescription %s already dispensed", ErrConflict, medicine)
		}
		a.Prescriptions[i].Status = PrescriptionDispensed
		return a.clone(), nil
	}
	return nil, fmt.Errorf("%w: no prescription for %s on appointment %s", ErrNotFound, medicine, id)
}

// TotalAppointments returns the patient's monotonic historical count.
func (s *Store) TotalAppointments(patientID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patientTotals[patientID]
}

// Snapshot returns a copy of every row, sorted by appointment id. This is
// the canonical order the file codec persists.
func (s *Store) Snapshot() []*Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Appointment, 0, len(s.table))
	for _, a := range s.table {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of appointments in the table.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}
