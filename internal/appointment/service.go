package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-scheduling/internal/directory"
	"github.com/clinicdesk/clinic-scheduling/internal/inventory"
)

// ErrNotPersisted wraps a flush failure. The in-memory mutation is kept;
// callers must treat it as a durability risk, not as a rolled-back change.
var ErrNotPersisted = errors.New("mutation applied but not persisted")

// PrescriptionRequest is one prescription entry as submitted by a doctor.
type PrescriptionRequest struct {
	Medicine string
	Dosage   int
}

// Service orchestrates the appointment lifecycle: it validates collaborator
// references, drives store transitions, and flushes every successful
// mutation through the file store synchronously.
type Service struct {
	store        *Store
	file         *FileStore
	directory    directory.Resolver
	inventory    inventory.Resolver
	backupOnSave bool
	now          func() time.Time
	log          zerolog.Logger
}

func NewService(store *Store, file *FileStore, dir directory.Resolver, inv inventory.Resolver, backupOnSave bool, log zerolog.Logger) *Service {
	return &Service{
		store:        store,
		file:         file,
		directory:    dir,
		inventory:    inv,
		backupOnSave: backupOnSave,
		now:          time.Now,
		log:          log,
	}
}

// SetClock overrides the service's notion of "now". Tests use this to pin
// week generation and record ids.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GenerateWeek creates the next week's slot grid for a doctor and reports
// how many slots were new. Re-running for the same week is a no-op.
func (s *Service) GenerateWeek(ctx context.Context, doctorID string) (int, error) {
	if _, err := s.directory.ResolveDoctor(ctx, doctorID); err != nil {
		return 0, err
	}

	created := s.store.GenerateWeek(doctorID, s.now())
	s.log.Info().Str("doctor", doctorID).Int("created", created).Msg("week generated")

	if created == 0 {
		return 0, nil
	}
	return created, s.flush()
}

// Book claims an open slot for a patient.
func (s *Service) Book(ctx context.Context, id, patientID string) (*Appointment, error) {
	if _, err := s.directory.ResolvePatient(ctx, patientID); err != nil {
		return nil, err
	}

	appt, err := s.store.Transition(id, EventBook, Payload{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("id", appt.ID).Str("patient", patientID).Msg("appointment booked")
	return appt, s.flush()
}

// Cancel returns a booked appointment to the open pool.
func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.store.Transition(id, EventCancel, Payload{})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("id", appt.ID).Msg("appointment cancelled")
	return appt, s.flush()
}

// Block marks a still-open slot as not offerable.
func (s *Service) Block(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.store.Transition(id, EventBlock, Payload{})
	if err != nil {
		return nil, err
	}
	return appt, s.flush()
}

// Unblock reopens a blocked slot.
func (s *Service) Unblock(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.store.Transition(id, EventUnblock, Payload{})
	if err != nil {
		return nil, err
	}
	return appt, s.flush()
}

// RecordOutcome attaches consultation notes and prescriptions to a booked
// appointment and completes it. The prescription list replaces any previous
// one wholesale; every medicine must exist in the inventory.
func (s *Service) RecordOutcome(ctx context.Context, id, notes string, reqs []PrescriptionRequest) (*Appointment, error) {
	appt, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusBooked {
		return nil, fmt.Errorf("%w: appointment %s is %s, outcome requires %s", ErrInvalidState, id, appt.Status, StatusBooked)
	}

	prescriptions, err := s.buildPrescriptions(ctx, reqs)
	if err != nil {
		return nil, err
	}

	appt, err = s.store.Transition(id, EventComplete, Payload{Notes: notes, Prescriptions: prescriptions})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("id", appt.ID).Int("prescriptions", len(prescriptions)).Msg("outcome recorded")
	return appt, s.flush()
}

// RecordEncounter creates a doctor-authored historical record of an ad-hoc
// consultation, already completed, stamped with the current time.
func (s *Service) RecordEncounter(ctx context.Context, doctorID, patientID, notes string, reqs []PrescriptionRequest) (*Appointment, error) {
	if _, err := s.directory.ResolveDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if _, err := s.directory.ResolvePatient(ctx, patientID); err != nil {
		return nil, err
	}

	prescriptions, err := s.buildPrescriptions(ctx, reqs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appt, err := s.store.CreateRecord(doctorID, patientID, SlotAt(now), notes, prescriptions, now)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("id", appt.ID).Str("doctor", doctorID).Str("patient", patientID).Msg("encounter recorded")
	return appt, s.flush()
}

// Dispense hands out one prescribed medicine: stock is decremented and the
// prescription entry moves to DISPENSED.
func (s *Service) Dispense(ctx context.Context, id, medicine string) (*Appointment, error) {
	appt, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: appointment %s has no recorded outcome", ErrInvalidState, id)
	}
	if err := checkDispensable(appt, medicine); err != nil {
		return nil, err
	}

	if err := s.inventory.DecrementStock(ctx, medicine); err != nil {
		return nil, err
	}

	appt, err = s.store.MarkPrescriptionDispensed(id, medicine)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("id", appt.ID).Str("medicine", medicine).Msg("prescription dispensed")
	return appt, s.flush()
}

// Appointment returns a single appointment by id.
func (s *Service) Appointment(_ context.Context, id string) (*Appointment, error) {
	return s.store.Get(id)
}

// DoctorAppointments lists a doctor's appointments ascending by slot time.
func (s *Service) DoctorAppointments(ctx context.Context, doctorID string, statuses ...Status) ([]*Appointment, error) {
	if _, err := s.directory.ResolveDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.store.ByDoctor(doctorID, statuses...), nil
}

// PatientAppointments lists a patient's appointments ascending by slot time.
func (s *Service) PatientAppointments(ctx context.Context, patientID string, statuses ...Status) ([]*Appointment, error) {
	if _, err := s.directory.ResolvePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.store.ByPatient(patientID, statuses...), nil
}

// Flush writes the whole table out with a safety backup, regardless of the
// per-mutation backup setting. Called on shutdown.
func (s *Service) Flush() error {
	if err := s.file.Save(s.store.Snapshot(), true); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}

func (s *Service) flush() error {
	if err := s.file.Save(s.store.Snapshot(), s.backupOnSave); err != nil {
		s.log.Error().Err(err).Str("path", s.file.Path()).Msg("appointment table not persisted")
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}

func (s *Service) buildPrescriptions(ctx context.Context, reqs []PrescriptionRequest) ([]Prescription, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	out := make([]Prescription, 0, len(reqs))
	for _, r := range reqs {
		if _, err := s.inventory.ResolveMedicine(ctx, r.Medicine); err != nil {
			return nil, err
		}
		out = append(out, Prescription{
			Medicine: r.Medicine,
			Dosage:   r.Dosage,
			Status:   PrescriptionPending,
		})
	}
	return out, nil
}

func checkDispensable(a *Appointment, medicine string) error {
	for _, p := range a.Prescriptions {
		if p.Medicine != medicine {
			continue
		}
		if p.Status == PrescriptionDispensed {
			return fmt.Errorf("%w: prescription %s already dispensed", ErrConflict, medicine)
		}
		return nil
	}
	return fmt.Errorf("%w: no prescription for %s on appointment %s", ErrNotFound, medicine, a.ID)
}
