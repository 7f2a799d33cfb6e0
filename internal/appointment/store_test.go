package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC) // Wednesday

func newSlotStore(t *testing.T, doctorID string) (*Store, []*Appointment) {
	t.Helper()

	s := NewStore()
	created := s.GenerateWeek(doctorID, testNow)
	require.Equal(t, SlotsPerWeek, created)

	appts := s.ByDoctor(doctorID)
	require.Len(t, appts, SlotsPerWeek)
	return s, appts
}

func TestGenerateWeekIdempotent(t *testing.T) {
	s := NewStore()

	assert.Equal(t, 20, s.GenerateWeek("D001", testNow))
	assert.Equal(t, 0, s.GenerateWeek("D001", testNow))
	assert.Equal(t, 20, s.Len())

	// A different doctor gets an independent grid.
	assert.Equal(t, 20, s.GenerateWeek("D002", testNow))
	assert.Equal(t, 40, s.Len())
}

func TestGenerateWeekSkipsExistingSlots(t *testing.T) {
	s := NewStore()
	slot := WeekGrid(testNow)[0]
	_, err := s.CreateSlot("D001", slot)
	require.NoError(t, err)

	assert.Equal(t, 19, s.GenerateWeek("D001", testNow))
}

func TestCreateSlotDuplicate(t *testing.T) {
	s := NewStore()
	slot := Slot{Year: 2026, Month: time.September, Day: 7, Hour: 9, Minute: 0}

	a, err := s.CreateSlot("D001", slot)
	require.NoError(t, err)
	assert.Equal(t, "APT_D001_202609070900", a.ID)
	assert.Equal(t, StatusPending, a.Status)
	assert.True(t, a.Available())

	_, err = s.CreateSlot("D001", slot)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookLifecycle(t *testing.T) {
	s, appts := newSlotStore(t, "D001")
	id := appts[0].ID

	booked, err := s.Transition(id, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, booked.Status)
	assert.Equal(t, "P1001", booked.PatientID)
	assert.False(t, booked.Available())

	// Double booking is a conflict and leaves the record unchanged.
	_, err = s.Transition(id, EventBook, Payload{PatientID: "P1002"})
	assert.ErrorIs(t, err, ErrConflict)
	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "P1001", got.PatientID)

	// Cancelling reopens the slot and clears the patient ref.
	cancelled, err := s.Transition(id, EventCancel, Payload{})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.PatientID)
	assert.True(t, cancelled.Available())

	// A cancelled slot is re-offerable.
	rebooked, err := s.Transition(id, EventBook, Payload{PatientID: "P1002"})
	require.NoError(t, err)
	assert.Equal(t, "P1002", rebooked.PatientID)
}

func TestBookRequiresPatient(t *testing.T) {
	s, appts := newSlotStore(t, "D001")

	_, err := s.Transition(appts[0].ID, EventBook, Payload{})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelRequiresBooked(t *testing.T) {
	s, appts := newSlotStore(t, "D001")

	_, err := s.Transition(appts[0].ID, EventCancel, Payload{})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBlockUnblock(t *testing.T) {
	s, appts := newSlotStore(t, "D001")
	id := appts[0].ID

	blocked, err := s.Transition(id, EventBlock, Payload{})
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, blocked.Status)
	assert.False(t, blocked.Available())

	// A blocked slot cannot be booked or blocked again.
	_, err = s.Transition(id, EventBook, Payload{PatientID: "P1001"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Transition(id, EventBlock, Payload{})
	assert.ErrorIs(t, err, ErrConflict)

	reopened, err := s.Transition(id, EventUnblock, Payload{})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, reopened.Status)
	assert.True(t, reopened.Available())
}

func TestBlockRequiresPending(t *testing.T) {
	s, appts := newSlotStore(t, "D001")
	id := appts[0].ID

	_, err := s.Transition(id, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)

	_, err = s.Transition(id, EventBlock, Payload{})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestComplete(t *testing.T) {
	s, appts := newSlotStore(t, "D001")
	id := appts[0].ID

	_, err := s.Transition(id, EventBook, Payload{PatientID: "P1007"})
	require.NoError(t, err)

	done, err := s.Transition(id, EventComplete, Payload{
		Notes: "Follow-up in 2 weeks",
		Prescriptions: []Prescription{
			{Medicine: "Amoxicillin", Dosage: 500, Status: PrescriptionPending},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "P1007", done.PatientID)
	assert.Equal(t, "Follow-up in 2 weeks", done.Notes)
	require.Len(t, done.Prescriptions, 1)
	assert.Equal(t, PrescriptionPending, done.Prescriptions[0].Status)

	// Completed is terminal.
	for _, ev := range []Event{EventBook, EventCancel, EventBlock, EventUnblock, EventComplete} {
		p := Payload{}
		if ev == EventBook {
			p.PatientID = "P1001"
		}
		_, err := s.Transition(id, ev, p)
		assert.ErrorIs(t, err, ErrConflict, "event %s must be rejected on a completed appointment", ev)
	}
}

func TestCompleteRequiresBooked(t *testing.T) {
	s, appts := newSlotStore(t, "D001")

	_, err := s.Transition(appts[0].ID, EventComplete, Payload{Notes: "walk-in"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTransitionUnknownID(t *testing.T) {
	s := NewStore()

	_, err := s.Transition("APT_D001_202609070900", EventBook, Payload{PatientID: "P1001"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get("APT_D001_202609070900")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViewsFilterAndSort(t *testing.T) {
	s := NewStore()
	s.GenerateWeek("D001", testNow)
	s.GenerateWeek("D002", testNow)

	d1 := s.ByDoctor("D001")
	require.Len(t, d1, 20)
	for i := 1; i < len(d1); i++ {
		assert.False(t, d1[i].Slot.Time().Before(d1[i-1].Slot.Time()), "views are ascending by slot time")
	}
	for _, a := range d1 {
		assert.Equal(t, "D001", a.DoctorID)
	}

	// Book two D001 slots for the same patient, one D002 slot for another.
	_, err := s.Transition(d1[3].ID, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)
	_, err = s.Transition(d1[1].ID, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)
	d2 := s.ByDoctor("D002")
	_, err = s.Transition(d2[0].ID, EventBook, Payload{PatientID: "P1002"})
	require.NoError(t, err)

	mine := s.ByPatient("P1001")
	require.Len(t, mine, 2)
	assert.Equal(t, d1[1].ID, mine[0].ID)
	assert.Equal(t, d1[3].ID, mine[1].ID)

	open := s.ByDoctor("D001", StatusPending)
	assert.Len(t, open, 18)
	bookedView := s.ByDoctor("D001", StatusBooked)
	assert.Len(t, bookedView, 2)
	multi := s.ByDoctor("D001", StatusPending, StatusBooked)
	assert.Len(t, multi, 20)

	// A patient view never matches unbooked slots, whose patient ref is empty.
	assert.Empty(t, s.ByPatient(""))
}

func TestPatientTotalsMonotonic(t *testing.T) {
	s, appts := newSlotStore(t, "D001")

	assert.Equal(t, 0, s.TotalAppointments("P1001"))

	_, err := s.Transition(appts[0].ID, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalAppointments("P1001"))

	// Cancelling does not subtract from the historical total.
	_, err = s.Transition(appts[0].ID, EventCancel, Payload{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalAppointments("P1001"))

	_, err = s.Transition(appts[1].ID, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalAppointments("P1001"))
}

func TestResetRecomputesTotals(t *testing.T) {
	s := NewStore()
	s.Reset([]*Appointment{
		{ID: "APT_D001_202609070900", DoctorID: "D001", PatientID: "P1001", Status: StatusBooked},
		{ID: "APT_D001_202609071030", DoctorID: "D001", PatientID: "P1001", Status: StatusCompleted},
		{ID: "APT_D001_202609071300", DoctorID: "D001", Status: StatusPending},
	})

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.TotalAppointments("P1001"))
	assert.Equal(t, 0, s.TotalAppointments("P9999"))
}

func TestCreateRecord(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 8, 26, 16, 45, 0, 0, time.UTC)

	a, err := s.CreateRecord("D001", "P1007", SlotAt(now), "walk-in consult", []Prescription{
		{Medicine: "Ibuprofen", Dosage: 400, Status: PrescriptionPending},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "MR_P1007_1787762700000", a.ID)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, 16, a.Slot.Hour)
	assert.Equal(t, 45, a.Slot.Minute)
	assert.Equal(t, 1, s.TotalAppointments("P1007"))

	_, err = s.CreateRecord("D001", "P1007", SlotAt(now), "dup", nil, now)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMarkPrescriptionDispensed(t *testing.T) {
	s, appts := newSlotStore(t, "D001")
	id := appts[0].ID

	_, err := s.Transition(id, EventBook, Payload{PatientID: "P1001"})
	require.NoError(t, err)

	// Not dispensable before the outcome is recorded.
	_, err = s.MarkPrescriptionDispensed(id, "Amoxicillin")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Transition(id, EventComplete, Payload{
		Notes: "bacterial infection",
		Prescriptions: []Prescription{
			{Medicine: "Amoxicillin", Dosage: 500, Status: PrescriptionPending},
			{Medicine: "Ibuprofen", Dosage: 400, Status: PrescriptionPending},
		},
	})
	require.NoError(t, err)

	a, err := s.MarkPrescriptionDispensed(id, "Amoxicillin")
	require.NoError(t, err)
	assert.Equal(t, PrescriptionDispensed, a.Prescriptions[0].Status)
	assert.Equal(t, PrescriptionPending, a.Prescriptions[1].Status)

	_, err = s.MarkPrescriptionDispensed(id, "Amoxicillin")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.MarkPrescriptionDispensed(id, "Paracetamol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotSortedAndDetached(t *testing.T) {
	s := NewStore()
	s.GenerateWeek("D002", testNow)
	s.GenerateWeek("D001", testNow)

	snap := s.Snapshot()
	require.Len(t, snap, 40)
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].ID, snap[i].ID)
	}

	// Mutating a snapshot row must not leak into the store.
	snap[0].Status = StatusBooked
	snap[0].PatientID = "P9999"
	got, err := s.Get(snap[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Empty(t, got.PatientID)
}
