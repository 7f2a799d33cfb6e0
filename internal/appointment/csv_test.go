package appointment

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "appointments.csv"), zerolog.Nop())
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	fs := newTestFileStore(t)

	appts, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs := newTestFileStore(t)

	in := []*Appointment{
		{
			ID:       "APT_D001_202609070900",
			DoctorID: "D001",
			Slot:     Slot{Year: 2026, Month: time.September, Day: 7, Hour: 9, Minute: 0},
			Status:   StatusPending,
		},
		{
			ID:        "APT_D001_202609071030",
			DoctorID:  "D001",
			PatientID: "P1007",
			Slot:      Slot{Year: 2026, Month: time.September, Day: 7, Hour: 10, Minute: 30},
			Status:    StatusCompleted,
			Notes:     "Follow-up in 2 weeks",
			Prescriptions: []Prescription{
				{Medicine: "Amoxicillin", Status: PrescriptionPending},
				{Medicine: "Ibuprofen", Status: PrescriptionDispensed},
			},
		},
		{
			ID:        "APT_D002_202609071300",
			DoctorID:  "D002",
			PatientID: "P1001",
			Slot:      Slot{Year: 2026, Month: time.September, Day: 7, Hour: 13, Minute: 0},
			Status:    StatusBooked,
		},
	}

	require.NoError(t, fs.Save(in, false))

	out, err := fs.Load()
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, in, out)
}

func TestFileStoreSaveSortsByID(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.Save([]*Appointment{
		{ID: "APT_D002_202609070900", DoctorID: "D002", Status: StatusPending, Slot: Slot{Year: 2026, Month: 9, Day: 7, Hour: 9}},
		{ID: "APT_D001_202609070900", DoctorID: "D001", Status: StatusPending, Slot: Slot{Year: 2026, Month: 9, Day: 7, Hour: 9}},
	}, false))

	raw, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "AppointmentID,"))
	assert.True(t, strings.HasPrefix(lines[1], "APT_D001_"))
	assert.True(t, strings.HasPrefix(lines[2], "APT_D002_"))
}

func TestFileStoreNotesEscaping(t *testing.T) {
	fs := newTestFileStore(t)
	notes := "BP 120/80, pulse \"irregular\"\nreview in 2 weeks; refer if worse"

	in := []*Appointment{{
		ID:        "APT_D001_202609070900",
		DoctorID:  "D001",
		PatientID: "P1001",
		Slot:      Slot{Year: 2026, Month: time.September, Day: 7, Hour: 9, Minute: 0},
		Status:    StatusCompleted,
		Notes:     notes,
	}}
	require.NoError(t, fs.Save(in, false))

	out, err := fs.Load()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, notes, out[0].Notes)
}

func TestFileStoreSkipsMalformedRows(t *testing.T) {
	fs := newTestFileStore(t)

	rows := [][]string{
		fileHeader,
		{"APT_D001_202609070900", "", "D001", "2026", "9", "7", "9", "0", "PENDING", "true", "", ""},
		{"APT_D001_202609071030", "", "D001", "2026", "nope", "7", "10", "30", "PENDING", "true", "", ""},
		{"APT_D001_202609071300", "", "D001", "2026", "13", "7", "13", "0", "PENDING", "true", "", ""},
		{"APT_D001_202609071430", "", "D001", "2026", "9", "7", "14", "30", "SCHEDULED", "true", "", ""},
		{"", "", "D001", "2026", "9", "7", "14", "30", "PENDING", "true", "", ""},
		{"APT_D001_202609080900", "P1001", "D001", "2026", "9", "8", "9", "0", "COMPLETED", "false", "ok", "Amoxicillin=PENDING"},
		{"APT_D001_202609081030", "P1001", "D001", "2026", "9", "8", "10", "30", "BOOKED", "false", "", ""},
	}
	writeRawRows(t, fs.Path(), rows)

	appts, err := fs.Load()
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "APT_D001_202609070900", appts[0].ID)
	assert.Equal(t, "APT_D001_202609081030", appts[1].ID)
}

func TestFileStoreTrustsStatusOverFlag(t *testing.T) {
	fs := newTestFileStore(t)

	// A legacy row whose availability flag disagrees with its status still
	// loads; the status decides.
	writeRawRows(t, fs.Path(), [][]string{
		fileHeader,
		{"APT_D001_202609070900", "P1001", "D001", "2026", "9", "7", "9", "0", "BOOKED", "true", "", ""},
	})

	appts, err := fs.Load()
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, StatusBooked, appts[0].Status)
	assert.False(t, appts[0].Available())
}

func TestFileStoreBackup(t *testing.T) {
	fs := newTestFileStore(t)

	first := []*Appointment{{
		ID: "APT_D001_202609070900", DoctorID: "D001", Status: StatusPending,
		Slot: Slot{Year: 2026, Month: 9, Day: 7, Hour: 9},
	}}
	require.NoError(t, fs.Save(first, true)) // no prior file: nothing to back up
	require.NoError(t, fs.Save(append(first, &Appointment{
		ID: "APT_D001_202609071030", DoctorID: "D001", Status: StatusPending,
		Slot: Slot{Year: 2026, Month: 9, Day: 7, Hour: 10, Minute: 30},
	}), true))

	backups, err := filepath.Glob(fs.Path() + ".*.bak")
	require.NoError(t, err)
	require.Len(t, backups, 1)

	// The backup holds the pre-save state.
	prev, err := NewFileStore(backups[0], zerolog.Nop()).Load()
	require.NoError(t, err)
	require.Len(t, prev, 1)
	assert.Equal(t, "APT_D001_202609070900", prev[0].ID)

	cur, err := fs.Load()
	require.NoError(t, err)
	assert.Len(t, cur, 2)
}

func TestPrescriptionCodec(t *testing.T) {
	ps := []Prescription{
		{Medicine: "Amoxicillin", Status: PrescriptionPending},
		{Medicine: "Vitamin B:12 Complex", Status: PrescriptionDispensed},
	}

	encoded := encodePrescriptions(ps)
	assert.Equal(t, "Amoxicillin:PENDING;Vitamin B:12 Complex:DISPENSED", encoded)

	// A medicine name containing a colon survives: the status is split off
	// at the last colon.
	decoded, err := decodePrescriptions(2, encoded)
	require.NoError(t, err)
	assert.Equal(t, ps, decoded)

	assert.Equal(t, "", encodePrescriptions(nil))
	empty, err := decodePrescriptions(2, "")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = decodePrescriptions(2, "Amoxicillin")
	assert.Error(t, err)
	_, err = decodePrescriptions(2, "Amoxicillin:TAKEN")
	assert.Error(t, err)
}

func writeRawRows(t *testing.T, path string, rows [][]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
}
