package appointment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Flat-file column layout. Fields with commas, quotes or newlines are
// escaped by the standard CSV rules; Prescriptions is a sub-encoded
// name:STATUS list joined with semicolons.
var fileHeader = []string{
	"AppointmentID", "PatientID", "DoctorID",
	"Year", "Month", "Day", "Hour", "Minute",
	"Status", "IsAvailable", "ConsultationNotes", "Prescriptions",
}

const backupStamp = "20060102T150405"

// FileStore persists the appointment table to a single CSV file. It is
// owned by the service; nothing else touches the file.
type FileStore struct {
	path string
	log  zerolog.Logger
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (f *FileStore) Path() string {
	return f.path
}

// Load reads the whole table from disk. A missing file is an empty store,
// not an error. Malformed rows are logged and skipped; loading continues.
func (f *FileStore) Load() ([]*Appointment, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.log.Info().Str("path", f.path).Msg("no appointment file, starting with empty store")
			return nil, nil
		}
		return nil, fmt.Errorf("open appointment file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // row width is validated per record

	var (
		appts []*Appointment
		line  int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			f.log.Warn().Err(err).Int("line", line).Msg("skipping unreadable row")
			continue
		}
		if line == 1 {
			// Header row.
			continue
		}

		a, availableFlag, err := decodeRecord(line, rec)
		if err != nil {
			f.log.Warn().Err(err).Int("line", line).Msg("skipping malformed row")
			continue
		}
		// The stored flag is redundant with status; status wins when a
		// legacy row disagrees.
		if availableFlag != a.Available() {
			f.log.Warn().Str("id", a.ID).Str("status", string(a.Status)).Bool("is_available", availableFlag).
				Msg("availability flag contradicts status, trusting status")
		}
		appts = append(appts, a)
	}

	f.log.Info().Int("appointments", len(appts)).Str("path", f.path).Msg("appointment file loaded")
	return appts, nil
}

// Save rewrites the whole table, rows sorted by appointment id. When backup
// is set and a previous file exists, a timestamped copy is written first so
// a failed write cannot lose the prior state. The new content goes to a
// temp file that is renamed over the target.
func (f *FileStore) Save(appts []*Appointment, backup bool) error {
	if backup {
		if err := f.backup(); err != nil {
			return err
		}
	}

	rows := make([]*Appointment, len(appts))
	copy(rows, appts)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp appointment file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(fileHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range rows {
		if err := w.Write(encodeRecord(a)); err != nil {
			tmp.Close()
			return fmt.Errorf("write appointment %s: %w", a.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush appointment file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp appointment file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace appointment file: %w", err)
	}
	return nil
}

func (f *FileStore) backup() error {
	src, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // nothing to back up yet
		}
		return fmt.Errorf("open appointment file for backup: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s.%s.bak", f.path, time.Now().Format(backupStamp))
	dst, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write backup file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}
	f.log.Debug().Str("backup", name).Msg("wrote appointment file backup")
	return nil
}

func encodeRecord(a *Appointment) []string {
	return []string{
		a.ID,
		a.PatientID,
		a.DoctorID,
		strconv.Itoa(a.Slot.Year),
		strconv.Itoa(int(a.Slot.Month)),
		strconv.Itoa(a.Slot.Day),
		strconv.Itoa(a.Slot.Hour),
		strconv.Itoa(a.Slot.Minute),
		string(a.Status),
		strconv.FormatBool(a.Available()),
		a.Notes,
		encodePrescriptions(a.Prescriptions),
	}
}

func decodeRecord(line int, rec []string) (*Appointment, bool, error) {
	if len(rec) != len(fileHeader) {
		return nil, false, &ValidationError{Line: line, Msg: fmt.Sprintf("expected %d fields, got %d", len(fileHeader), len(rec))}
	}

	intField := func(idx int, name string) (int, error) {
		n, err := strconv.Atoi(rec[idx])
		if err != nil {
			return 0, &ValidationError{Line: line, Field: name, Msg: fmt.Sprintf("not a number: %q", rec[idx])}
		}
		return n, nil
	}

	year, err := intField(3, "Year")
	if err != nil {
		return nil, false, err
	}
	month, err := intField(4, "Month")
	if err != nil {
		return nil, false, err
	}
	day, err := intField(5, "Day")
	if err != nil {
		return nil, false, err
	}
	hour, err := intField(6, "Hour")
	if err != nil {
		return nil, false, err
	}
	minute, err := intField(7, "Minute")
	if err != nil {
		return nil, false, err
	}
	if month < 1 || month > 12 {
		return nil, false, &ValidationError{Line: line, Field: "Month", Msg: fmt.Sprintf("out of range: %d", month)}
	}

	status, err := ParseStatus(rec[8])
	if err != nil {
		return nil, false, &ValidationError{Line: line, Field: "Status", Msg: err.Error()}
	}
	available, err := strconv.ParseBool(rec[9])
	if err != nil {
		return nil, false, &ValidationError{Line: line, Field: "IsAvailable", Msg: fmt.Sprintf("not a boolean: %q", rec[9])}
	}

	prescriptions, err := decodePrescriptions(line, rec[11])
	if err != nil {
		return nil, false, err
	}

	a := &Appointment{
		ID:        rec[0],
		PatientID: rec[1],
		DoctorID:  rec[2],
		Slot: Slot{
			Year:   year,
			Month:  time.Month(month),
			Day:    day,
			Hour:   hour,
			Minute: minute,
		},
		Status:        status,
		Notes:         rec[10],
		Prescriptions: prescriptions,
	}
	if a.ID == "" {
		return nil, false, &ValidationError{Line: line, Field: "AppointmentID", Msg: "empty id"}
	}
	return a, available, nil
}

func encodePrescriptions(ps []Prescription) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Medicine + ":" + string(p.Status)
	}
	return strings.Join(parts, ";")
}

func decodePrescriptions(line int, s string) ([]Prescription, error) {
	if s == "" {
		return nil, nil
	}

	var out []Prescription
	for _, part := range strings.Split(s, ";") {
		// Split on the last colon: the status token is from a closed set,
		// the medicine name is free text.
		idx := strings.LastIndex(part, ":")
		if idx <= 0 {
			return nil, &ValidationError{Line: line, Field: "Prescriptions", Msg: fmt.Sprintf("malformed entry %q", part)}
		}
		status, err := ParsePrescriptionStatus(part[idx+1:])
		if err != nil {
			return nil, &ValidationError{Line: line, Field: "Prescriptions", Msg: err.Error()}
		}
		out = append(out, Prescription{Medicine: part[:idx], Status: status})
	}
	return out, nil
}
