// Package directory resolves doctor and patient identities. User management
// itself lives outside the scheduling core; this package only answers
// "does this id exist and who is it".
package directory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
)

type Doctor struct {
	ID        string
	Name      string
	Specialty string
}

type Patient struct {
	ID    string
	Name  string
	Email string
}

// Resolver is the lookup contract the scheduling core consumes.
type Resolver interface {
	ResolveDoctor(ctx context.Context, id string) (*Doctor, error)
	ResolvePatient(ctx context.Context, id string) (*Patient, error)
}

// Memory is an in-memory Resolver, loadable from the clinic's flat files.
type Memory struct {
	mu       sync.RWMutex
	doctors  map[string]Doctor
	patients map[string]Patient
}

func NewMemory() *Memory {
	return &Memory{
		doctors:  make(map[string]Doctor),
		patients: make(map[string]Patient),
	}
}

func (m *Memory) AddDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

func (m *Memory) AddPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *Memory) ResolveDoctor(_ context.Context, id string) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
	}
	return &d, nil
}

func (m *Memory) ResolvePatient(_ context.Context, id string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
	}
	return &p, nil
}

// LoadDoctorsFile reads "ID,Name,Specialty" rows (header skipped). A missing
// file leaves the directory empty.
func (m *Memory) LoadDoctorsFile(path string) error {
	return loadCSV(path, 3, func(rec []string) {
		m.AddDoctor(Doctor{ID: rec[0], Name: rec[1], Specialty: rec[2]})
	})
}

// LoadPatientsFile reads "ID,Name,Email" rows (header skipped).
func (m *Memory) LoadPatientsFile(path string) error {
	return loadCSV(path, 3, func(rec []string) {
		m.AddPatient(Patient{ID: rec[0], Name: rec[1], Email: rec[2]})
	})
}

func loadCSV(path string, fields int, add func([]string)) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		if len(rec) < fields || rec[0] == "" {
			continue
		}
		add(rec)
	}
}
