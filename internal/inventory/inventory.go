// Package inventory exposes the medicine lookup and stock capability the
// scheduling core consumes when validating and dispensing prescriptions.
// Replenishment and the rest of the inventory workflow live elsewhere.
package inventory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

var (
	ErrMedicineNotFound = errors.New("medicine not found")
	ErrOutOfStock       = errors.New("medicine out of stock")
)

type Medicine struct {
	Name  string
	Stock int
}

// Resolver is the capability contract consumed by the scheduling core.
type Resolver interface {
	ResolveMedicine(ctx context.Context, name string) (*Medicine, error)
	DecrementStock(ctx context.Context, name string) error
}

// Memory is an in-memory Resolver, loadable from the clinic's flat file.
type Memory struct {
	mu        sync.Mutex
	medicines map[string]*Medicine
}

func NewMemory() *Memory {
	return &Memory{medicines: make(map[string]*Medicine)}
}

func (m *Memory) AddMedicine(med Medicine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := med
	m.medicines[med.Name] = &c
}

func (m *Memory) ResolveMedicine(_ context.Context, name string) (*Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	med, ok := m.medicines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, name)
	}
	c := *med
	return &c, nil
}

func (m *Memory) DecrementStock(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	med, ok := m.medicines[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMedicineNotFound, name)
	}
	if med.Stock <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, name)
	}
	med.Stock--
	return nil
}

// LoadFile reads "Name,Stock" rows (header skipped). A missing file leaves
// the inventory empty.
func (m *Memory) LoadFile(path string) error {
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
		if len(rec) < 2 || rec[0] == "" {
			continue
		}
		stock, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		m.AddMedicine(Medicine{Name: rec[0], Stock: stock})
	}
}
