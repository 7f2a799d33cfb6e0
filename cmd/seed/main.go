package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-scheduling/internal/appointment"
	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

const (
	doctorCount  = 8
	patientCount = 60
	bookRatio    = 0.4 // share of generated slots that get booked
	cancelRatio  = 0.1 // share of booked slots that get cancelled again
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
}

var medicines = []struct {
	Name  string
	Stock int
}{
	{"Amoxicillin", 120},
	{"Ibuprofen", 200},
	{"Paracetamol", 250},
	{"Omeprazole", 80},
	{"Metformin", 90},
	{"Atorvastatin", 60},
	{"Cetirizine", 140},
	{"Salbutamol", 40},
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	logger.Info().Msg("seed starting")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DataFile), 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create data directory")
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs := seedDoctors(logger, cfg.DoctorsFile)
	patientIDs := seedPatients(logger, cfg.PatientsFile)
	seedMedicines(logger, cfg.MedicinesFile)
	seedAppointments(logger, cfg.DataFile, doctorIDs, patientIDs)

	logger.Info().Msg("seed complete")
}

func seedDoctors(logger zerolog.Logger, path string) []string {
	logger.Info().Int("count", doctorCount).Msg("seeding doctors")

	ids := make([]string, 0, doctorCount)
	rows := [][]string{{"ID", "Name", "Specialty"}}
	for i := 0; i < doctorCount; i++ {
		id := fmt.Sprintf("D%03d", i+1)
		ids = append(ids, id)
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		rows = append(rows, []string{id, "Dr. " + gofakeit.Name(), spec})
	}
	writeFile(logger, path, rows)
	return ids
}

func seedPatients(logger zerolog.Logger, path string) []string {
	logger.Info().Int("count", patientCount).Msg("seeding patients")

	ids := make([]string, 0, patientCount)
	rows := [][]string{{"ID", "Name", "Email"}}
	for i := 0; i < patientCount; i++ {
		id := fmt.Sprintf("P%04d", 1001+i)
		ids = append(ids, id)
		rows = append(rows, []string{id, gofakeit.Name(), gofakeit.Email()})
	}
	writeFile(logger, path, rows)
	return ids
}

func seedMedicines(logger zerolog.Logger, path string) {
	rows := [][]string{{"Name", "Stock"}}
	for _, m := range medicines {
		rows = append(rows, []string{m.Name, fmt.Sprintf("%d", m.Stock)})
	}
	writeFile(logger, path, rows)
}

// seedAppointments generates next week's grid for every doctor, books a
// share of the slots, cancels a few bookings again, and records an outcome
// on a handful so the table covers the whole lifecycle.
func seedAppointments(logger zerolog.Logger, path string, doctorIDs, patientIDs []string) {
	store := appointment.NewStore()
	now := time.Now()

	for _, doctorID := range doctorIDs {
		store.GenerateWeek(doctorID, now)
	}

	booked := 0
	completed := 0
	for _, doctorID := range doctorIDs {
		for _, appt := range store.ByDoctor(doctorID, appointment.StatusPending) {
			if gofakeit.Float64Range(0, 1) > bookRatio {
				continue
			}
			patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
			if _, err := store.Transition(appt.ID, appointment.EventBook, appointment.Payload{PatientID: patientID}); err != nil {
				continue
			}
			booked++

			switch {
			case gofakeit.Float64Range(0, 1) < cancelRatio:
				_, _ = store.Transition(appt.ID, appointment.EventCancel, appointment.Payload{})
			case gofakeit.Float64Range(0, 1) < 0.2:
				med := medicines[gofakeit.Number(0, len(medicines)-1)]
				_, err := store.Transition(appt.ID, appointment.EventComplete, appointment.Payload{
					Notes: gofakeit.Sentence(8),
					Prescriptions: []appointment.Prescription{
						{Medicine: med.Name, Dosage: gofakeit.Number(1, 3) * 250, Status: appointment.PrescriptionPending},
					},
				})
				if err == nil {
					completed++
				}
			}
		}
	}

	fileStore := appointment.NewFileStore(path, logger)
	if err := fileStore.Save(store.Snapshot(), false); err != nil {
		logger.Fatal().Err(err).Msg("write appointment file")
	}
	logger.Info().
		Int("appointments", store.Len()).
		Int("booked", booked).
		Int("completed", completed).
		Msg("appointments seeded")
}

func writeFile(logger zerolog.Logger, path string, rows [][]string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("create directory")
	}

	f, err := os.Create(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("write file")
	}
}
