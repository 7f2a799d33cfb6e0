// simulate drives a running api-server through whole appointment lifecycles
// (generate, book, cancel, outcome, dispense) and reports per-operation
// latency and outcome statistics. It is sequential: the scheduling core is
// single-actor, so the simulator behaves like one busy front desk.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

type SimConfig struct {
	APIBaseURL   string
	Cycles       int     // lifecycle rounds per doctor
	BookRatio    float64 // share of open slots booked each round
	CancelRatio  float64 // share of bookings cancelled again
	OutcomeRatio float64 // share of bookings completed with an outcome
	DoctorsFile  string
	PatientsFile string
}

type opStats struct {
	Total     int
	Success   int
	Conflict  int
	Error     int
	Latencies []time.Duration
}

func (s *opStats) Record(latency time.Duration, status int) {
	s.Total++
	switch {
	case status >= 200 && status < 300:
		s.Success++
	case status == http.StatusConflict:
		s.Conflict++
	default:
		s.Error++
	}
	s.Latencies = append(s.Latencies, latency)
}

func (s *opStats) Stats() (avg, p50, p95 time.Duration) {
	if len(s.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(s.Latencies))
	copy(latencies, s.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(pct int) int {
		i := len(latencies) * pct / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return i
	}
	return avg, latencies[idx(50)], latencies[idx(95)]
}

type Simulator struct {
	cfg      SimConfig
	client   *http.Client
	rng      *rand.Rand
	doctors  []string
	patients []string

	generate opStats
	book     opStats
	cancel   opStats
	outcome  opStats
	dispense opStats
	read     opStats
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	doctors, err := readIDs(cfg.DoctorsFile)
	if err != nil {
		log.Fatalf("load doctors: %v", err)
	}
	patients, err := readIDs(cfg.PatientsFile)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(doctors) == 0 || len(patients) == 0 {
		log.Fatal("no doctors or patients; run the seed command first")
	}
	log.Printf("loaded: %d doctors, %d patients", len(doctors), len(patients))

	sim := &Simulator{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		doctors:  doctors,
		patients: patients,
	}

	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Cycles:       getInt("SIM_CYCLES", 3),
		BookRatio:    getFloat("SIM_BOOK_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.15),
		OutcomeRatio: getFloat("SIM_OUTCOME_RATIO", 0.3),
		DoctorsFile:  baseCfg.DoctorsFile,
		PatientsFile: baseCfg.PatientsFile,
	}
}

func (s *Simulator) Run() {
	for cycle := 0; cycle < s.cfg.Cycles; cycle++ {
		for _, doctorID := range s.doctors {
			s.runDoctor(doctorID)
		}
		log.Printf("cycle %d/%d complete", cycle+1, s.cfg.Cycles)
	}
}

// runDoctor plays one doctor's week: generate the grid, book a share of the
// open slots, then cancel or complete some of the bookings.
func (s *Simulator) runDoctor(doctorID string) {
	s.post(&s.generate, "/doctors/"+doctorID+"/schedule/generate", nil)

	open := s.listAppointments(doctorID, "PENDING")
	var booked []string
	for _, id := range open {
		if s.rng.Float64() > s.cfg.BookRatio {
			continue
		}
		patientID := s.patients[s.rng.Intn(len(s.patients))]
		status := s.post(&s.book, "/appointments/"+id+"/book", map[string]any{"patient_id": patientID})
		if status == http.StatusOK {
			booked = append(booked, id)
		}
	}

	for _, id := range booked {
		r := s.rng.Float64()
		switch {
		case r < s.cfg.CancelRatio:
			s.post(&s.cancel, "/appointments/"+id+"/cancel", nil)
		case r < s.cfg.CancelRatio+s.cfg.OutcomeRatio:
			status := s.post(&s.outcome, "/appointments/"+id+"/outcome", map[string]any{
				"notes": "Simulated consultation",
				"prescriptions": []map[string]any{
					{"medicine": "Ibuprofen", "dosage": 400},
				},
			})
			if status == http.StatusOK && s.rng.Float64() < 0.5 {
				s.post(&s.dispense, "/appointments/"+id+"/prescriptions/Ibuprofen/dispense", nil)
			}
		}
	}
}

func (s *Simulator) listAppointments(doctorID, status string) []string {
	start := time.Now()
	resp, err := s.client.Get(s.cfg.APIBaseURL + "/doctors/" + doctorID + "/appointments?status=" + status)
	if err != nil {
		s.read.Record(time.Since(start), 0)
		return nil
	}
	defer resp.Body.Close()
	s.read.Record(time.Since(start), resp.StatusCode)

	var appts []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&appts); err != nil {
		return nil
	}

	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.ID)
	}
	return ids
}

func (s *Simulator) post(stats *opStats, path string, body map[string]any) int {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	start := time.Now()
	req, _ := http.NewRequest(http.MethodPost, s.cfg.APIBaseURL+path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		stats.Record(latency, 0)
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	stats.Record(latency, resp.StatusCode)
	return resp.StatusCode
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println("=== simulation report ===")
	printOp("generate", &s.generate)
	printOp("read", &s.read)
	printOp("book", &s.book)
	printOp("cancel", &s.cancel)
	printOp("outcome", &s.outcome)
	printOp("dispense", &s.dispense)
}

func printOp(name string, stats *opStats) {
	if stats.Total == 0 {
		return
	}
	avg, p50, p95 := stats.Stats()
	fmt.Printf("%-10s total=%-5d success=%-5d conflict=%-4d error=%-4d avg=%-10s p50=%-10s p95=%s\n",
		name, stats.Total, stats.Success, stats.Conflict, stats.Error, avg, p50, p95)
}

// readIDs pulls the first column out of a directory flat file, skipping the
// header row.
func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var ids []string
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue
		}
		if len(rec) > 0 && rec[0] != "" {
			ids = append(ids, rec[0])
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
