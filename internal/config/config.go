package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string        // dev, prod
	HTTPPort        string        // default 8080
	DataFile        string        // appointment table flat file
	DoctorsFile     string        // doctor directory flat file
	PatientsFile    string        // patient directory flat file
	MedicinesFile   string        // medicine inventory flat file
	BackupOnSave    bool          // timestamped backup before each table rewrite
	PostgresDSN     string        // optional: resolve doctors/patients from Postgres instead of flat files
	ShutdownTimeout time.Duration // graceful shutdown timeout
	LogLevel        string        // zerolog level name
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DataFile:        getEnv("DATA_FILE", "data/appointments.csv"),
		DoctorsFile:     getEnv("DOCTORS_FILE", "data/doctors.csv"),
		PatientsFile:    getEnv("PATIENTS_FILE", "data/patients.csv"),
		MedicinesFile:   getEnv("MEDICINES_FILE", "data/medicines.csv"),
		BackupOnSave:    getBool("BACKUP_ON_SAVE", true),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DataFile == "" {
		return Config{}, fmt.Errorf("DATA_FILE must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		fmt.Fprintf(os.Stderr, "invalid boolean for %s=%q, using default %v\n", key, v, def)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}
