package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DatabaseURL            string
	SchedulerInterval      time.Duration
	SchedulerBatchSize     int
	LeaveWindow            time.Duration
	TransferWindow         time.Duration
	CancelCutoff           time.Duration
	DefaultNotifyFrequency int
	PushProvider           string
}

func Load() Config {
	// Best-effort: absent .env files are the normal case in
	// containerized deploys.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                   port,
		DatabaseURL:            os.Getenv("DB_DSN"),
		SchedulerInterval:      readDurationSeconds("SCHEDULER_INTERVAL_SECONDS", 60),
		SchedulerBatchSize:     readInt("SCHEDULER_BATCH_SIZE", 100),
		LeaveWindow:            readDurationSeconds("LEAVE_WINDOW_SECONDS", 180),
		TransferWindow:         readDurationSeconds("TRANSFER_WINDOW_SECONDS", 120),
		CancelCutoff:           time.Duration(readInt("CANCEL_CUTOFF_HOURS", 24)) * time.Hour,
		DefaultNotifyFrequency: readInt("DEFAULT_NOTIFY_FREQUENCY_MINUTES", 5),
		PushProvider:           os.Getenv("NOTIF_PUSH_PROVIDER"),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
