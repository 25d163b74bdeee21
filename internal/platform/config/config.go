package config

import (
	"os"
	"strings"
)

// Server captures process-level configuration. Challenge tuning (cooldown,
// dismiss delay) lives in internal/disclosure/config next to the code it governs.
type Server struct {
	Addr           string
	BackendBaseURL string
	RedisURL       string
	DatabaseURL    string
	KafkaBrokers   []string
	KafkaTopic     string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("PAKNGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	backendURL := os.Getenv("PAKN_BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:5000"
	}

	topic := os.Getenv("PAKNGATE_AUDIT_TOPIC")
	if topic == "" {
		topic = "pakn.audit"
	}

	var brokers []string
	if raw := os.Getenv("PAKNGATE_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:           addr,
		BackendBaseURL: backendURL,
		RedisURL:       os.Getenv("PAKNGATE_REDIS_URL"),
		DatabaseURL:    os.Getenv("PAKNGATE_DATABASE_URL"),
		KafkaBrokers:   brokers,
		KafkaTopic:     topic,
	}
}
