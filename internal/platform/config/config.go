package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration

	// Audit sink wiring. Empty values disable the corresponding backend;
	// with neither Postgres nor Kafka configured, events stay in memory.
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string
	AuditBuffer  int

	// StrictExceptionGaps logs incomplete trails on failed operations at
	// error level instead of warn. The gap is never raised as an error of
	// its own either way.
	StrictExceptionGaps bool

	RedisURL string
	Tracing  bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AUDITFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenTTL := 15 * time.Minute
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			tokenTTL = d
		}
	}

	buffer := 1024
	if v := os.Getenv("AUDIT_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			buffer = n
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return Server{
		Addr:                addr,
		JWTSigningKey:       jwtSigningKey,
		TokenTTL:            tokenTTL,
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		KafkaBrokers:        brokers,
		KafkaTopic:          os.Getenv("KAFKA_AUDIT_TOPIC"),
		AuditBuffer:         buffer,
		StrictExceptionGaps: os.Getenv("STRICT_EXCEPTION_GAPS") == "true",
		RedisURL:            os.Getenv("REDIS_URL"),
		Tracing:             os.Getenv("OTEL_TRACING") == "true",
	}
}
