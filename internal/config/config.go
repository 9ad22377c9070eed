package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Collaborator API
	HospitalAPIBaseURL    string
	HospitalAPITimeout    time.Duration
	HospitalAPIRatePerSec float64
	DefaultHospitalID     string
	AppointmentIDPrefix   string

	// Conversation behaviour
	DefaultLanguage     string
	Timezone            string
	FlowStateTTL        time.Duration
	VoiceResponseWindow time.Duration
	VoiceMaxRetries     int
	EditWindow          time.Duration
	DateHorizonDays     int

	// Redis backs flow state, transcripts and the widget config cache.
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	TranscriptLimit int64
	WidgetConfigTTL time.Duration

	// Outcome outbox
	DatabaseURL         string
	OutboxPollInterval  time.Duration
	AMQPURL             string
	AMQPExchange        string
	PersistFlowOutcomes bool

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	AdminJWTSecret     string
	WidgetScriptPath   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HospitalAPIBaseURL:    strings.TrimRight(getEnv("HOSPITAL_API_BASE_URL", "http://localhost:5000"), "/"),
		HospitalAPITimeout:    getEnvAsDuration("HOSPITAL_API_TIMEOUT", 15*time.Second),
		HospitalAPIRatePerSec: getEnvAsFloat("HOSPITAL_API_RATE_PER_SEC", 20),
		DefaultHospitalID:     getEnv("DEFAULT_HOSPITAL_ID", "xyz_hospital"),
		AppointmentIDPrefix:   getEnv("APPOINTMENT_ID_PREFIX", "XYZ_"),

		DefaultLanguage:     strings.ToLower(getEnv("DEFAULT_LANGUAGE", "en")),
		Timezone:            getEnv("TIMEZONE", "Asia/Kolkata"),
		FlowStateTTL:        getEnvAsDuration("FLOW_STATE_TTL", 24*time.Hour),
		VoiceResponseWindow: getEnvAsDuration("VOICE_RESPONSE_WINDOW", 30*time.Second),
		VoiceMaxRetries:     getEnvAsInt("VOICE_MAX_RETRIES", 2),
		EditWindow:          getEnvAsDuration("EDIT_WINDOW", 6*time.Hour),
		DateHorizonDays:     getEnvAsInt("DATE_HORIZON_DAYS", 14),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		TranscriptLimit: int64(getEnvAsInt("TRANSCRIPT_LIMIT", 250)),
		WidgetConfigTTL: getEnvAsDuration("WIDGET_CONFIG_TTL", 10*time.Minute),

		DatabaseURL:         getEnv("DATABASE_URL", ""),
		OutboxPollInterval:  getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		AMQPURL:             getEnv("AMQP_URL", ""),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "hospital.flow_outcomes"),
		PersistFlowOutcomes: getEnvAsBool("PERSIST_FLOW_OUTCOMES", true),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		WidgetScriptPath:   getEnv("WIDGET_SCRIPT_PATH", ""),
	}
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
