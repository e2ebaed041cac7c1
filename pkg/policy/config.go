package policy

import "os"

// Config holds service configuration.
type Config struct {
	LogLevel     string
	DatabaseURL  string
	RedisAddr    string
	ProfilesDir  string
	Profile      string
	OTLPEndpoint string
}

// LoadConfig loads service configuration from environment variables.
func LoadConfig() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to a local sqlite file
		dbURL = "adjudex.db"
	}

	profile := os.Getenv("POLICY_PROFILE")
	if profile == "" {
		profile = "default"
	}

	return &Config{
		LogLevel:     logLevel,
		DatabaseURL:  dbURL,
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		ProfilesDir:  os.Getenv("POLICY_PROFILES_DIR"),
		Profile:      profile,
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
	}
}
