package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits the allowed-origins list
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  The JWT secret is loaded once here and injected into the
// token issuer and verifier; it is never mutated at runtime.
type Config struct {
	Env            string   // application environment (e.g. "dev", "prod")
	Port           string   // HTTP port to listen on
	DatabaseURL    string   // Postgres connection string
	JWTSecret      string   // secret used to sign and verify JWTs
	TokenTTLDays   int      // access token time-to-live in days
	BcryptCost     int      // bcrypt cost for password hashing
	AllowedOrigins []string // origins allowed to call the API with credentials
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Token TTL, bcrypt
// cost and the CORS origin list fall back to the defaults the frontend is
// deployed against.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DatabaseURL:    must("DATABASE_URL"), // Postgres DSN
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		TokenTTLDays:   envInt("TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		AllowedOrigins: splitOrigins(envStr("ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// splitOrigins parses a comma-separated origin list, dropping empty entries.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}
