package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.  Feature specific settings (payments, mail,
// broker, cache, rate limiting) have their own loaders in this package.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBDriver  string // mysql (default) or postgres
	DBUser    string
	DBPass    string // optional
	DBHost    string
	DBPort    string
	DBName    string
	DBMigrate bool   // apply the embedded schema on start
	JWTSecret string // secret used to verify access tokens

	LogLevel     string // debug, info, warn, error
	LogFormat    string // json or text
	LogAddSource bool

	TicketDir            string        // root directory of generated documents
	PaymentVerifyTimeout time.Duration // bound on provider verification calls
	CronEnabled          bool          // run background jobs in this process
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      strconv.Itoa(mustInt("APP_PORT")),
		DBDriver:  envStr("DB_DRIVER", "mysql"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		DBMigrate: envBool("DB_MIGRATE", false),
		JWTSecret: must("JWT_SECRET"),

		LogLevel:     envStr("LOG_LEVEL", "info"),
		LogFormat:    envStr("LOG_FORMAT", "text"),
		LogAddSource: envBool("LOG_ADD_SOURCE", false),

		TicketDir:            envStr("TICKET_DIR", "storage"),
		PaymentVerifyTimeout: envDur("PAYMENT_VERIFY_TIMEOUT", 8*time.Second),
		CronEnabled:          envBool("CRON_ENABLED", true),
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
