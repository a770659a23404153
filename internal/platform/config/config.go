package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strutil "siren/pkg/platform/strings"
)

// DefaultRegistryURL is the production INPI RNE endpoint.
const DefaultRegistryURL = "https://registre-national-entreprises.inpi.fr"

// Config is the full process configuration.
type Config struct {
	Server   Server
	Log      Log
	Registry Registry
	Redis    RedisConfig
	Database Database
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AdminAPIToken   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Registry configures the upstream company registry.
type Registry struct {
	BaseURL       string
	Email         string
	Password      string
	Timeout       time.Duration
	TokenValidity time.Duration
	AuthTimeout   time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	RateLimit     float64
	RateBurst     int
}

// RedisConfig configures the shared token store. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	TokenKey     string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Database configures the record store. An empty URL keeps records in memory.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Kafka configures the audit sink. No brokers keeps audit events in memory.
type Kafka struct {
	Brokers           []string
	AuditTopic        string
	Partitions        int32
	ReplicationFactor int16
	AuditBuffer       int
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	r := reader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("SIREN_ADDR", ":8080"),
			JWTSigningKey:   r.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       r.str("JWT_ISSUER", "siren"),
			JWTAudience:     r.str("JWT_AUDIENCE", "siren-api"),
			AdminAPIToken:   r.str("ADMIN_API_TOKEN", ""),
			RequestTimeout:  r.duration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: Log{
			Level:  r.str("LOG_LEVEL", "info"),
			Format: r.str("LOG_FORMAT", "json"),
		},
		Registry: Registry{
			BaseURL:       r.str("INPI_BASE_URL", DefaultRegistryURL),
			Email:         r.str("INPI_EMAIL", ""),
			Password:      r.str("INPI_PASSWORD", ""),
			Timeout:       r.duration("INPI_TIMEOUT", 10*time.Second),
			TokenValidity: r.duration("INPI_TOKEN_VALIDITY", time.Hour),
			AuthTimeout:   r.duration("INPI_AUTH_TIMEOUT", 30*time.Second),
			MaxRetries:    r.integer("INPI_MAX_RETRIES", 2),
			RetryDelay:    r.duration("INPI_RETRY_DELAY", 200*time.Millisecond),
			RateLimit:     r.float("INPI_RATE_LIMIT", 0),
			RateBurst:     r.integer("INPI_RATE_BURST", 1),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			TokenKey:     r.str("REDIS_TOKEN_KEY", "siren:registry:token"),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: Database{
			URL:             r.str("DATABASE_URL", ""),
			MaxOpenConns:    r.integer("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    r.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: Kafka{
			Brokers:           r.list("KAFKA_BROKERS"),
			AuditTopic:        r.str("KAFKA_AUDIT_TOPIC", "siren.audit"),
			Partitions:        int32(r.integer("KAFKA_AUDIT_PARTITIONS", 1)),
			ReplicationFactor: int16(r.integer("KAFKA_AUDIT_REPLICATION", 1)),
			AuditBuffer:       r.integer("AUDIT_BUFFER", 256),
		},
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Registry.Email == "" || c.Registry.Password == "" {
		errs = append(errs, errors.New("INPI_EMAIL and INPI_PASSWORD are required"))
	}
	if c.Registry.MaxRetries < 0 {
		errs = append(errs, errors.New("INPI_MAX_RETRIES must not be negative"))
	}
	if c.Registry.TokenValidity <= 0 {
		errs = append(errs, errors.New("INPI_TOKEN_VALIDITY must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) list(key string) []string {
	return strutil.SplitList(r.str(key, ""))
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}
