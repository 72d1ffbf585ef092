package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full process configuration. Every key can be set in the
// environment or a local .env file.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	School    SchoolConfig
	Timetable TimetableConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles the redis read cache for the academic period and timetable grids.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SchoolConfig holds identifiers used when enrolling students.
type SchoolConfig struct {
	Name               string
	AdmissionPrefix    string
	StudentEmailDomain string
}

// TimetableConfig describes the column set synthesised for days without rows.
type TimetableConfig struct {
	Periods         int
	FridayPeriods   int
	PeriodMinutes   int
	Start           string
	FridayStart     string
	AssemblyMinutes int
	BreakMinutes    int
	BreakAfter      int
}

// ExportsConfig configures asynchronous broadsheet exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// Load reads .env (when present) and the process environment, the latter
// taking precedence, and rejects settings that are unsafe in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !missingFile(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func missingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	var pathErr *fs.PathError
	return errors.As(err, &notFound) || errors.As(err, &pathErr)
}

// Validate refuses to start a production process on the development secrets.
func (c *Config) Validate() error {
	if c.Env != EnvProduction {
		return nil
	}
	if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	if c.Exports.Enabled && (c.Exports.SignedURLSecret == "" || c.Exports.SignedURLSecret == devExportSecret) {
		return errors.New("config: EXPORTS_SIGNED_URL_SECRET must be set when exports are enabled in production")
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.School = SchoolConfig{
		Name:               v.GetString("SCHOOL_NAME"),
		AdmissionPrefix:    v.GetString("ADMISSION_NUMBER_PREFIX"),
		StudentEmailDomain: v.GetString("STUDENT_EMAIL_DOMAIN"),
	}

	cfg.Timetable = TimetableConfig{
		Periods:         positiveOr(v.GetInt("TIMETABLE_PERIODS"), 8),
		FridayPeriods:   positiveOr(v.GetInt("TIMETABLE_FRIDAY_PERIODS"), 6),
		PeriodMinutes:   positiveOr(v.GetInt("TIMETABLE_PERIOD_MINUTES"), 40),
		Start:           v.GetString("TIMETABLE_START"),
		FridayStart:     v.GetString("TIMETABLE_FRIDAY_START"),
		AssemblyMinutes: v.GetInt("TIMETABLE_ASSEMBLY_MINUTES"),
		BreakMinutes:    v.GetInt("TIMETABLE_BREAK_MINUTES"),
		BreakAfter:      positiveOr(v.GetInt("TIMETABLE_BREAK_AFTER"), 4),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	return cfg
}

const (
	devJWTSecret    = "dev_secret"
	devExportSecret = "dev_exports_secret"
)

var defaults = map[string]interface{}{
	"ENV":        EnvDevelopment,
	"PORT":       8080,
	"API_PREFIX": "/api/v1",

	"DB_HOST":           "localhost",
	"DB_PORT":           5432,
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "aladab_school",
	"DB_SSL_MODE":       "disable",
	"DB_MAX_OPEN_CONNS": 10,
	"DB_MAX_IDLE_CONNS": 5,

	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET":               devJWTSecret,
	"JWT_EXPIRATION":           "24h",
	"REFRESH_TOKEN_EXPIRATION": "168h",

	"ALLOWED_ORIGINS": "",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",

	"ENABLE_CACHE": false,
	"CACHE_TTL":    "10m",

	"SCHOOL_NAME":             "Al-Adab Schools",
	"ADMISSION_NUMBER_PREFIX": "ALD",
	"STUDENT_EMAIL_DOMAIN":    "student.aladab.com",

	"TIMETABLE_PERIODS":          8,
	"TIMETABLE_FRIDAY_PERIODS":   6,
	"TIMETABLE_PERIOD_MINUTES":   40,
	"TIMETABLE_START":            "08:00",
	"TIMETABLE_FRIDAY_START":     "08:00",
	"TIMETABLE_ASSEMBLY_MINUTES": 15,
	"TIMETABLE_BREAK_MINUTES":    30,
	"TIMETABLE_BREAK_AFTER":      4,

	"ENABLE_EXPORTS":             false,
	"EXPORTS_STORAGE_DIR":        "./exports",
	"EXPORTS_SIGNED_URL_SECRET":  devExportSecret,
	"EXPORTS_SIGNED_URL_TTL":     "24h",
	"EXPORTS_CLEANUP_INTERVAL":   "1h",
	"EXPORTS_WORKER_CONCURRENCY": 1,
	"EXPORTS_WORKER_RETRIES":     3,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// parseDuration falls back on empty, unparsable and non-positive values.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
