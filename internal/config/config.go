package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers accepted in database.driver
const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Loans     LoanConfig      `yaml:"loans"`
	Cache     CacheConfig     `yaml:"cache"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains listener settings for the REST and gRPC servers
type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres", "pgx" or "memory"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LoanConfig contains the loan policy and transaction retry settings
type LoanConfig struct {
	DefaultPeriodDays    int `yaml:"default_period_days"`
	DefaultExtensionDays int `yaml:"default_extension_days"`
	MaxDays              int `yaml:"max_days"` // upper bound for a requested period or extension
	MaxActiveLoans       int `yaml:"max_active_loans"`
	MaxTxAttempts        int `yaml:"max_tx_attempts"`
	RetryBackoffMs       int `yaml:"retry_backoff_ms"`
}

// CacheConfig sizes the statistics cache
type CacheConfig struct {
	Size       int `yaml:"size"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// SendGridConfig contains email delivery settings. An empty APIKey selects the log-only mailer.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	SendOverdueReminders   string `yaml:"send_overdue_reminders"`
	PurgeStaleReservations string `yaml:"purge_stale_reservations"`
	ReservationTTLDays     int    `yaml:"reservation_ttl_days"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}
	if val := os.Getenv("SERVER_GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Loans
	if val := os.Getenv("LOAN_MAX_ACTIVE"); val != "" {
		fmt.Sscanf(val, "%d", &c.Loans.MaxActiveLoans)
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Loans.DefaultPeriodDays == 0 {
		c.Loans.DefaultPeriodDays = 14
	}
	if c.Loans.DefaultExtensionDays == 0 {
		c.Loans.DefaultExtensionDays = 7
	}
	if c.Loans.MaxDays == 0 {
		c.Loans.MaxDays = 365
	}
	if c.Loans.MaxActiveLoans == 0 {
		c.Loans.MaxActiveLoans = 5
	}
	if c.Loans.MaxTxAttempts == 0 {
		c.Loans.MaxTxAttempts = 3
	}
	if c.Loans.RetryBackoffMs == 0 {
		c.Loans.RetryBackoffMs = 20
	}

	if c.Cache.Size == 0 {
		c.Cache.Size = 256
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}

	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Library"
	}

	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 8 * * *" // 8 AM UTC
	}
	if c.Scheduler.PurgeStaleReservations == "" {
		c.Scheduler.PurgeStaleReservations = "0 30 2 * * *" // 2:30 AM UTC
	}
	if c.Scheduler.ReservationTTLDays == 0 {
		c.Scheduler.ReservationTTLDays = 30
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	// Database validation
	switch c.Database.Driver {
	case DriverPostgres, DriverPGX:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Database.Driver != DriverMemory && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Loan policy validation
	if c.Loans.DefaultPeriodDays < 1 {
		return fmt.Errorf("default loan period must be at least 1 day")
	}
	if c.Loans.DefaultExtensionDays < 1 {
		return fmt.Errorf("default extension must be at least 1 day")
	}
	if c.Loans.MaxDays < 1 || c.Loans.MaxDays > 3650 {
		return fmt.Errorf("max_days must be between 1 and 3650")
	}
	if c.Loans.DefaultPeriodDays > c.Loans.MaxDays || c.Loans.DefaultExtensionDays > c.Loans.MaxDays {
		return fmt.Errorf("default loan period and extension must not exceed max_days (%d)", c.Loans.MaxDays)
	}
	if c.Loans.MaxActiveLoans < 1 {
		return fmt.Errorf("max active loans must be at least 1")
	}
	if c.Loans.MaxTxAttempts < 1 {
		return fmt.Errorf("max transaction attempts must be at least 1")
	}

	format := strings.ToLower(c.Log.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("unsupported log format: %q", c.Log.Format)
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetHTTPAddress returns the REST server address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// GetGRPCAddress returns the gRPC server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (l LoanConfig) RetryBackoff() time.Duration {
	return time.Duration(l.RetryBackoffMs) * time.Millisecond
}
