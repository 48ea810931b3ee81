package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Store       StoreConfig       `mapstructure:"store"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Attestation AttestationConfig `mapstructure:"attestation"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	MCP         MCPConfig         `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
	CertFile     string        `mapstructure:"cert_file"`
	KeyFile      string        `mapstructure:"key_file"`
}

// Ledger backends
const (
	LedgerBackendLocal   = "local"
	LedgerBackendGateway = "gateway"
)

// LedgerConfig selects and configures the trust ledger client
type LedgerConfig struct {
	Backend       string              `mapstructure:"backend"`
	DataSource    string              `mapstructure:"data_source"`
	SubmitTimeout time.Duration       `mapstructure:"submit_timeout"`
	Local         LocalLedgerConfig   `mapstructure:"local"`
	Gateway       GatewayLedgerConfig `mapstructure:"gateway"`
}

// LocalLedgerConfig configures the embedded LevelDB ledger
type LocalLedgerConfig struct {
	Path   string `mapstructure:"path"`
	Owner  string `mapstructure:"owner"`
	Signer string `mapstructure:"signer"`
}

// GatewayLedgerConfig configures the HTTP ledger gateway client.
// APIToken is a secret and must come from the environment or a secret store.
type GatewayLedgerConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIToken   string        `mapstructure:"api_token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RetryCount int           `mapstructure:"retry_count"`
}

// Store backends
const (
	StoreBackendMemory   = "memory"
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

// StoreConfig selects the submission store backend
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	RedisURL   string `mapstructure:"redis_url"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// DatabaseConfig represents PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// AttestationConfig carries the constants stamped into every attestation
type AttestationConfig struct {
	VerifiedBy      string        `mapstructure:"verified_by"`
	Version         string        `mapstructure:"version"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
	IdempotencySize int           `mapstructure:"idempotency_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
