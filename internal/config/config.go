package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/health-attestation-server/internal/domain"
)

// EnvPrefix is the prefix of every environment override, e.g. HEALTH_ATTEST_LEDGER_GATEWAY_API_TOKEN.
const EnvPrefix = "HEALTH_ATTEST"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile loads configuration from an explicit file when path is
// non-empty, falling back to the default search paths otherwise.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/health-attestation/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults registers a default for every key so that AutomaticEnv can
// override keys that never appear in a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")

	// Ledger defaults
	v.SetDefault("ledger.backend", domain.LedgerBackendLocal)
	v.SetDefault("ledger.data_source", "attestation_engine_verified")
	v.SetDefault("ledger.submit_timeout", "60s")
	v.SetDefault("ledger.local.path", "./data/ledger")
	v.SetDefault("ledger.local.owner", "attestation-service")
	v.SetDefault("ledger.local.signer", "attestation-service")
	v.SetDefault("ledger.gateway.base_url", "")
	v.SetDefault("ledger.gateway.api_token", "")
	v.SetDefault("ledger.gateway.timeout", "45s")
	v.SetDefault("ledger.gateway.rate_limit", 5)
	v.SetDefault("ledger.gateway.retry_count", 3)

	// Store defaults
	v.SetDefault("store.backend", domain.StoreBackendMemory)
	v.SetDefault("store.sqlite_path", "./data/submissions.db")
	v.SetDefault("store.redis_url", "redis://localhost:6379")
	v.SetDefault("store.key_prefix", "health-attest")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "health_attestation")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "./migrations")

	// Attestation defaults
	v.SetDefault("attestation.verified_by", "attestation-engine")
	v.SetDefault("attestation.version", "1.0")
	v.SetDefault("attestation.idempotency_ttl", "24h")
	v.SetDefault("attestation.idempotency_size", 10000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// MCP defaults
	v.SetDefault("mcp.server_name", "health-attestation-mcp")
	v.SetDefault("mcp.server_version", "v0.1.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetLedgerConfig returns ledger configuration
func (m *Manager) GetLedgerConfig() *domain.LedgerConfig {
	return &m.config.Ledger
}

// GetStoreConfig returns submission store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TLSEnabled && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("TLS enabled but cert_file or key_file is missing")
	}

	switch config.Ledger.Backend {
	case domain.LedgerBackendLocal:
		if config.Ledger.Local.Path == "" {
			return fmt.Errorf("local ledger path is required")
		}
		if config.Ledger.Local.Owner == "" || config.Ledger.Local.Signer == "" {
			return fmt.Errorf("local ledger owner and signer are required")
		}
	case domain.LedgerBackendGateway:
		if config.Ledger.Gateway.BaseURL == "" {
			return fmt.Errorf("ledger gateway base URL is required")
		}
		if config.Ledger.Gateway.RateLimit <= 0 {
			return fmt.Errorf("invalid ledger gateway rate limit: %d", config.Ledger.Gateway.RateLimit)
		}
	default:
		return fmt.Errorf("unknown ledger backend: %q", config.Ledger.Backend)
	}
	if config.Ledger.DataSource == "" {
		return fmt.Errorf("ledger data source is required")
	}

	switch config.Store.Backend {
	case domain.StoreBackendMemory:
	case domain.StoreBackendSQLite:
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case domain.StoreBackendRedis:
		if config.Store.RedisURL == "" {
			return fmt.Errorf("Redis URL is required")
		}
	case domain.StoreBackendPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", config.Store.Backend)
	}

	if config.Attestation.VerifiedBy == "" || config.Attestation.Version == "" {
		return fmt.Errorf("attestation verified_by and version are required")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a postgres URL suitable for both pgx and golang-migrate
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Database,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
