// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Completion    CompletionConfig    `mapstructure:"completion"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// EngineConfig holds the answer-pipeline tuning knobs. Every constant the
// pipeline depends on (similarity floor, separators, retry budgets) lives
// here rather than in code.
type EngineConfig struct {
	Preset             string  `mapstructure:"preset"`
	SimilarityFloor    float64 `mapstructure:"similarity_floor"`
	ListSeparator      string  `mapstructure:"list_separator"`
	MaxPassages        int     `mapstructure:"max_passages"`
	RetrievalAttempts  int     `mapstructure:"retrieval_attempts"`
	CompletionAttempts int     `mapstructure:"completion_attempts"`
	BackoffInitialMs   int     `mapstructure:"backoff_initial_ms"`
	RetrievalTimeoutMs int     `mapstructure:"retrieval_timeout_ms"`
	CompletionTimeout  int     `mapstructure:"completion_timeout_ms"`
	CacheTTLMs         int     `mapstructure:"cache_ttl_ms"`
	CacheEnabled       bool    `mapstructure:"cache_enabled"`

	// Administrative configuration sources.
	ClientSource  string `mapstructure:"client_source"` // "file" or "postgres"
	TemplatesPath string `mapstructure:"templates_path"`
	ClientsDir    string `mapstructure:"clients_dir"`
}

type ServerConfig struct {
	Port              int `mapstructure:"port"`
	ReadTimeoutMs     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeoutMs    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeoutMs int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CompletionConfig holds settings for the completion backend.
type CompletionConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds tracing/metering settings.
type ObservabilityConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
