package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/reed/pkg/database"
	"github.com/Ramsey-B/reed/pkg/matching"
)

// Catalog backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"reed-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Time allowed for in-flight requests and imports on shutdown
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`

	// postgres or memory
	CatalogBackend string `env:"CATALOG_BACKEND" env-default:"postgres"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"reed"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version, 0 migrates up to the latest
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Auth Enabled - when false every request is anonymous
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// Auth Issuer URL
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`

	// Redis host, empty disables collection locks and the job mirror
	RedisHost string `env:"REDIS_HOST" env-default:""`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`
	// How long a collection stays locked without an extension
	ImportLockTTL time.Duration `env:"IMPORT_LOCK_TTL" env-default:"2m"`
	// How long an import waits for a collection another import holds
	ImportLockWait time.Duration `env:"IMPORT_LOCK_WAIT" env-default:"30s"`
	// Pause between lock attempts while waiting
	ImportLockRetryInterval time.Duration `env:"IMPORT_LOCK_RETRY_INTERVAL" env-default:"1s"`

	// Kafka brokers (comma-separated), empty disables catalog events
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:""`
	// Kafka topic for catalog and import events
	KafkaEventTopic string `env:"KAFKA_EVENT_TOPIC" env-default:"catalog-events"`

	// Tracing settings
	// OTLP collector endpoint, empty logs spans instead of exporting them
	OTLPEndpoint string `env:"OTEL_EXPORTER_ENDPOINT" env-default:""`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTEL_EXPORTER_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTEL_EXPORTER_INSECURE" env-default:"true"`
	// Fraction of root traces sampled
	OTLPSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" env-default:"1"`

	// How long finished import jobs stay queryable
	JobRetention time.Duration `env:"IMPORT_JOB_RETENTION" env-default:"5m"`

	// Matching thresholds
	MatchMinScore            float64 `env:"MATCH_MIN_SCORE" env-default:"0.6"`
	MatchAutoScore           float64 `env:"MATCH_AUTO_SCORE" env-default:"0.9"`
	MatchMinGap              float64 `env:"MATCH_MIN_GAP" env-default:"0.1"`
	MatchMaxResults          int     `env:"MATCH_MAX_RESULTS" env-default:"10"`
	MatchSubstringScore      float64 `env:"MATCH_SUBSTRING_SCORE" env-default:"0.95"`
	MatchTokenScore          float64 `env:"MATCH_TOKEN_SCORE" env-default:"0.9"`
	MatchPartialTokenBase    float64 `env:"MATCH_PARTIAL_TOKEN_BASE" env-default:"0.7"`
	MatchPartialTokenWeight  float64 `env:"MATCH_PARTIAL_TOKEN_WEIGHT" env-default:"0.15"`
	MatchTokenEditThreshold  float64 `env:"MATCH_TOKEN_EDIT_THRESHOLD" env-default:"0.8"`
	MatchMinEditTokenLength  int     `env:"MATCH_MIN_EDIT_TOKEN_LENGTH" env-default:"3"`
	MatchCandidateSampleSize int     `env:"MATCH_CANDIDATE_SAMPLE_SIZE" env-default:"200"`
}

// Load reads an optional .env file and binds the environment onto a Config
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		UserName:        c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c *Config) MigrationConfig() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DatabaseMigrationFolderPath,
		Version:             uint(max(c.DatabaseMigrationVersion, 0)),
		Force:               c.DatabaseMigrationForce,
		AutoRollback:        c.DatabaseMigrationAutoRollback,
	}
}

// MatchingConfig maps the threshold settings onto the matcher configuration
func (c *Config) MatchingConfig() matching.Config {
	return matching.Config{
		MinScore:            c.MatchMinScore,
		AutoMatchScore:      c.MatchAutoScore,
		MinGap:              c.MatchMinGap,
		MaxResults:          c.MatchMaxResults,
		SubstringScore:      c.MatchSubstringScore,
		TokenMatchScore:     c.MatchTokenScore,
		PartialTokenBase:    c.MatchPartialTokenBase,
		PartialTokenWeight:  c.MatchPartialTokenWeight,
		TokenEditThreshold:  c.MatchTokenEditThreshold,
		MinEditTokenLength:  c.MatchMinEditTokenLength,
		CandidateSampleSize: c.MatchCandidateSampleSize,
	}
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) KafkaEnabled() bool {
	return c.KafkaBrokers != ""
}
