package config

import (
	"time"
)

// Default configuration values.
const (
	defaultServiceName       = "url-sentinel"
	defaultServiceVersion    = "1.0.0"
	defaultServicePort       = 8070
	defaultRetrainThreshold  = 1000
	defaultExtractionWorkers = 8
	defaultChunkSize         = 100
	defaultDNSTimeoutSec     = 3
	defaultDNSResolver       = "1.1.1.1:53"
	defaultLookupRPS         = 50
	defaultHTTPTimeoutSec    = 5
	defaultDBDriver          = "sqlite"
	defaultSQLitePath        = "artifacts/feedback.db"
	defaultDBHost            = "localhost"
	defaultDBPort            = 5432
	defaultDBUser            = "postgres"
	defaultDBName            = "urlsentinel"
	defaultDBSSLMode         = "disable"
	defaultArtifactsDir      = "artifacts"
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
	defaultTestSize          = 0.2
	defaultRandomSeed        = 42
	defaultCVFolds           = 5
	defaultSearchIterations  = 10
)

// Config holds all configuration for the url-sentinel service.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Learning  LearningConfig  `yaml:"learning"`
	Lookup    LookupConfig    `yaml:"lookup"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SENTINEL_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"     yaml:"debug"`
}

// DatabaseConfig holds feedback store configuration. Driver is either
// "postgres" or "sqlite"; sqlite is the zero-dependency local mode.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER"         yaml:"driver"`
	SQLitePath      string        `env:"SQLITE_PATH"       yaml:"sqlite_path"`
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode         string        `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// ArtifactsConfig holds the filesystem layout for persisted artifacts.
type ArtifactsConfig struct {
	Dir string `env:"ARTIFACTS_DIR" yaml:"dir"`
}

// LearningConfig holds adaptive learning and training settings.
type LearningConfig struct {
	RetrainThreshold int     `env:"RETRAIN_THRESHOLD" yaml:"retrain_threshold"`
	TestSize         float64 `yaml:"test_size"`
	RandomSeed       int64   `yaml:"random_seed"`
	CVFolds          int     `yaml:"cv_folds"`
	SearchIterations int     `yaml:"search_iterations"`
	SearchEnabled    bool    `yaml:"search_enabled"`
}

// LookupConfig holds DNS/HTTP enrichment settings.
type LookupConfig struct {
	Resolver          string        `env:"DNS_RESOLVER" yaml:"resolver"`
	DNSTimeout        time.Duration `yaml:"dns_timeout"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	RPS               int           `yaml:"rps"`
	ExtractionWorkers int           `env:"EXTRACTION_WORKERS" yaml:"extraction_workers"`
	ChunkSize         int           `yaml:"chunk_size"`
	HostFeatures      bool          `env:"HOST_FEATURES" yaml:"host_features"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setArtifactsDefaults(&cfg.Artifacts)
	setLearningDefaults(&cfg.Learning)
	setLookupDefaults(&cfg.Lookup)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = defaultDBDriver
	}
	if d.SQLitePath == "" {
		d.SQLitePath = defaultSQLitePath
	}
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = 25
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = 5
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = time.Hour
	}
}

func setArtifactsDefaults(a *ArtifactsConfig) {
	if a.Dir == "" {
		a.Dir = defaultArtifactsDir
	}
}

func setLearningDefaults(l *LearningConfig) {
	if l.RetrainThreshold == 0 {
		l.RetrainThreshold = defaultRetrainThreshold
	}
	if l.TestSize == 0 {
		l.TestSize = defaultTestSize
	}
	if l.RandomSeed == 0 {
		l.RandomSeed = defaultRandomSeed
	}
	if l.CVFolds == 0 {
		l.CVFolds = defaultCVFolds
	}
	if l.SearchIterations == 0 {
		l.SearchIterations = defaultSearchIterations
	}
}

func setLookupDefaults(l *LookupConfig) {
	if l.Resolver == "" {
		l.Resolver = defaultDNSResolver
	}
	if l.DNSTimeout == 0 {
		l.DNSTimeout = defaultDNSTimeoutSec * time.Second
	}
	if l.HTTPTimeout == 0 {
		l.HTTPTimeout = defaultHTTPTimeoutSec * time.Second
	}
	if l.RPS == 0 {
		l.RPS = defaultLookupRPS
	}
	if l.ExtractionWorkers == 0 {
		l.ExtractionWorkers = defaultExtractionWorkers
	}
	if l.ExtractionWorkers > defaultExtractionWorkers {
		// DNS fan-out is bounded no matter how large the host is.
		l.ExtractionWorkers = defaultExtractionWorkers
	}
	if l.ChunkSize == 0 {
		l.ChunkSize = defaultChunkSize
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}
