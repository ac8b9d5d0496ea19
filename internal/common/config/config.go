// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Server     ServerConfig            `mapstructure:"server"`
	Model      ModelConfig             `mapstructure:"model"`
	Prediction PredictionConfig        `mapstructure:"prediction"`
	Cache      CacheConfig             `mapstructure:"cache"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Logging    LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`          // gin mode: debug|release|test
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// Address returns the listen address for the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ModelSource selects where a missing local artifact is fetched from.
type ModelSource string

const (
	ModelSourceHTTP  ModelSource = "http"
	ModelSourceMinio ModelSource = "minio"
	ModelSourceNone  ModelSource = "none"
)

// DriveDownloadURL is the file-host URL pattern used when only a file id is configured.
const DriveDownloadURL = "https://drive.google.com/uc?id=%s"

type ModelConfig struct {
	Path            string      `mapstructure:"path"`
	Source          ModelSource `mapstructure:"source"`
	RemoteURL       string      `mapstructure:"remote_url"`
	DriveFileID     string      `mapstructure:"drive_file_id"`
	DownloadTimeout int         `mapstructure:"download_timeout"` // milliseconds
	Minio           MinioConfig `mapstructure:"minio"`
}

// ResolvedRemoteURL returns RemoteURL, or the file-host URL built from DriveFileID.
func (m ModelConfig) ResolvedRemoteURL() string {
	if m.RemoteURL != "" {
		return m.RemoteURL
	}
	if m.DriveFileID != "" {
		return fmt.Sprintf(DriveDownloadURL, url.QueryEscape(m.DriveFileID))
	}
	return ""
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	Object          string `mapstructure:"object"`
}

type PredictionConfig struct {
	// RejectPlaceholders turns a submitted "-Select-" into a validation error
	// instead of forwarding it to the model.
	RejectPlaceholders bool `mapstructure:"reject_placeholders"`
	Timeout            int  `mapstructure:"timeout"` // milliseconds
}

type CacheBackend string

const (
	CacheBackendNone   CacheBackend = "none"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

type CacheConfig struct {
	Backend CacheBackend `mapstructure:"backend"`
	TTL     int          `mapstructure:"ttl"`  // seconds, redis only
	Size    int          `mapstructure:"size"` // entries, memory only
}

type DatabaseConfig struct {
	History  HistoryConfig  `mapstructure:"history"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// HistoryConfig selects the prediction history store. An empty driver disables it.
type HistoryConfig struct {
	Driver string `mapstructure:"driver"` // "", postgres, sqlite3
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

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings. Output is stdout, stderr or a file
// path; file output is rotated.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}
