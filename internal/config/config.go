// Package config provides configuration management for the Arte backend
// server. Configuration is loaded from environment variables with sensible
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".arte"

	// Environment variable names
	EnvPort     = "ARTE_PORT"
	EnvLogLevel = "ARTE_LOG_LEVEL"
	EnvLogFile  = "ARTE_LOG_FILE"
	EnvDataDir  = "ARTE_DATA_DIR"

	// Provider environment variable names
	EnvOpenAIKey       = "ARTE_OPENAI_API_KEY"
	EnvOpenAIModel     = "ARTE_OPENAI_MODEL"
	EnvElevenLabsKey   = "ARTE_ELEVENLABS_API_KEY"
	EnvElevenLabsVoice = "ARTE_ELEVENLABS_VOICE_ID"
	EnvSendGridKey     = "ARTE_SENDGRID_API_KEY"
	EnvSenderEmail     = "ARTE_SENDER_EMAIL"
	EnvSenderName      = "ARTE_SENDER_NAME"
	EnvStorageBucket   = "ARTE_STORAGE_BUCKET"
	EnvExportMaxBytes  = "ARTE_EXPORT_MAX_BYTES"

	// Database filename
	DBFilename = "arte.db"

	// Export defaults
	DefaultExportMaxBytes = 180 * 1024 * 1024 // 180MiB hard cap per archive

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultSenderName  = "Arte Registrazioni"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFile() string
	DataDir() string
	DBPath() string
	OpenAIKey() string
	OpenAIModel() string
	ElevenLabsKey() string
	ElevenLabsVoice() string
	SendGridKey() string
	SenderEmail() string
	SenderName() string
	StorageBucket() string
	ExportMaxBytes() int64
	UploadPolicyTTL() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	logFile        string
	dataDir        string
	exportMaxBytes int64

	openaiKey       string
	openaiModel     string
	elevenLabsKey   string
	elevenLabsVoice string
	sendgridKey     string
	senderEmail     string
	senderName      string
	storageBucket   string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		exportMaxBytes: DefaultExportMaxBytes,
		openaiModel:    DefaultOpenAIModel,
		senderName:     DefaultSenderName,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	cfg.logFile = os.Getenv(EnvLogFile)

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if mb := os.Getenv(EnvExportMaxBytes); mb != "" {
		n, err := strconv.ParseInt(mb, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExportMaxBytes, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvExportMaxBytes)
		}
		cfg.exportMaxBytes = n
	}

	cfg.openaiKey = os.Getenv(EnvOpenAIKey)
	if m := os.Getenv(EnvOpenAIModel); m != "" {
		cfg.openaiModel = m
	}
	cfg.elevenLabsKey = os.Getenv(EnvElevenLabsKey)
	cfg.elevenLabsVoice = os.Getenv(EnvElevenLabsVoice)
	cfg.sendgridKey = os.Getenv(EnvSendGridKey)
	cfg.senderEmail = os.Getenv(EnvSenderEmail)
	if n := os.Getenv(EnvSenderName); n != "" {
		cfg.senderName = n
	}
	cfg.storageBucket = os.Getenv(EnvStorageBucket)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFile returns the rotating log file path, or empty for stdout-only logging
func (c *EnvConfig) LogFile() string {
	return c.logFile
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

func (c *EnvConfig) OpenAIKey() string {
	return c.openaiKey
}

func (c *EnvConfig) OpenAIModel() string {
	return c.openaiModel
}

func (c *EnvConfig) ElevenLabsKey() string {
	return c.elevenLabsKey
}

func (c *EnvConfig) ElevenLabsVoice() string {
	return c.elevenLabsVoice
}

func (c *EnvConfig) SendGridKey() string {
	return c.sendgridKey
}

func (c *EnvConfig) SenderEmail() string {
	return c.senderEmail
}

func (c *EnvConfig) SenderName() string {
	return c.senderName
}

// StorageBucket returns the object storage bucket name. Empty means the
// in-memory store is used (development mode, URLs are synthetic).
func (c *EnvConfig) StorageBucket() string {
	return c.storageBucket
}

// ExportMaxBytes returns the cumulative byte cap for one archive export
func (c *EnvConfig) ExportMaxBytes() int64 {
	return c.exportMaxBytes
}

// UploadPolicyTTL returns the validity window for signed upload policies
func (c *EnvConfig) UploadPolicyTTL() time.Duration {
	return 10 * time.Minute
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
