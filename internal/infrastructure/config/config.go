// Package config loads chatflow settings from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/serialization"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// ConfigFileEnv names the variable pointing at the YAML config file
const ConfigFileEnv = "CHATFLOW_CONFIG"

// Config holds all configuration for the chatflow server and CLI
type Config struct {
	Addr           string        `yaml:"addr"`
	Environment    string        `yaml:"environment"`
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Storage       StorageConfig       `yaml:"storage"`
	Serialization SerializationConfig `yaml:"serialization"`
	Editor        EditorConfig        `yaml:"editor"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	FlowDir     string `yaml:"flow_dir"`
}

type SerializationConfig struct {
	Codec       string `yaml:"codec"`
	Compression string `yaml:"compression"`
	// Key is a hex-encoded AES-256 key; empty disables encryption
	Key string `yaml:"key"`
}

type EditorConfig struct {
	FlowID             string `yaml:"flow_id"`
	FlowName           string `yaml:"flow_name"`
	StrictValidation   bool   `yaml:"strict_validation"`
	RejectSelfLoops    bool   `yaml:"reject_self_loops"`
	NotificationBuffer int    `yaml:"notification_buffer"`
	SeedWelcome        bool   `yaml:"seed_welcome"`
}

// Default returns the built-in configuration: in-memory storage on :8080
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		Environment:    "development",
		LogLevel:       "info",
		RequestTimeout: 30 * time.Second,
		Storage: StorageConfig{
			Driver:     DriverMemory,
			SQLitePath: "chatflow.db",
			FlowDir:    "flows",
		},
		Serialization: SerializationConfig{
			Codec:       "msgpack",
			Compression: string(serialization.CompressionZstd),
		},
		Editor: EditorConfig{
			FlowID:             "default",
			FlowName:           "Untitled flow",
			NotificationBuffer: 50,
		},
	}
}

// Load reads .env (if present), the YAML file named by CHATFLOW_CONFIG (if
// set) and then environment variables, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnvWithDefault("CHATFLOW_ADDR", c.Addr)
	c.Environment = getEnvWithDefault("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
	c.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.RequestTimeout)

	c.Storage.Driver = getEnvWithDefault("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.SQLitePath = getEnvWithDefault("SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.DatabaseURL = getEnvWithDefault("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.FlowDir = getEnvWithDefault("FLOW_DIR", c.Storage.FlowDir)

	c.Serialization.Codec = getEnvWithDefault("SERIALIZATION_CODEC", c.Serialization.Codec)
	c.Serialization.Compression = getEnvWithDefault("SERIALIZATION_COMPRESSION", c.Serialization.Compression)
	c.Serialization.Key = getEnvWithDefault("SERIALIZATION_KEY", c.Serialization.Key)

	c.Editor.FlowID = getEnvWithDefault("FLOW_ID", c.Editor.FlowID)
	c.Editor.FlowName = getEnvWithDefault("FLOW_NAME", c.Editor.FlowName)
	c.Editor.StrictValidation = getEnvAsBool("STRICT_VALIDATION", c.Editor.StrictValidation)
	c.Editor.RejectSelfLoops = getEnvAsBool("REJECT_SELF_LOOPS", c.Editor.RejectSelfLoops)
	c.Editor.NotificationBuffer = getEnvAsInt("NOTIFICATION_BUFFER", c.Editor.NotificationBuffer)
	c.Editor.SeedWelcome = getEnvAsBool("SEED_WELCOME_NODE", c.Editor.SeedWelcome)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("CHATFLOW_ADDR is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.Editor.FlowID == "" {
		errs = append(errs, errors.New("FLOW_ID is required"))
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverFile:
		if c.Storage.FlowDir == "" {
			errs = append(errs, errors.New("FLOW_DIR is required for the file driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of memory, sqlite, postgres, file", c.Storage.Driver))
	}

	if _, err := serialization.CodecByName(c.Serialization.Codec); err != nil {
		errs = append(errs, fmt.Errorf("SERIALIZATION_CODEC: %w", err))
	}
	if _, err := serialization.CompressionByName(c.Serialization.Compression); err != nil {
		errs = append(errs, fmt.Errorf("SERIALIZATION_COMPRESSION: %w", err))
	}
	if _, err := c.encryptKey(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) encryptKey() ([]byte, error) {
	if c.Serialization.Key == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Serialization.Key)
	if err != nil || len(key) != 32 {
		return nil, errors.New("SERIALIZATION_KEY must be 64 hex characters")
	}
	return key, nil
}

// Serializer builds the snapshot serializer described by the configuration
func (c *Config) Serializer() (*serialization.Serializer, error) {
	codec, err := serialization.CodecByName(c.Serialization.Codec)
	if err != nil {
		return nil, err
	}
	compression, err := serialization.CompressionByName(c.Serialization.Compression)
	if err != nil {
		return nil, err
	}
	key, err := c.encryptKey()
	if err != nil {
		return nil, err
	}
	return serialization.NewSerializer(serialization.SerializationConfig{
		Codec:       codec,
		Compression: compression,
		EncryptKey:  key,
	}), nil
}

// Helper functions for environment variable parsing

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr := strings.TrimSpace(os.Getenv(key)); valueStr != "" {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
