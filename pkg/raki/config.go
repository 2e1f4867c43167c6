package raki

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ItIsGreg/Raki-sub002/pkg/hybrid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	serviceName     = "raki"
	defaultServer   = "http://localhost:8080"
	defaultPort     = "8080"
	defaultLogLevel = "info"
)

// Config is shared by every command. Values come from built-in defaults,
// then the environment (including an optional .env file), then the YAML
// file given with -config, then explicit flags.
type Config struct {
	ServerURL  string `yaml:"server_url"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`

	// server side
	ServerDBPath string `yaml:"server_db_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	Port         string `yaml:"port"`
	ReadOnly     bool   `yaml:"read_only"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	MigrationConcurrency int     `yaml:"migration_concurrency"`
	MigrationRate        float64 `yaml:"migration_rate"`
	MigrationBurst       int     `yaml:"migration_burst"`

	// Secrets are never read from the YAML file.
	Password          string `yaml:"-"`
	KeyringPassphrase string `yaml:"-"`
}

func defaultConfig() *Config {
	dataDir := filepath.Join(os.TempDir(), serviceName)
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, serviceName)
	}
	return &Config{
		ServerURL:            defaultServer,
		DataDir:              dataDir,
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		MigrationConcurrency: hybrid.DefaultMigrationConcurrency,
		MigrationRate:        hybrid.DefaultMigrationRate,
		MigrationBurst:       hybrid.DefaultMigrationBurst,
	}
}

// loadEnvFile exports the variables of a dotenv file. Variables already set
// in the environment win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment on c.
func (c *Config) applyEnv() error {
	c.ServerURL = getEnv("RAKI_SERVER_URL", c.ServerURL)
	c.DataDir = getEnv("RAKI_DATA_DIR", c.DataDir)
	c.SQLitePath = getEnv("RAKI_SQLITE_PATH", c.SQLitePath)
	c.ServerDBPath = getEnv("RAKI_SERVER_DB_PATH", c.ServerDBPath)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.Password = getEnv("RAKI_PASSWORD", c.Password)
	c.KeyringPassphrase = getEnv("RAKI_KEYRING_PASSPHRASE", c.KeyringPassphrase)

	var err error
	if c.ReadOnly, err = getEnvBool("RAKI_READ_ONLY", c.ReadOnly); err != nil {
		return err
	}
	if c.MigrationConcurrency, err = getEnvInt("RAKI_MIGRATION_CONCURRENCY", c.MigrationConcurrency); err != nil {
		return err
	}
	if c.MigrationRate, err = getEnvFloat("RAKI_MIGRATION_RATE", c.MigrationRate); err != nil {
		return err
	}
	if c.MigrationBurst, err = getEnvInt("RAKI_MIGRATION_BURST", c.MigrationBurst); err != nil {
		return err
	}
	return nil
}

// applyFile overlays the keys present in a YAML file on c.
func (c *Config) applyFile(path string) error {
	//nolint:gosec // the path is chosen by the user running the command
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return errors.New("server URL must not be empty")
	}
	if c.MigrationConcurrency < 1 {
		return fmt.Errorf("migration concurrency must be at least 1, got %d", c.MigrationConcurrency)
	}
	if c.MigrationRate < 0 {
		return fmt.Errorf("migration rate must not be negative, got %g", c.MigrationRate)
	}
	return nil
}

// LocalDBPath is the on-device database.
func (c *Config) LocalDBPath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "raki.db")
}

// CloudDBPath is the SQLite database of the server when no Postgres DSN is
// configured.
func (c *Config) CloudDBPath() string {
	if c.ServerDBPath != "" {
		return c.ServerDBPath
	}
	return filepath.Join(c.DataDir, "cloud.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
