package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Dataset describes the review dataset artifacts and their expected digests.
type Dataset struct {
	// URL is where the raw dataset archive is downloaded from.
	URL string `yaml:"url"`
	// RawFile is the local path of the raw TSKV dataset.
	RawFile string `yaml:"raw_file"`
	// RawChecksum is the hex-encoded SHA-256 digest of the raw dataset.
	RawChecksum string `yaml:"raw_checksum"`
	// EnrichedFile is the local path of the embedding-enriched Parquet artifact.
	EnrichedFile string `yaml:"enriched_file"`
	// EnrichedChecksum is the hex-encoded SHA-256 digest of the enriched artifact.
	EnrichedChecksum string `yaml:"enriched_checksum"`
}

// Pipeline lists the external data-pipeline programs invoked by path.
// Each is expected to exit zero on success.
type Pipeline struct {
	// Convert turns the raw TSKV dataset into Parquet.
	Convert string `yaml:"convert"`
	// Validate checks token limits on the converted dataset.
	Validate string `yaml:"validate"`
	// Enrich adds embedding vectors and produces the enriched artifact.
	Enrich string `yaml:"enrich"`
	// Importer loads the enriched artifact into the database.
	Importer string `yaml:"importer"`
}

// Config holds settings shared by the stand binaries.
type Config struct {
	// DataDir is the directory where dataset artifacts live.
	DataDir string `yaml:"data_dir"`
	// Dataset describes artifact paths and digests.
	Dataset Dataset `yaml:"dataset"`
	// Pipeline lists the external pipeline programs.
	Pipeline Pipeline `yaml:"pipeline"`
	// ComposeFile is the Docker Compose file that defines the database stack.
	ComposeFile string `yaml:"compose_file"`
	// DatabaseService is the compose service name of the database.
	DatabaseService string `yaml:"database_service"`
	// DatabaseUser is the role checked by the readiness probe.
	DatabaseUser string `yaml:"database_user"`
	// PollInterval is the fixed delay between readiness probe attempts.
	PollInterval time.Duration `yaml:"poll_interval"`
	// PollAttempts bounds the readiness probe loop.
	PollAttempts int `yaml:"poll_attempts"`
	// VenvDir is the Python virtual environment directory for the app.
	VenvDir string `yaml:"venv_dir"`
	// Requirements is the pip requirements file installed into the venv.
	Requirements string `yaml:"requirements"`
	// AppScript is the application entry point started after provisioning.
	AppScript string `yaml:"app_script"`
	// BindAddress is the network interface the app binds to.
	BindAddress string `yaml:"bind_address"`
	// AppPort is the TCP port the app listens on.
	AppPort int `yaml:"app_port"`
	// EnvFile is the application secrets file materialized by stand-setup.
	EnvFile string `yaml:"env_file"`
	// StateFile is where the provisioning state record is persisted.
	StateFile string `yaml:"state_file"`
	// Domain enables HTTPS reverse-proxy setup when non-empty.
	Domain string `yaml:"domain,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for stand settings.
	DefaultConfigFilename = "review-stand.yaml"

	// DefaultStateFilename is the default filename for the provisioning state record.
	DefaultStateFilename = "review-stand-state.json"

	// DefaultEnvFilename is the default application secrets file.
	DefaultEnvFilename = ".env"

	// DefaultPollInterval is the fixed readiness probe interval.
	DefaultPollInterval = 2 * time.Second

	// DefaultPollAttempts bounds the readiness probe loop (~60s budget).
	DefaultPollAttempts = 30

	// DefaultAppPort is the port the demo app serves on.
	DefaultAppPort = 8501

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// sha256HexLength is the length of a hex-encoded SHA-256 digest.
	sha256HexLength = 64
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDatasetURLRequired is returned when the dataset URL is missing.
	errDatasetURLRequired = errors.New("dataset URL must be provided")
	// errChecksumRequired is returned when a dataset digest is missing.
	errChecksumRequired = errors.New("dataset checksum must be provided")
	// errInvalidChecksum is returned when a digest is not hex-encoded SHA-256.
	errInvalidChecksum = errors.New("checksum must be a hex-encoded SHA-256 digest")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path with restrictive permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and applies defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Dataset.URL == "" {
		return errDatasetURLRequired
	}

	if _, err := url.ParseRequestURI(cfg.Dataset.URL); err != nil {
		return fmt.Errorf("invalid dataset URL: %w", err)
	}

	if err := validateChecksum("raw", cfg.Dataset.RawChecksum); err != nil {
		return err
	}

	if err := validateChecksum("enriched", cfg.Dataset.EnrichedChecksum); err != nil {
		return err
	}

	applyDefaults(cfg)

	listenAddress := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.AppPort))
	if _, err := net.ResolveTCPAddr("tcp", listenAddress); err != nil {
		return fmt.Errorf("invalid bind address: %w", err)
	}

	return nil
}

// validateChecksum rejects missing or malformed dataset digests.
func validateChecksum(name, checksum string) error {
	if checksum == "" {
		return fmt.Errorf("%s dataset: %w", name, errChecksumRequired)
	}

	if len(checksum) != sha256HexLength {
		return fmt.Errorf("%s dataset: %w", name, errInvalidChecksum)
	}

	if _, err := hex.DecodeString(checksum); err != nil {
		return fmt.Errorf("%s dataset: %w", name, errInvalidChecksum)
	}

	return nil
}

// applyDefaults fills in unset fields with their default values.
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	if cfg.Dataset.RawFile == "" {
		cfg.Dataset.RawFile = filepath.Join(cfg.DataDir, "geo-reviews-dataset-2023.tskv")
	}

	if cfg.Dataset.EnrichedFile == "" {
		cfg.Dataset.EnrichedFile = filepath.Join(cfg.DataDir, "geo-reviews-enriched.parquet")
	}

	if cfg.ComposeFile == "" {
		cfg.ComposeFile = "docker-compose.yaml"
	}

	if cfg.DatabaseService == "" {
		cfg.DatabaseService = "db"
	}

	if cfg.DatabaseUser == "" {
		cfg.DatabaseUser = "postgres"
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}

	if cfg.VenvDir == "" {
		cfg.VenvDir = ".venv"
	}

	if cfg.Requirements == "" {
		cfg.Requirements = "requirements.txt"
	}

	if cfg.AppScript == "" {
		cfg.AppScript = "app.py"
	}

	if cfg.BindAddress == "" {
		cfg.BindAddress = "0.0.0.0"
	}

	if cfg.AppPort <= 0 {
		cfg.AppPort = DefaultAppPort
	}

	if cfg.EnvFile == "" {
		cfg.EnvFile = DefaultEnvFilename
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}
}
