package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keys written to the application env file, in output order.
const (
	KeyAPIKey     = "OPENROUTER_API_KEY"
	KeyDBHost     = "DB_HOST"
	KeyDBPort     = "DB_PORT"
	KeyDBName     = "DB_NAME"
	KeyDBUser     = "DB_USER"
	KeyDBPassword = "DB_PASSWORD"
	KeyRateLimit  = "RATE_LIMIT_RPS"
)

// Defaults substituted for non-sensitive fields when the operator provides nothing.
const (
	DefaultDBHost    = "localhost"
	DefaultDBPort    = "5432"
	DefaultDBName    = "postgres"
	DefaultDBUser    = "postgres"
	DefaultRateLimit = "1"
)

// EnvFileMode keeps the secrets file owner-only from the moment of creation.
const EnvFileMode os.FileMode = 0o600

// generatedPasswordBytes is the entropy of a generated database password.
const generatedPasswordBytes = 24

var (
	// ErrEmptySecret is returned when a required sensitive value is empty.
	// It is raised before any file is written.
	ErrEmptySecret = errors.New("required secret must not be empty")

	// ErrAlreadyExists is returned when the env file is already materialized.
	// Existing secrets are never overwritten.
	ErrAlreadyExists = errors.New("secrets file already exists")
)

// Values holds the application configuration materialized into the env file.
type Values struct {
	// APIKey is the LLM provider key. Required, prompted with masking.
	APIKey string
	// DBHost, DBPort, DBName, DBUser are non-sensitive connection parameters
	// with defaults substituted on empty input.
	DBHost string
	DBPort string
	DBName string
	DBUser string
	// DBPassword is generated when empty.
	DBPassword string
	// RateLimit caps LLM request rate (requests per second).
	RateLimit string
}

// ApplyDefaults fills non-sensitive empty fields with their defaults and
// generates the database password when none was supplied.
func (v *Values) ApplyDefaults() error {
	if v.DBHost == "" {
		v.DBHost = DefaultDBHost
	}

	if v.DBPort == "" {
		v.DBPort = DefaultDBPort
	}

	if v.DBName == "" {
		v.DBName = DefaultDBName
	}

	if v.DBUser == "" {
		v.DBUser = DefaultDBUser
	}

	if v.RateLimit == "" {
		v.RateLimit = DefaultRateLimit
	}

	if v.DBPassword == "" {
		password, err := GeneratePassword()
		if err != nil {
			return err
		}

		v.DBPassword = password
	}

	return nil
}

// GeneratePassword returns a cryptographically random base64-encoded password.
func GeneratePassword() (string, error) {
	buf := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Exists reports whether the env file is already materialized.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Materialize writes the env file exactly once. The required secret is
// validated before anything touches the disk, the file is created with
// O_EXCL so a concurrent or repeated run can never clobber existing
// secrets, and the restrictive mode is set at creation time; there is no
// window where the file is readable by other users.
func Materialize(path string, v *Values) error {
	if strings.TrimSpace(v.APIKey) == "" {
		return fmt.Errorf("%s: %w", KeyAPIKey, ErrEmptySecret)
	}

	if err := v.ApplyDefaults(); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, EnvFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrAlreadyExists)
		}

		return fmt.Errorf("create secrets file: %w", err)
	}

	if _, err = file.WriteString(v.render()); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return fmt.Errorf("write secrets file: %w", err)
	}

	return file.Close()
}

// render produces key=value lines with a fixed key order.
func (v *Values) render() string {
	var b strings.Builder

	pairs := []struct{ key, value string }{
		{KeyAPIKey, v.APIKey},
		{KeyDBHost, v.DBHost},
		{KeyDBPort, v.DBPort},
		{KeyDBName, v.DBName},
		{KeyDBUser, v.DBUser},
		{KeyDBPassword, v.DBPassword},
		{KeyRateLimit, v.RateLimit},
	}

	for _, pair := range pairs {
		b.WriteString(pair.key)
		b.WriteByte('=')
		b.WriteString(pair.value)
		b.WriteByte('\n')
	}

	return b.String()
}
