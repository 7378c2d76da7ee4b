package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration. The server uses the
// app, sqlite, uploads, auth and events sections; the CLI client uses app
// and client.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Uploads UploadsConfig     `yaml:"uploads"`
	Auth    AuthConfig        `yaml:"auth"`
	Client  ClientConfig      `yaml:"client"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.SQLite, &c.Uploads, &c.Auth, &c.Client, &c.Events} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Timezone is the IANA zone used to bucket tasks into calendar days.
	Timezone string     `yaml:"timezone"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.Required, validation.By(validTimezone)),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

// Location resolves Timezone. Call after Validate.
func (c *ApplicationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func validTimezone(v any) error {
	name, _ := v.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return errors.New("unknown time zone")
	}
	return nil
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// UploadsConfig holds where pasted images are stored and their size cap.
type UploadsConfig struct {
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1024))),
	)
}

// AuthConfig holds session and two-factor settings.
type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
	TOTPIssuer string        `yaml:"totp_issuer"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.TOTPIssuer, validation.Required),
	)
}

var baseURLPattern = regexp.MustCompile(`^https?://[^\s/]+(/\S*)?$`)

// ClientConfig configures the CLI's connection to the backend.
type ClientConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	SessionFile string        `yaml:"session_file"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(baseURLPattern)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SessionFile, validation.Required),
	); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	return nil
}

// EventsConfig tunes the server-sent event stream.
type EventsConfig struct {
	StatsThrottle time.Duration `yaml:"stats_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StatsThrottle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Timezone: "Local",
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./tasknote.db",
		},
		Uploads: UploadsConfig{
			Path:     "./uploads",
			MaxBytes: 10 << 20,
		},
		Auth: AuthConfig{
			SessionTTL: 30 * 24 * time.Hour,
			TOTPIssuer: "TaskNote",
		},
		Client: ClientConfig{
			BaseURL:     "http://localhost:8080/api",
			Timeout:     15 * time.Second,
			SessionFile: defaultSessionFile(),
		},
		Events: EventsConfig{
			StatsThrottle: 2 * time.Second,
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tasknote-session.yaml"
	}
	return filepath.Join(dir, "tasknote", "session.yaml")
}
