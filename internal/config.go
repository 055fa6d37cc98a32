package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dailylog/internal/diary"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Diary  DiaryConfig       `yaml:"diary"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Diary.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// SSEKeepAlive is the ping interval of the event stream.
	SSEKeepAlive time.Duration `yaml:"sse_keep_alive"`
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

// DiaryConfig holds the daily log settings.
type DiaryConfig struct {
	Folder          string   `yaml:"folder"`
	CreatedTitle    string   `yaml:"created_title"`
	EditedTitle     string   `yaml:"edited_title"`
	DateFormat      string   `yaml:"date_format"`
	TemplatePath    string   `yaml:"template_path"`
	ExcludedFolders []string `yaml:"excluded_folders"`
	Debug           bool     `yaml:"debug"`
}

// Validate validates the diary configuration.
func (c *DiaryConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.CreatedTitle, validation.Required),
		validation.Field(&c.EditedTitle, validation.Required),
	); err != nil {
		return err
	}
	created, edited := strings.TrimSpace(c.CreatedTitle), strings.TrimSpace(c.EditedTitle)
	if strings.Contains(created, edited) || strings.Contains(edited, created) {
		return errors.New("diary: created_title and edited_title must differ and neither may contain the other")
	}
	_, err := diary.NewMatcher(c.ExcludedFolders)
	return err
}

// Settings converts the section into diary settings.
func (c *DiaryConfig) Settings() diary.Settings {
	return diary.Settings{
		Folder:          strings.Trim(strings.TrimSpace(c.Folder), "/"),
		CreatedTitle:    strings.TrimSpace(c.CreatedTitle),
		EditedTitle:     strings.TrimSpace(c.EditedTitle),
		DateFormat:      c.DateFormat,
		TemplatePath:    strings.TrimPrefix(strings.TrimSpace(c.TemplatePath), "/"),
		ExcludedFolders: c.ExcludedFolders,
		Debug:           c.Debug,
	}
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:         8080,
				SSEKeepAlive: 30 * time.Second,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./dailylog.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Diary: DiaryConfig{
			Folder:       diary.DefaultFolder,
			CreatedTitle: diary.DefaultCreatedTitle,
			EditedTitle:  diary.DefaultEditedTitle,
			DateFormat:   diary.DefaultDateFormat,
		},
	}
}
