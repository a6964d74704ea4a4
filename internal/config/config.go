// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oszuidwest/cranecheck/internal/util"
)

// Configuration defaults.
const (
	DefaultWebPort           = 8080
	DefaultSessionTTLMinutes = 12 * 60
	DefaultChecklist         = "crane-basic"
	DefaultImagesDir         = "images"
	DefaultEmailSMTPPort     = 587
	DefaultEmailFromName     = "Crane Checklist"
)

// WebConfig contains web server configuration.
type WebConfig struct {
	Port              int `json:"port"`
	SessionTTLMinutes int `json:"session_ttl_minutes,omitempty"`
}

// ChecklistConfig selects the checklist variant and where assets live.
// Relative paths are resolved against the directory of the config file.
type ChecklistConfig struct {
	Active    string `json:"active"`
	Dir       string `json:"dir,omitempty"`
	ImagesDir string `json:"images_dir,omitempty"`
}

// EmailConfig contains email alert configuration.
type EmailConfig struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	FromName   string `json:"from_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Recipients string `json:"recipients,omitempty"`
}

// NotificationsConfig contains failed-inspection alert configuration.
type NotificationsConfig struct {
	WebhookURL string      `json:"webhook_url,omitempty"`
	LogPath    string      `json:"log_path,omitempty"`
	Email      EmailConfig `json:"email,omitzero"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Web                 WebConfig           `json:"web"`
	Checklist           ChecklistConfig     `json:"checklist"`
	Notifications       NotificationsConfig `json:"notifications,omitzero"`
	DisableVersionCheck bool                `json:"disable_version_check,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// Overrides are command-line values that take precedence over the file.
// Zero values leave the loaded configuration untouched.
type Overrides struct {
	WebPort       int
	Checklist     string
	ChecklistsDir string
	ImagesDir     string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Web: WebConfig{
			Port:              DefaultWebPort,
			SessionTTLMinutes: DefaultSessionTTLMinutes,
		},
		Checklist: ChecklistConfig{
			Active:    DefaultChecklist,
			ImagesDir: DefaultImagesDir,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return util.WrapError("read config", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()
	return c.validateLocked()
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	c.Web.Port = cmp.Or(c.Web.Port, DefaultWebPort)
	c.Web.SessionTTLMinutes = cmp.Or(c.Web.SessionTTLMinutes, DefaultSessionTTLMinutes)
	c.Checklist.Active = cmp.Or(c.Checklist.Active, DefaultChecklist)
}

// validateLocked checks value ranges. Caller must hold c.mu.
func (c *Config) validateLocked() error {
	if verr := util.ValidatePort("web.port", c.Web.Port); verr != nil {
		return fmt.Errorf("invalid config: %w", verr)
	}
	if verr := util.ValidateRange("web.session_ttl_minutes", c.Web.SessionTTLMinutes, 1, 7*24*60); verr != nil {
		return fmt.Errorf("invalid config: %w", verr)
	}
	if c.Notifications.Email.Port != 0 {
		if verr := util.ValidatePort("notifications.email.port", c.Notifications.Email.Port); verr != nil {
			return fmt.Errorf("invalid config: %w", verr)
		}
	}
	return nil
}

// Save writes the configuration to file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// Apply sets the non-zero override values without saving them.
func (c *Config) Apply(o Overrides) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.WebPort != 0 {
		if verr := util.ValidatePort("port", o.WebPort); verr != nil {
			return verr
		}
		c.Web.Port = o.WebPort
	}
	c.Checklist.Active = cmp.Or(o.Checklist, c.Checklist.Active)
	c.Checklist.Dir = cmp.Or(o.ChecklistsDir, c.Checklist.Dir)
	c.Checklist.ImagesDir = cmp.Or(o.ImagesDir, c.Checklist.ImagesDir)
	return nil
}

// resolvePath makes p absolute relative to the config file directory.
// Caller must hold c.mu (read or write lock).
func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.filePath), p)
}

// WebPort returns the web server port.
func (c *Config) WebPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Port
}

// SessionTTL returns how long an idle inspection session is kept.
func (c *Config) SessionTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(cmp.Or(c.Web.SessionTTLMinutes, DefaultSessionTTLMinutes)) * time.Minute
}

// ActiveChecklist returns the ID of the checklist variant to serve.
func (c *Config) ActiveChecklist() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Checklist.Active
}

// ChecklistsDir returns the resolved directory of extra checklist definitions.
func (c *Config) ChecklistsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvePath(c.Checklist.Dir)
}

// ImagesDir returns the resolved directory of question images.
func (c *Config) ImagesDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvePath(c.Checklist.ImagesDir)
}

// VersionCheckEnabled reports whether the release check runs.
func (c *Config) VersionCheckEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.DisableVersionCheck
}

// Snapshot contains a point-in-time copy of the alert configuration.
// Use this instead of multiple individual getters to reduce mutex contention.
type Snapshot struct {
	// Notifications
	WebhookURL string
	LogPath    string

	// Email
	EmailSMTPHost   string
	EmailSMTPPort   int
	EmailFromName   string
	EmailUsername   string
	EmailPassword   string
	EmailRecipients string
}

// Snapshot returns a point-in-time copy of the alert configuration.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		WebhookURL: c.Notifications.WebhookURL,
		LogPath:    c.resolvePath(c.Notifications.LogPath),

		EmailSMTPHost:   c.Notifications.Email.Host,
		EmailSMTPPort:   cmp.Or(c.Notifications.Email.Port, DefaultEmailSMTPPort),
		EmailFromName:   cmp.Or(c.Notifications.Email.FromName, DefaultEmailFromName),
		EmailUsername:   c.Notifications.Email.Username,
		EmailPassword:   c.Notifications.Email.Password,
		EmailRecipients: c.Notifications.Email.Recipients,
	}
}

// HasWebhook returns true if a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasEmail returns true if email alerts are configured.
func (s *Snapshot) HasEmail() bool {
	return s.EmailSMTPHost != "" && s.EmailRecipients != ""
}

// HasLogPath returns true if an alert log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}
