package core

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes where release information comes from.
type FeedConfig struct {
	// URL is the release feed endpoint, e.g.
	// "https://central.example.com/api/deployments/desktop/desktop/x64/latest".
	URL string `yaml:"url"`
	// ChangelogURL optionally points at a richer changelog endpoint used to
	// build release summaries. Empty means summaries come from the feed itself.
	ChangelogURL string `yaml:"changelog_url,omitempty"`
}

// UpdatesConfig holds update coordinator settings.
type UpdatesConfig struct {
	// AllowCrossArch enables redirecting emulated processes to the
	// native-architecture build of the feed.
	AllowCrossArch bool `yaml:"allow_cross_arch,omitempty"`
	// CheckInterval is the background check period, e.g. "1h". Default 1h.
	CheckInterval string `yaml:"check_interval,omitempty"`
	// InitialDelay postpones the first background check after startup,
	// e.g. "30s". Default 30s.
	InitialDelay string `yaml:"initial_delay,omitempty"`
	// Platform overrides platform detection ("windows", "darwin", "linux").
	// Empty means detect from the running OS.
	Platform string `yaml:"platform,omitempty"`
	// CheckpointPath overrides the location of the persisted check state.
	// Empty means the default state directory.
	CheckpointPath string `yaml:"checkpoint_path,omitempty"`
}

// NotificationsConfig holds desktop notification preferences.
type NotificationsConfig struct {
	// Enabled controls whether update notifications are shown (default true).
	Enabled *bool `yaml:"enabled,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	Feed          FeedConfig          `yaml:"feed"`
	Updates       UpdatesConfig       `yaml:"updates,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications,omitempty"`
	Logging       LogConfig           `yaml:"logging,omitempty"`
}

// CheckIntervalDuration parses Updates.CheckInterval, defaulting to one hour.
func (c Config) CheckIntervalDuration() time.Duration {
	return parseDurationDefault(c.Updates.CheckInterval, time.Hour)
}

// InitialDelayDuration parses Updates.InitialDelay, defaulting to 30 seconds.
func (c Config) InitialDelayDuration() time.Duration {
	return parseDurationDefault(c.Updates.InitialDelay, 30*time.Second)
}

// NotificationsEnabled reports whether desktop notifications are on.
func (c Config) NotificationsEnabled() bool {
	if c.Notifications.Enabled == nil {
		return true
	}
	return *c.Notifications.Enabled
}

func parseDurationDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		Log.Warnf("Core", "Invalid duration %q, using default %s", s, def)
		return def
	}
	return d
}

// Validate checks config consistency before the coordinator is built.
func (c Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	u, err := url.Parse(c.Feed.URL)
	if err != nil {
		return fmt.Errorf("feed.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("feed.url: unsupported scheme %q", u.Scheme)
	}
	return nil
}

// ConfigManager handles loading and saving configuration.
type ConfigManager struct {
	mu       sync.RWMutex
	config   Config
	filePath string
}

// NewConfigManager creates a config manager that reads from the given file.
func NewConfigManager(filePath string) *ConfigManager {
	return &ConfigManager{filePath: filePath}
}

// defaultConfig returns an empty but valid-to-serialize configuration.
func defaultConfig() Config {
	return Config{}
}

// Load reads and parses the configuration from disk.
// If the config file does not exist, it creates one with default values.
func (cm *ConfigManager) Load() error {
	data, err := os.ReadFile(cm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			Log.Infof("Core", "Config %s not found, creating default config", cm.filePath)
			cm.mu.Lock()
			cm.config = defaultConfig()
			cm.mu.Unlock()
			if saveErr := cm.Save(); saveErr != nil {
				return fmt.Errorf("[Core] failed to create default config: %w", saveErr)
			}
			return nil
		}
		return fmt.Errorf("[Core] failed to read config %s: %w", cm.filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("[Core] failed to parse config: %w", err)
	}

	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()

	return nil
}

// Save writes the current configuration to disk.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	data, err := yaml.Marshal(&cm.config)
	cm.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("[Core] failed to marshal config: %w", err)
	}
	if err := os.WriteFile(cm.filePath, data, 0600); err != nil {
		return fmt.Errorf("[Core] failed to write config %s: %w", cm.filePath, err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}
