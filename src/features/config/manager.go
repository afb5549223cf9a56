package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new ConfigManager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update updates the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"library_path_changed", oldConfig.LibraryPath != config.LibraryPath,
			"cache_ttl_changed", oldConfig.Cache.TTL != config.Cache.TTL,
			"scan_watch_changed", oldConfig.Scan.Watch != config.Scan.Watch,
			"telegram_enabled_changed", oldConfig.Telegram.Enabled != config.Telegram.Enabled,
			"logger_level_changed", oldConfig.Logger.Level != config.Logger.Level,
		)
	}
}

// Save writes the current configuration to the specified file path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(m.config); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return err
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}

// EnsureDirectories creates the library, cache, artwork and job log directories if they don't exist.
func (m *Manager) EnsureDirectories() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	dirs := []string{cfg.LibraryPath, cfg.Cache.Path}
	if cfg.Artwork.Path != "" {
		dirs = append(dirs, cfg.Artwork.Path)
	}
	if cfg.Jobs.Log && cfg.Jobs.LogPath != "" {
		dirs = append(dirs, cfg.Jobs.LogPath)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Info("Required directories created/verified", "library", cfg.LibraryPath, "cache", cfg.Cache.Path, "artwork", cfg.Artwork.Path)
	return nil
}

// redactedCfg gets a redacted copy of the Config
func (m *Manager) redactedCfg() Config {
	cfgCpy := *m.config
	const redacted = "<redacted>"
	if cfgCpy.Telegram.Token != "" {
		cfgCpy.Telegram.Token = redacted
	}
	for _, p := range []*Provider{&cfgCpy.Providers.MusicBrainz, &cfgCpy.Providers.Discogs, &cfgCpy.Providers.LastFM.Provider, &cfgCpy.Providers.Ticketmaster} {
		if p.Secret != "" {
			p.Secret = redacted
		}
	}
	return cfgCpy
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

func (m *Manager) GetYAML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	yamlBytes, err := yaml.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
