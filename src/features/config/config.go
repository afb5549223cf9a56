package config

import "time"

// Config holds the application configuration.
type Config struct {
	LibraryPath string    `yaml:"libraryPath" validate:"required"`
	Telegram    Telegram  `yaml:"telegram"`
	Logger      Logger    `yaml:"logger"`
	Server      Server    `yaml:"server"`
	Database    Database  `yaml:"database"`
	Cache       Cache     `yaml:"cache"`
	HTTP        HTTP      `yaml:"http"`
	Providers   Providers `yaml:"providers"`
	Scan        Scan      `yaml:"scan"`
	Artwork     Artwork   `yaml:"artwork"`
	Jobs        Jobs      `yaml:"jobs"`
}

type Jobs struct {
	Log      bool          `yaml:"log"`
	LogPath  string        `yaml:"log_path"`
	Webhooks WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	Enabled  bool     `yaml:"enabled"`
	JobTypes []string `yaml:"job_types"`
	Command  string   `yaml:"command"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Cache holds the configuration of the on-disk API response cache.
type Cache struct {
	Path string `yaml:"path" validate:"required"`
	TTL  string `yaml:"ttl" validate:"required"` // Go duration, e.g. 168h
}

// TTLDuration parses TTL, falling back to a week.
func (c Cache) TTLDuration() time.Duration {
	return parseDuration(c.TTL, 7*24*time.Hour)
}

// HTTP holds the retry and timeout policy shared by all provider clients.
type HTTP struct {
	Timeout     string `yaml:"timeout"`
	MaxAttempts int    `yaml:"max_attempts" validate:"gte=0,lte=10"`
	RetryWait   string `yaml:"retry_wait"`
}

func (h HTTP) TimeoutDuration() time.Duration {
	return parseDuration(h.Timeout, 15*time.Second)
}

func (h HTTP) RetryWaitDuration() time.Duration {
	return parseDuration(h.RetryWait, 2*time.Second)
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json text logfmt"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
}

// Providers holds the configuration of every metadata provider.
type Providers struct {
	MusicBrainz  Provider `yaml:"musicbrainz"`
	Discogs      Provider `yaml:"discogs"`
	LastFM       LastFM   `yaml:"lastfm"`
	Ticketmaster Provider `yaml:"ticketmaster"`
}

// Provider holds configuration for an individual metadata provider.
type Provider struct {
	Enabled bool `yaml:"enabled"`
	// Secret is the API key or personal token, when the provider needs one.
	Secret string `yaml:"secret,omitempty"`
	// RequestsPerSecond throttles calls to the provider.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	// Country narrows searches for providers that support it (ISO 3166-1).
	Country string `yaml:"country,omitempty" validate:"omitempty,len=2"`
}

// LastFM adds the account whose scrobbles are imported.
type LastFM struct {
	Provider `yaml:",inline"`
	Username string `yaml:"username"`
}

// Scan holds configuration for scanning the library directory.
type Scan struct {
	Watch      bool     `yaml:"watch"`
	Workers    int      `yaml:"workers" validate:"gte=0,lte=64"`
	Extensions []string `yaml:"extensions"`
}

// Artwork holds configuration for cover art thumbnails
type Artwork struct {
	Path    string `yaml:"path"`
	Size    int    `yaml:"size" validate:"gte=0"`
	Quality int    `yaml:"quality" validate:"gte=0,lte=100"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
