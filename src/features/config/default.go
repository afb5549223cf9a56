package config

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		LibraryPath: "./music",
		Telegram: Telegram{
			Enabled:      false,
			Token:        "",                                   // Can be obtained with https://t.me/BotFather
			AllowedUsers: []string{"<your_telegram_username>"}, // username or numeric user id
			BotHandle:    "@<YourTelegramUserBot>",             // With @
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		Database: Database{
			Path: "./musicdex.db",
		},
		Cache: Cache{
			Path: "./cache",
			TTL:  "168h",
		},
		HTTP: HTTP{
			Timeout:     "15s",
			MaxAttempts: 3,
			RetryWait:   "2s",
		},
		Providers: Providers{
			MusicBrainz: Provider{
				Enabled:           true,
				RequestsPerSecond: 1, // https://musicbrainz.org/doc/MusicBrainz_API/Rate_Limiting
			},
			Discogs: Provider{
				Enabled:           false,
				RequestsPerSecond: 1,
			},
			LastFM: LastFM{
				Provider: Provider{
					Enabled:           false,
					RequestsPerSecond: 4,
				},
				Username: "",
			},
			Ticketmaster: Provider{
				Enabled:           false,
				RequestsPerSecond: 4,
				Country:           "",
			},
		},
		Scan: Scan{
			Watch:      false,
			Workers:    4,
			Extensions: []string{".mp3", ".flac", ".m4a", ".ogg"},
		},
		Artwork: Artwork{
			Path:    "./artwork",
			Size:    300,
			Quality: 85,
		},
		Jobs: Jobs{
			Log:     true,
			LogPath: "./logs/jobs",
			Webhooks: WebhookConfig{
				Enabled:  false,
				JobTypes: []string{},
				Command:  "",
			},
		},
	}
}
