package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contre95/musicdex/src/features/concerts"
	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/features/enrich"
	"github.com/contre95/musicdex/src/features/hosting"
	"github.com/contre95/musicdex/src/features/jobs"
	"github.com/contre95/musicdex/src/features/library"
	"github.com/contre95/musicdex/src/features/logging"
	"github.com/contre95/musicdex/src/features/metrics"
	"github.com/contre95/musicdex/src/features/playlists"
	"github.com/contre95/musicdex/src/features/scanning"
	"github.com/contre95/musicdex/src/infra/artwork"
	"github.com/contre95/musicdex/src/infra/cache"
	"github.com/contre95/musicdex/src/infra/database"
	"github.com/contre95/musicdex/src/infra/metadata"
	"github.com/contre95/musicdex/src/infra/tag"
	"github.com/contre95/musicdex/src/infra/watcher"
)

func main() {
	configPath := os.Getenv("MUSICDEX_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfgManager, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := cfgManager.Get()

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSqliteLibrary(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	responseCache, err := cache.NewJSONFileCache(cfg.Cache.Path, cfg.Cache.TTLDuration())
	if err != nil {
		log.Fatalf("failed to create response cache: %v", err)
	}

	go purgeCache(ctx, responseCache, time.Hour)

	jobService := jobs.NewService(&cfg.Jobs)

	// Metadata providers
	musicBrainz := metadata.NewMusicBrainz(cfgManager, responseCache)
	discogs := metadata.NewDiscogs(cfgManager, responseCache)
	lastFM := metadata.NewLastFM(cfgManager)
	ticketmaster := metadata.NewTicketmaster(cfgManager)
	covers := artwork.NewService(cfgManager)

	// Feature services
	libraryService := library.NewService(db, db, covers, cfgManager, jobService)
	playlistService := playlists.NewService(db, db)
	scanService := scanning.NewService(db, tag.NewTagReader(), cfgManager, jobService)
	enrichService := enrich.NewService(db, db, db, musicBrainz, discogs, lastFM, ticketmaster, cfgManager, jobService)
	concertService := concerts.NewService(db, db, enrichService)
	metricsService := metrics.NewService(db)

	jobService.RegisterHandler(metrics.JobType, jobs.NewBaseTaskHandler(metrics.NewStatsTask(db)))
	jobService.RegisterHandler(scanning.JobType, jobs.NewBaseTaskHandler(scanning.NewScanTask(scanService)))
	jobService.RegisterHandler(enrich.JobTypeMBID, jobs.NewBaseTaskHandler(enrich.NewMBIDTask(enrichService)))
	jobService.RegisterHandler(enrich.JobTypeDiscogs, jobs.NewBaseTaskHandler(enrich.NewDiscogsTask(enrichService)))
	jobService.RegisterHandler(enrich.JobTypeScrobbles, jobs.NewBaseTaskHandler(enrich.NewScrobbleImportTask(enrichService)))
	jobService.RegisterHandler(enrich.JobTypeConcerts, jobs.NewBaseTaskHandler(enrich.NewConcertsTask(enrichService)))
	jobService.RegisterHandler(library.CoverJobType, jobs.NewBaseTaskHandler(library.NewCoverPrefetchTask(libraryService)))

	metrics.StartGaugeRefresher(ctx, db, 5*time.Minute)

	if cfg.Scan.Watch {
		events := make(chan watcher.FileEvent, 16)
		w, err := watcher.NewWatcher(events, cfg.Scan.Extensions, watcher.DefaultDebounce)
		if err != nil {
			slog.Error("Failed to create library watcher", "error", err)
		} else if err := scanService.WatchLibrary(ctx, w, events); err != nil {
			slog.Error("Failed to watch library", "path", cfg.LibraryPath, "error", err)
		} else {
			slog.Info("Watching library for changes", "path", cfg.LibraryPath)
		}
	}

	var telegramBot *hosting.TelegramBot
	if cfg.Telegram.Enabled {
		telegramBot, err = hosting.NewTelegramBot(cfgManager,
			library.NewTelegramHandler(libraryService),
			concerts.NewTelegramHandler(concertService),
			scanning.NewTelegramHandler(scanService),
			jobs.NewTelegramHandler(jobService),
			config.NewTelegramHandler(cfgManager),
		)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	server := hosting.NewServer(cfgManager, hosting.Services{
		Library:   libraryService,
		Playlists: playlistService,
		Concerts:  concertService,
		Scanning:  scanService,
		Enrich:    enrichService,
		Metrics:   metricsService,
		Jobs:      jobService,
	})
	go func() {
		slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			slog.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	if telegramBot != nil {
		telegramBot.Stop()
	}
	if err := server.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}

	jobService.CancelAll()
	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := jobService.Wait(waitCtx); err != nil {
		slog.Warn("Jobs still running at shutdown", "error", err)
	}
	slog.Info("Gracefully shut down.")
}

// purgeCache drops expired provider responses every interval until ctx is done.
func purgeCache(ctx context.Context, c *cache.JSONFileCache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if removed, err := c.Purge(); err != nil {
			slog.Warn("Failed to purge response cache", "error", err)
		} else if removed > 0 {
			slog.Debug("Purged expired cache entries", "removed", removed)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
