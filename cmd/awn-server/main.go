package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/app"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/buildinfo"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/config"
)

func main() {
	def := config.Default()
	configPath := flag.String("config", config.DefaultPath(), "Fichier de configuration YAML (ex: awn.yaml)")
	addr := flag.String("addr", def.Addr, "Adresse d'écoute (ex: 127.0.0.1:3000)")
	dbPath := flag.String("db", def.DBPath, "Chemin SQLite (ex: awn.db)")
	interval := flag.Duration("interval", def.Interval, "Intervalle entre deux vérifications")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "awn-server").Logger()
	log.Logger = logger

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config", *configPath).Msg("invalid configuration")
	}
	// Les flags passés explicitement l'emportent sur le fichier.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *dbPath
		case "interval":
			cfg.Interval = *interval
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	logger = logger.Level(level)
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", cfg.DBPath).Dur("interval", cfg.Interval).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	sources, err := buildSources(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid sources")
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, startTransport := buildTransport(cfg, logger.With().Str("component", "notify").Logger())
	go startTransport(shutdownCtx)

	bus := memorybus.New()
	defer bus.Close()

	snapshots := sqlite.NewSnapshotRepository(db.SQL)
	tracking := sqlite.NewTrackingRepository(db.SQL)
	selection := app.NewSelectionService(snapshots, tracking, bus)
	notifier := app.NewNotifier(transport, cfg.Notify.Locale, cfg.Notify.ReadyTimeout)

	poller := app.NewPoller(logger.With().Str("component", "poller").Logger(), snapshots, tracking, sources, notifier, bus)
	poller.Interval = cfg.Interval

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if err := poller.Run(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("poller failed")
			stop()
		}
	}()

	srv := httpapi.NewServer(logger, selection, poller, bus)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msgf("listening, pick titles at http://%s/select", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	// Ferme les flux SSE avant Shutdown, qui attend la fin des requêtes.
	bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)

	select {
	case <-pollerDone:
	case <-ctx.Done():
		logger.Warn().Msg("poll cycle still running at exit")
	}
	logger.Info().Msg("bye")
}
