package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/speaknote/internal/config"
	"github.com/iliyamo/speaknote/internal/database"
	"github.com/iliyamo/speaknote/internal/handler"
	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/middleware"
	"github.com/iliyamo/speaknote/internal/provider"
	"github.com/iliyamo/speaknote/internal/queue"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/router"
	"github.com/iliyamo/speaknote/internal/scheduler"
	"github.com/iliyamo/speaknote/internal/service"
	"github.com/iliyamo/speaknote/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	mode := "dev"
	if !cfg.IsDev() {
		mode = "prod"
	}
	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	log.Info("database ready", "driver", cfg.DBDriver)

	store, uploadDir, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Redis is optional: without it rate limiting and caching pass through.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	var publisher service.Publisher = service.NopPublisher{}
	if cfg.AMQPEnabled {
		publisher = service.AMQPPublisher{URL: cfg.AMQPURL}
		consumer := &queue.Consumer{URL: cfg.AMQPURL, LogDir: cfg.EventLogDir, Log: log.With("component", "activity-consumer")}
		go func() { _ = consumer.Run(ctx) }()
	}

	users := repository.NewUserRepo(db)
	notes := repository.NewNoteRepo(db)
	activities := repository.NewActivityRepo(db)
	practices := repository.NewPracticeRepo(db)

	activitySvc := service.NewActivityService(activities, cfg.Location,
		service.WithCache(cache),
		service.WithPublisher(publisher),
		service.WithLogger(log.With("component", "activity")),
	)
	cache.Day = activitySvc.Today

	translator, synth := buildProviders(cfg)
	var scorer provider.Scorer
	if cfg.ScorerEnabled {
		s, err := provider.NewSpeechScorer(ctx, cfg.ScorerLanguage, storage.ClientOptionsFromEnv()...)
		if err != nil {
			return fmt.Errorf("speech scorer: %w", err)
		}
		defer s.Close()
		scorer = s
	}

	if cfg.JanitorEnabled {
		j := &scheduler.Janitor{Store: store, Refs: notes, Retention: cfg.JanitorRetention, Log: log.With("component", "janitor")}
		if err := j.Start(cfg.JanitorInterval); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
		defer j.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log, cfg.IsDev())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORS())

	router.RegisterRoutes(e, db, uploadDir, cfg.PublicBasePath)
	router.RegisterAPI(e, router.Handlers{
		Users: handler.NewUserHandler(cfg, users),
		Notes: &handler.NoteHandler{Notes: notes, Activities: activitySvc, Cache: cache, Log: log},
		Providers: &handler.ProviderHandler{
			Translator:  translator,
			Synthesizer: synth,
			Store:       store,
			Notes:       notes,
			Timeout:     cfg.ProviderTimeout,
			DefaultFrom: cfg.TranslateFrom,
			DefaultTo:   cfg.TranslateTo,
		},
		Practices: &handler.PracticeHandler{
			Practices: practices,
			Service: &service.PracticeService{
				Notes:        notes,
				Practices:    practices,
				Activities:   activitySvc,
				Store:        store,
				Scorer:       scorer,
				ScoreTimeout: cfg.ProviderTimeout,
				MaxBytes:     cfg.MaxUploadBytes,
				Log:          log.With("component", "practice"),
			},
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		Activities: &handler.ActivityHandler{Activities: activitySvc, Notes: notes},
		Export:     &handler.ExportHandler{Notes: notes, Practices: practices, Location: cfg.Location},
	}, router.Middlewares{
		JWT:            middleware.JWTAuth(cfg.JWTSecret),
		RateLimit:      middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:          cache.Middleware(),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore returns the configured file store and, for the local store,
// the directory to serve statically.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, string, error) {
	if cfg.StorageDriver == "gcs" {
		g, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSPublicHost)
		if err != nil {
			return nil, "", err
		}
		return g, "", nil
	}
	l, err := storage.NewLocal(cfg.UploadDir, cfg.PublicBasePath)
	if err != nil {
		return nil, "", err
	}
	return l, cfg.UploadDir, nil
}

func buildProviders(cfg config.Config) (provider.Translator, provider.Synthesizer) {
	oa := provider.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.TTSModel, cfg.TTSVoice, cfg.ProviderTimeout)
	if cfg.TranslateProvider == "openai" {
		return oa, oa
	}
	return provider.NewBaidu(cfg.BaiduAppID, cfg.BaiduKey, cfg.BaiduURL, cfg.ProviderTimeout), oa
}
