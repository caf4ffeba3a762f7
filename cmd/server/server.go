package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/meeting-intelligence/internal/api"
	"github.com/yourusername/meeting-intelligence/internal/cache"
	"github.com/yourusername/meeting-intelligence/internal/config"
	"github.com/yourusername/meeting-intelligence/internal/crmsync"
	"github.com/yourusername/meeting-intelligence/internal/database"
	"github.com/yourusername/meeting-intelligence/internal/logger"
	appMiddleware "github.com/yourusername/meeting-intelligence/internal/middleware"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/platformbot"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/security"
	"github.com/yourusername/meeting-intelligence/internal/sessionmgr"
	"github.com/yourusername/meeting-intelligence/internal/summary"
	"github.com/yourusername/meeting-intelligence/internal/transcription"
	"github.com/yourusername/meeting-intelligence/internal/validation"

	// Adapter/engine packages register themselves into their parent
	// registries via init(); importing them for side effects is how the
	// Call Bot Service, Transcription Service, and CRM Sync learn about
	// their pluggable implementations without reflection-based dispatch.
	_ "github.com/yourusername/meeting-intelligence/internal/crmsync/creatio"
	_ "github.com/yourusername/meeting-intelligence/internal/crmsync/hubspot"
	_ "github.com/yourusername/meeting-intelligence/internal/crmsync/salesforce"
	_ "github.com/yourusername/meeting-intelligence/internal/platformbot/meet"
	_ "github.com/yourusername/meeting-intelligence/internal/platformbot/teams"
	_ "github.com/yourusername/meeting-intelligence/internal/platformbot/zoom"
	_ "github.com/yourusername/meeting-intelligence/internal/transcription/engine/mock"
	_ "github.com/yourusername/meeting-intelligence/internal/transcription/engine/remote"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Not an error - we might be using system env vars
	}

	cfg := config.Load()

	logger.Init(cfg.IsDevelopment())
	log := logger.WithComponent("main")

	log.Info().Msg("Starting meeting-intelligence server")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if cfg.AutoSeed {
		log.Info().Msg("Auto-seeding database (AUTO_SEED=true)...")
		database.SeedAll(db)
	} else {
		log.Info().Msg("Skipping auto-seed (AUTO_SEED=false). Use 'go run cmd/seed/seed.go -all' to seed manually.")
	}

	repos := repository.NewRepositories(db)

	sessionCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis; session cache warm/invalidate will no-op")
		sessionCache = nil
	}

	registry := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(registry)

	pii := security.NewPresidioClient(
		security.NewPresidioConfig().
			WithEnabled(cfg.PresidioEnabled).
			WithURLs(cfg.PresidioAnalyzerURL, cfg.PresidioAnonymizerURL).
			WithLanguage(cfg.PresidioLanguage),
		logger.WithComponent("security"),
	)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transcripts := transcription.NewService(transcription.Config{
		MaxChunkQueueSize:     cfg.MaxChunkQueueSize,
		ErrorThreshold:        cfg.ErrorThreshold,
		QualityCheckIntervalS: cfg.QualityCheckIntervalS,
	}, rec)

	summaries := summary.NewGenerator(repos.DraftSummary, repos.ActionItem, rec)

	bots := platformbot.NewService(nil) // disconnect handler wired in after the Manager exists
	bots.StartMonitor(rootCtx)
	defer bots.StopMonitor()

	sessions := sessionmgr.New(
		rootCtx,
		sessionmgr.Config{
			MaxReconnectAttempts: cfg.MaxReconnectAttempts,
			ReconnectDelayBaseS:  cfg.ReconnectDelayBaseS,
			SessionTimeoutS:      cfg.SessionTimeoutS,
			EngineType:           cfg.EngineType,
			EngineAPIKey:         cfg.EngineAPIKey,
		},
		repos.Meeting,
		repos.CallBotSession,
		bots,
		transcripts,
		summaries,
		sessionCache,
		rec,
	)
	bots.SetDisconnectHandler(sessions)

	workflow := validation.NewWorkflow(repos.ValidationSession, repos.DraftSummary).
		WithExpiry(time.Duration(cfg.ValidationExpiryS) * time.Second)

	crmService := crmsync.NewService(
		crmsync.Config{
			MaxAttempts:    cfg.CRMSyncMaxAttempts,
			RetryBaseDelay: time.Duration(cfg.CRMSyncBackoffBaseS) * time.Second,
		},
		repos.ValidationSession,
		repos.DraftSummary,
		repos.CRMSyncRecord,
		rec,
		pii,
	)

	handlers := api.NewHandlers(sessions, transcripts, workflow, crmService, repos)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	corsOrigins := []string{"http://localhost:5173", "http://localhost:5174"}
	if cfg.IsProduction() {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"service": "meeting-intelligence",
			"status":  "running",
		})
	})

	r.Get("/healthz", handlers.Health.Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.JWTAuth(cfg.JWTSecret))

		r.Route("/meetings", func(r chi.Router) {
			r.Post("/{id}/start", handlers.Meeting.Start)
			r.Post("/{id}/end", handlers.Meeting.End)
			r.Get("/{id}/status", handlers.Meeting.Status)
			r.Post("/{id}/sync-crm", handlers.CRM.SyncCRM)
			r.Post("/sessions/{id}/transcript", handlers.Meeting.PushTranscript)
		})

		r.Route("/validation", func(r chi.Router) {
			r.Post("/sessions", handlers.Validation.Create)
			r.Get("/sessions/{id}/questions", handlers.Validation.Questions)
			r.Post("/sessions/{id}/responses", handlers.Validation.SubmitResponse)
			r.Post("/sessions/{id}/complete", handlers.Validation.Complete)
		})
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.Info().Str("port", port).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")
	cancel()
	_ = srv.Shutdown(context.Background())
}
