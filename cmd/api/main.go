// Command api serves read-only queries over the final merged transaction
// table and exposes an admin endpoint that re-runs the pipeline in the
// background.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/transaction-unifier/internal/api/handlers"
	"github.com/dvloznov/transaction-unifier/internal/api/middleware"
	"github.com/dvloznov/transaction-unifier/internal/config"
	"github.com/dvloznov/transaction-unifier/internal/jobs"
	"github.com/dvloznov/transaction-unifier/internal/jobs/inmemory"
	"github.com/dvloznov/transaction-unifier/internal/logger"
	"github.com/dvloznov/transaction-unifier/internal/pipeline"
	"github.com/dvloznov/transaction-unifier/internal/query"
)

func main() {
	var (
		port       = flag.String("port", "8080", "HTTP server port")
		configPath = flag.String("config", "", "path to the YAML run configuration (optional)")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := query.Load(cfg.FinalOutput)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.FinalOutput).Msg("failed to load merged transactions")
	}
	log.Info().Str("path", cfg.FinalOutput).Int("users", len(store.Users())).Msg("merged table loaded")

	ctx := context.Background()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	rebuildHandler := func(ctx context.Context, job *jobs.RebuildJob) error {
		runCfg := cfg
		if job.Seed != 0 {
			runCfg.Seed = job.Seed
		}

		log.Info().Str("job_id", job.JobID).Msg("rebuild started")
		if _, err := pipeline.Run(ctx, runCfg, log); err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("rebuild failed")
			return err
		}
		if err := store.Reload(runCfg.FinalOutput); err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("reload after rebuild failed")
			return err
		}

		log.Info().Str("job_id", job.JobID).Msg("rebuild complete")
		return nil
	}

	go func() {
		if err := jobQueue.Start(workerCtx, rebuildHandler); err != nil {
			log.Error().Err(err).Msg("job worker stopped with error")
		}
	}()

	transactionsHandler := handlers.NewTransactionsHandler(store, log)
	adminHandler := handlers.NewAdminHandler(jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/users/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		transactionsHandler.ListGrouped(w, r)
	})

	mux.HandleFunc("/api/user/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/user/")
		switch {
		case strings.HasSuffix(rest, "/transactions/top"):
			userID := strings.TrimSuffix(rest, "/transactions/top")
			transactionsHandler.TopTransactions(w, r, userID)
		case strings.HasSuffix(rest, "/transactions"):
			userID := strings.TrimSuffix(rest, "/transactions")
			transactionsHandler.UserTransactions(w, r, userID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "not found")
		}
	})

	mux.HandleFunc("/api/admin/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		adminHandler.Rebuild(w, r)
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		jobsHandler.ListJobs(w, r)
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error stopping job queue")
	}

	log.Info().Msg("server exited")
}
