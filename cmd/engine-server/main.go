// cmd/engine-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rag-engine/internal/common/config"
	"rag-engine/internal/common/database"
	stderrors "rag-engine/internal/common/errors"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/common/observability"
	"rag-engine/internal/completion"
	"rag-engine/internal/engine"
	"rag-engine/internal/engine/blend"
	"rag-engine/internal/engine/clients"
	"rag-engine/internal/engine/compose"
	"rag-engine/internal/engine/configstore"
	"rag-engine/internal/engine/interpolate"
	"rag-engine/internal/engine/modes"
	"rag-engine/internal/retrieval"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting engine server...",
		zap.String("preset", cfg.Engine.Preset),
		zap.String("clientSource", cfg.Engine.ClientSource),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Elasticsearch with retry ---
	var es *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry (cache layer only) ---
	var rdb *database.RedisClient
	if cfg.Engine.CacheEnabled {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Postgres with retry (configuration source only) ---
	var pg *database.PostgresClient
	if cfg.Engine.ClientSource == "postgres" {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Administrative configuration ---
	catalog, err := modes.NewCatalog(cfg.Engine.Preset)
	if err != nil {
		zapLog.Fatal("mode catalog construction failed", zap.Error(err))
	}

	var source configstore.Source
	if cfg.Engine.ClientSource == "postgres" {
		source = configstore.NewPostgresSource(pg)
	} else {
		source = configstore.NewFileSource(cfg.Engine.TemplatesPath, cfg.Engine.ClientsDir)
	}
	store := configstore.New(source, modeIDs(catalog), log)

	registry := clients.NewRegistry()
	loadedClients, err := store.LoadAllClients(ctx)
	if err != nil {
		zapLog.Fatal("client configuration load failed", zap.Error(err))
	}
	if err := registry.ReplaceAll(loadedClients); err != nil {
		zapLog.Fatal("client registration failed", zap.Error(err))
	}

	templates, err := store.LoadBaseTemplates(ctx)
	if err != nil {
		zapLog.Fatal("base template load failed", zap.Error(err))
	}

	// --- Pipeline wiring ---
	var gateway retrieval.Gateway = retrieval.NewElasticGateway(
		es.Client, cfg.Database.Elasticsearch.Index, log)
	if cfg.Engine.CacheEnabled {
		gateway = retrieval.NewCachedGateway(gateway, rdb,
			config.GetDuration(cfg.Engine.CacheTTLMs), log)
	}

	completer := completion.NewHTTPCompleter(completion.Options{
		BaseURL:   cfg.Completion.BaseURL,
		APIKey:    cfg.Completion.APIKey,
		Model:     cfg.Completion.Model,
		MaxTokens: cfg.Completion.MaxTokens,
		Timeout:   config.GetDuration(cfg.Engine.CompletionTimeout),
	}, log)

	engineOpts := engine.Options{
		MaxPassages:        cfg.Engine.MaxPassages,
		RetrievalAttempts:  cfg.Engine.RetrievalAttempts,
		CompletionAttempts: cfg.Engine.CompletionAttempts,
		BackoffInitial:     config.GetDuration(cfg.Engine.BackoffInitialMs),
		RetrievalTimeout:   config.GetDuration(cfg.Engine.RetrievalTimeoutMs),
		CompletionTimeout:  config.GetDuration(cfg.Engine.CompletionTimeout),
	}

	interp := interpolate.New(interpolate.PolicyStrict, cfg.Engine.ListSeparator, log)
	blender := blend.New(cfg.Engine.SimilarityFloor)

	var engineRef atomic.Pointer[engine.Engine]
	engineRef.Store(engine.New(registry, catalog, compose.New(templates, interp),
		gateway, completer, blender, engineOpts, log, obs))

	zapLog.Info("Engine assembled",
		zap.Int("clients", registry.Len()),
		zap.Int("modes", len(catalog.List())),
	)

	// --- HTTP surface ---
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/answer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		var req engine.AnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		result, err := engineRef.Load().Answer(r.Context(), req)
		if err != nil {
			stdErr := stderrors.Normalize(err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stderrors.HTTPStatus(stdErr.Code))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   stdErr.Code,
				"message": stdErr.Message,
				"details": stdErr.Details,
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	mux.HandleFunc("/admin/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		reloaded, err := store.LoadAllClients(r.Context())
		if err != nil {
			log.WithError(err).Error("reload failed, previous snapshot still serving", nil)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		reloadedTemplates, err := store.LoadBaseTemplates(r.Context())
		if err != nil {
			log.WithError(err).Error("reload failed, previous snapshot still serving", nil)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := registry.ReplaceAll(reloaded); err != nil {
			log.WithError(err).Error("reload failed, previous snapshot still serving", nil)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		engineRef.Store(engine.New(registry, catalog, compose.New(reloadedTemplates, interp),
			gateway, completer, blender, engineOpts, log, obs))

		log.Info("configuration reloaded", map[string]interface{}{
			"clients": len(reloaded),
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "reloaded",
			"clients": len(reloaded),
		})
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"elasticsearch": "ok"}
		ready := true
		if err := es.Ping(); err != nil {
			checks["elasticsearch"] = err.Error()
			ready = false
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(pingCtx); err != nil {
				checks["redis"] = err.Error()
				ready = false
			}
		}
		if pg != nil {
			checks["postgres"] = "ok"
			if err := pg.Ping(pingCtx); err != nil {
				checks["postgres"] = err.Error()
				ready = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ready":  ready,
			"checks": checks,
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeoutMs),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeoutMs),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeoutMs))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Engine server stopped gracefully")
}

func modeIDs(catalog *modes.Catalog) []string {
	specs := catalog.List()
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		ids = append(ids, spec.ModeID)
	}
	return ids
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
