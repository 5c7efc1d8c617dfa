package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/config"
	"github.com/kailas-cloud/citeflow/internal/db"
	"github.com/kailas-cloud/citeflow/internal/db/memory"
	dbRedis "github.com/kailas-cloud/citeflow/internal/db/redis"
	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	logpkg "github.com/kailas-cloud/citeflow/internal/logger"
	"github.com/kailas-cloud/citeflow/internal/metrics"
	"github.com/kailas-cloud/citeflow/internal/parser"
	"github.com/kailas-cloud/citeflow/internal/repository/embcache"
	treerepo "github.com/kailas-cloud/citeflow/internal/repository/tree"
	chiTransport "github.com/kailas-cloud/citeflow/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/citeflow/internal/transport/openai"
	documentuc "github.com/kailas-cloud/citeflow/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/citeflow/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/citeflow/internal/usecase/health"
	queryuc "github.com/kailas-cloud/citeflow/internal/usecase/query"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
	"github.com/kailas-cloud/citeflow/internal/version"
)

const scorerHealthTimeout = 10 * time.Second

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting citeflow API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAnswerMetrics()
	metrics.RegisterCitationMetrics()

	// Highlight scorer; the embedder is nil unless the semantic scorer is active
	scorer, embedder, err := buildScorer(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to build highlight scorer", zap.Error(err))
	}

	var opts []highlight.Option
	opts = append(opts,
		highlight.WithMaxHighlights(cfg.Highlight.MaxHighlights),
		highlight.WithMinSentenceLength(cfg.Highlight.MinSentenceLength),
	)
	if cfg.Highlight.ScoreThreshold != nil {
		opts = append(opts, highlight.WithScoreThreshold(*cfg.Highlight.ScoreThreshold))
	}
	resolver := resolve.New(highlight.NewExtractor(scorer.impl, opts...), scorer.name)

	answerer := openaiTransport.NewAnswerer(&openaiTransport.AnswererConfig{
		APIKey:          cfg.Answer.APIKey,
		BaseURL:         cfg.Answer.BaseURL,
		Model:           cfg.Answer.Model,
		Temperature:     cfg.Answer.Temperature,
		MaxContextChars: cfg.Answer.MaxContextChars,
		Provider:        cfg.Answer.Provider,
		Logger:          logger,
	})
	logger.Info("Answer provider created",
		zap.String("provider", cfg.Answer.Provider),
		zap.String("model", cfg.Answer.Model),
		zap.String("scorer", scorer.name),
	)

	// Create repositories and use case services
	trees := treerepo.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.Storage.TreeTTLSec)*time.Second)

	docSvc := documentuc.New(trees, parser.PDF{}).
		WithPagination(cfg.Documents.DefaultPageSize, cfg.Documents.MaxPageSize)
	querySvc := queryuc.New(trees, answerer, resolver)

	// Pass nil interface (not typed nil pointer!) when there is no embedder.
	var embChecker healthuc.EmbeddingChecker
	if embedder != nil {
		embChecker = embedder
	}
	healthSvc := healthuc.New(store, embChecker, healthuc.WithAnswerProvider(answerer))

	server := chiTransport.NewServer(querySvc, docSvc, healthSvc, logger).
		WithMaxUploadBytes(int64(cfg.Documents.MaxUploadMB) << 20)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore creates the database store for the configured driver.
// valkey and redis share the rueidis store.
func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

type namedScorer struct {
	name string
	impl highlight.Scorer
}

// chooseScorer resolves the configured scorer against the embedding provider's health.
// An unhealthy provider switches to keywords only when fallback is enabled.
func chooseScorer(ctx context.Context, cfg config.HighlightConfig, healthCheck func(context.Context) error) (string, error) {
	if cfg.Scorer != config.ScorerSemantic {
		return config.ScorerKeyword, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, scorerHealthTimeout)
	defer cancel()
	if err := healthCheck(checkCtx); err != nil {
		if cfg.FallbackToKeyword {
			logpkg.FromContext(ctx).Warn("Embedding provider unavailable, falling back to keyword scorer", zap.Error(err))
			return config.ScorerKeyword, nil
		}
		return "", fmt.Errorf("semantic scorer: embedding provider unavailable: %w", err)
	}
	return config.ScorerSemantic, nil
}

// buildScorer picks the highlight scorer.
func buildScorer(
	ctx context.Context,
	cfg config.Config,
	store db.Store,
	logger *zap.Logger,
) (namedScorer, *embeddinguc.InstrumentedEmbedder, error) {
	keyword := namedScorer{name: config.ScorerKeyword, impl: highlight.NewKeywordScorer()}
	if cfg.Highlight.Scorer != config.ScorerSemantic {
		return keyword, nil, nil
	}

	embedder := buildEmbedder(cfg.Embedding, cfg.Storage.KeyPrefix, store, logger)
	name, err := chooseScorer(logpkg.ContextWithLogger(ctx, logger), cfg.Highlight, embedder.HealthCheck)
	if err != nil {
		return namedScorer{}, nil, err
	}
	if name == config.ScorerKeyword {
		return keyword, nil, nil
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)
	return namedScorer{name: config.ScorerSemantic, impl: highlight.NewSemanticScorer(embedder)}, embedder, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instruction -> Cached -> Instrumented.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	keyPrefix string,
	store db.Store,
	logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		User:       cfg.User,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	// Instruction sits below the cache; cache keys are the raw text.
	if cfg.Instruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Instruction)
	}

	if cfg.Cache.Enabled {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix: keyPrefix,
			Model:     cfg.Model,
			TTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line; for streams it is written after the last event
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
