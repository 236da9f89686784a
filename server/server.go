package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scorelib/cache"
	"scorelib/config"
	"scorelib/db"
	"scorelib/logger"
	"scorelib/repository"
	"scorelib/storage"

	"github.com/gorilla/mux"
)

// NewRouter assembles the full route table and middleware chain. Exposed
// separately from Start so tests can drive it with httptest.
func NewRouter(h *APIHandler, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.Use(loggingMiddleware)

	// OPTIONS is listed on every route so preflights reach the CORS
	// middleware; it short-circuits them before the handlers run.
	router.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/scores", h.GetScoresHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/upload", h.UploadScoreHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/scores/{id}", h.DeleteScoreHandler).Methods(http.MethodDelete, http.MethodOptions)
	router.HandleFunc("/api/pdfs/{filename}", h.ServePDFHandler).Methods(http.MethodGet, http.MethodOptions)

	return router
}

// corsMiddleware allows cross-origin requests from the configured origins
// only. Requests without an Origin header pass through untouched.
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if !allowed[origin] {
					http.Error(w, "Not allowed by CORS", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int64("contentLength", r.ContentLength),
			logger.Duration("elapsed", time.Since(start)))
	})
}

// Start initializes all backends and runs the HTTP server until SIGINT or
// SIGTERM, then shuts down gracefully.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	blobs, err := storage.NewMinioBlobStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize blob storage", logger.ErrorField(err))
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer conn.Close()

	if err := db.InitDB(conn); err != nil {
		logger.Fatal("failed to initialize database", logger.ErrorField(err))
	}

	// The listing cache is optional; without Redis the repository serves
	// every request directly.
	var listCache *cache.ScoreCache
	if redisClient, err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, listing cache disabled", logger.ErrorField(err))
	} else {
		defer redisClient.Close()
		listCache = cache.NewScoreCache(redisClient)
	}

	scoreRepo := repository.NewMySQLScoreRepository(conn)
	apiHandler := NewAPIHandler(scoreRepo, blobs, listCache, cfg)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(apiHandler, cfg),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}
