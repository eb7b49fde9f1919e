// Entry point for the filmseek HTTP service: chi router over the
// tiered search service, with a small embedded search page.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"

	"filmseek/cache"
	"filmseek/scout"
	"filmseek/service"
	"filmseek/workflow"
)

//go:embed static
var staticFS embed.FS

const cleanupInterval = time.Hour

func main() {
	port := env("PORT", "8080")
	configFile := env("CONFIG_FILE", "")
	webhookURL := env("WEBHOOK_URL", "")
	cacheDB := env("CACHE_DB", "db/movies.db")
	logLevel := env("LOG_LEVEL", "info")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var scoutCfg scout.Config
	if configFile != "" {
		var err error
		scoutCfg, err = scout.LoadConfig(configFile)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
	}

	searcher := scout.New(scoutCfg, logger)
	defer searcher.Close()

	store, err := cache.Open(cacheDB)
	if err != nil {
		slog.Error("cache store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := service.New(service.Config{
		Searcher: searcher,
		External: workflow.New(webhookURL, workflow.WithLogger(logger)),
		Memory:   cache.NewMemory(cache.DefaultMemorySize, cache.DefaultMemoryTTL),
		Store:    store,
		Logger:   logger,
	})

	// Periodic pruning of expired cache rows and stale catalog entries.
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				svc.Cleanup(ctx)
			}
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		maxResults := queryInt(r, "max_results", 20)
		useExternal := webhookURL != "" && r.URL.Query().Get("use_external") != "false"

		resp := svc.Search(r.Context(), query, maxResults, useExternal)
		writeJSON(w, 200, resp)
	})

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.CheckHealth())
	})

	r.Get("/api/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.ReadCacheStats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	r.Post("/api/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearCache(r.Context()); err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "cleared"})
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("static/index.html")
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
