// Package main is the entry point for the Hire Filter API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shimizu-Technology/hire-filter-api/internal/config"
	"github.com/Shimizu-Technology/hire-filter-api/internal/handlers"
	"github.com/Shimizu-Technology/hire-filter-api/internal/middleware"
	"github.com/Shimizu-Technology/hire-filter-api/internal/router"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/archive"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/upload"
	"github.com/Shimizu-Technology/hire-filter-api/internal/session"
	"github.com/Shimizu-Technology/hire-filter-api/internal/viewer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// blobURLPrefix must match the blobs route registered by the router.
const blobURLPrefix = "/api/v1/blobs/"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Hire Filter API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, session_backend=%s, max_upload=%dMB, gin_mode=%s",
		cfg.Port, cfg.SessionBackend, cfg.MaxUploadMB, cfg.GinMode)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Session Store
	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create session store: %v", err)
	}

	// Step 3: Create Services
	uploads := upload.NewService(archive.NewZipExtractor())
	viewers := viewer.NewManager(store, pdf.NewLedongExtractor(), viewer.NewBlobs(blobURLPrefix), cfg.ViewerIdleTTL())
	if cfg.ViewerIdleTTL() > 0 {
		viewers.StartReaper(time.Minute)
		log.Printf("✅ Idle viewer reaper running (ttl=%s)", cfg.ViewerIdleTTL())
	} else {
		log.Println("⚠️  Idle viewer reaping disabled (VIEWER_IDLE_TTL_MINUTES <= 0)")
	}
	defer viewers.Stop()

	rateLimiter := middleware.NewRateLimiter(cfg.UploadRateLimit)
	defer rateLimiter.Stop()

	// Step 4: Setup HTTP Router
	handlers.Version = Version
	h := handlers.NewHandler(uploads, store, viewers, cfg.MaxUploadBytes(), cfg.SessionBackend)
	r := router.Setup(h, rateLimiter, cfg.AllowedOrigins, cfg.GinMode == "release")

	// Step 5: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second, // archives can be large
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}

// newSessionStore picks the session slot backend from config.
func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendFile:
		store, err := session.NewFileStore(cfg.SessionDir)
		if err != nil {
			return nil, err
		}
		log.Printf("✅ File session store at %s", cfg.SessionDir)
		return store, nil
	default:
		log.Println("⚠️  In-memory session store (sessions are lost on restart)")
		return session.NewMemoryStore(), nil
	}
}
