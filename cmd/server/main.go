package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/auditforge/auditforge/internal/ai"
	"github.com/auditforge/auditforge/internal/api"
	"github.com/auditforge/auditforge/internal/db"
	"github.com/auditforge/auditforge/internal/middleware"
	"github.com/auditforge/auditforge/internal/services"
	"github.com/auditforge/auditforge/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	addr := utils.SafeEnv("AUDITFORGE_ADDR", ":8080")

	store, cleanup, err := openStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer cleanup()

	gen := buildGenerator()

	mux := http.NewServeMux()
	api.NewRouter(store, gen).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"name": "AuditForge API",
		})
	})

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("AuditForge server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore returns the configured Store. AUDITFORGE_DB=memory keeps
// everything in process (useful for development); the default is sqlite at
// AUDITFORGE_DB_PATH.
func openStore() (api.Store, func(), error) {
	if utils.SafeEnv("AUDITFORGE_DB", "sqlite") == "memory" {
		return api.NewMemoryStore(), func() {}, nil
	}
	path := utils.SafeEnv("AUDITFORGE_DB_PATH", "data/auditforge.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.RunMigrations(sqliteDB); err != nil {
		_ = sqliteDB.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := db.NewStore(sqliteDB)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, nil, fmt.Errorf("init sqlite store: %w", err)
	}
	cleanup := func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}
	return store, cleanup, nil
}

// buildGenerator returns the Gemini client, or nil when no key is
// configured. Without a generator, checklists and recommendations use their
// fixed fallbacks.
func buildGenerator() services.TextGenerator {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		log.Printf("GEMINI_API_KEY not set; checklist and recommendation generation will use fallbacks")
		return nil
	}
	client, err := ai.NewClient(context.Background(), ai.Config{
		APIKey:  key,
		Model:   utils.SafeEnv("GEMINI_MODEL", ai.DefaultModel),
		Timeout: utils.SafeEnvDuration("AUDITFORGE_AI_TIMEOUT", ai.DefaultTimeout),
	})
	if err != nil {
		log.Printf("gemini client unavailable (%v); using fallbacks", err)
		return nil
	}
	return client
}
