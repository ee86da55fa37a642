package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/quissme/resonance/internal/api"
	"github.com/quissme/resonance/internal/db"
	"github.com/quissme/resonance/internal/middleware"
	"github.com/quissme/resonance/internal/services"
	"github.com/quissme/resonance/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded .env")
	}

	addr := utils.SafeEnv("RESONANCE_ADDR", ":8080")
	commit := os.Getenv("RESONANCE_COMMIT")
	buildTime := os.Getenv("RESONANCE_BUILD_TIME")

	var store api.Store
	if path := os.Getenv("RESONANCE_DB_PATH"); path != "" {
		conn, err := db.Open(path, os.Getenv("RESONANCE_MIGRATIONS_DIR"))
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer conn.Close()
		store = db.NewSQLiteStore(conn)
		log.Printf("using sqlite store at %s", path)
	} else {
		store = api.NewMemoryStore()
		log.Printf("using in-memory store")
	}

	var insight services.InsightProvider
	var match services.MatchTextProvider
	if endpoint := os.Getenv("RESONANCE_INSIGHT_ENDPOINT"); endpoint != "" {
		provider := services.NewChatInsightProvider(
			endpoint,
			os.Getenv("RESONANCE_INSIGHT_KEY"),
			utils.SafeEnv("RESONANCE_INSIGHT_MODEL", "gpt-4o-mini"),
			&http.Client{Timeout: 15 * time.Second},
		)
		insight = provider
		match = provider
	}
	var astro services.AstroProvider
	if endpoint := os.Getenv("RESONANCE_ASTRO_ENDPOINT"); endpoint != "" {
		astro = services.NewHTTPAstroProvider(endpoint, &http.Client{Timeout: 15 * time.Second})
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	router := api.NewRouter(store, api.Options{
		SignToken: middleware.SignToken,
		Insight:   insight,
		Astro:     astro,
		Match:     match,
		Rand:      rng,
	})
	if n, err := router.Catalog().Seed(); err != nil {
		log.Fatalf("seed quiz catalog: %v", err)
	} else if n > 0 {
		log.Printf("seeded %d quizzes", n)
	}

	mux := http.NewServeMux()
	router.Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Resonance API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.CORS(
		middleware.SecureHeaders(
			middleware.NoStore(
				middleware.LocaleMiddleware(
					middleware.WithAuth(mux)))))

	log.Printf("Resonance server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
