package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/matthieu-foucault/metabase/internal/config"
	"github.com/matthieu-foucault/metabase/internal/db"
	"github.com/matthieu-foucault/metabase/internal/dialect"
	"github.com/matthieu-foucault/metabase/internal/handler"
	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	cache := metadata.NewCache()
	if err := cache.Load(ctx, pool); err != nil {
		log.Fatalf("failed to load metadata cache: %v", err)
	}
	log.Printf("metadata cache loaded: %d tables", cache.Count())

	registry := dialect.NewRegistry()
	root := dialect.NewRootDialect()
	registry.Register(root)
	registry.Register(dialect.NewPostgresDialect(root))
	registry.Register(dialect.NewMySQLDialect(root))

	h := handler.New(registry, cache, cfg.Debug)

	router := mux.NewRouter()
	router.HandleFunc("/api/mbql/{dialect}/compile", h.Compile).Methods(http.MethodPost)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	router.Use(middleware.Recovery)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	router.Use(middleware.ContentType)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		log.Println("shutting down...")
		srv.Shutdown(context.Background())
	}()

	log.Printf("listening on %s", cfg.Addr())
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
