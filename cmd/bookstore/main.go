package main

import (
	"database/sql"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"BookNook/internal/bookstore"
	"BookNook/pkg/kit"
)

func main() {
	service := "bookstore"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET is required and must be at least 32 chars")
	}

	store, err := newStore(log)
	if err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}

	s := &bookstore.Server{
		Store: store,
		JWT:   bookstore.NewTokenMaker(jwtSecret),
		Log:   log,
	}

	h := bookstore.NewHandler(s, bookstore.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	})

	if err := kit.RunHTTPServer(":"+port, h, log, shutdownGrace(log)); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// shutdownGrace reads SHUTDOWN_GRACE (e.g. "30s"); zero lets the kit
// default apply.
func shutdownGrace(log *zap.Logger) time.Duration {
	v := os.Getenv("SHUTDOWN_GRACE")
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn("invalid SHUTDOWN_GRACE, using default", zap.String("value", v))
		return 0
	}
	return d
}

func newStore(log *zap.Logger) (bookstore.Store, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Info("no DATABASE_URL, using seeded memory store")
		return bookstore.NewSeededMemStore(), nil
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, err
	}
	log.Info("using postgres store")
	return bookstore.NewPostgresStore(db), nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
