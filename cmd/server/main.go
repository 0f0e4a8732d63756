// Command server runs the HTTP surface over the solve/sensitivity core:
// POST /api/v1/solve, POST /api/v1/sensitivity, a progress websocket, and
// health/readiness endpoints. Grounded closely on the teacher's
// cmd/server/main.go: Gin router, Redis + Postgres wiring, a websocket hub
// run in its own goroutine, and a graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/api/handlers"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/cache"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/persistence"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/wsprogress"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	port := flags.String("port", envOr("PORT", "8090"), "HTTP listen port")
	development := flags.Bool("development", os.Getenv("ENV") != "production", "enable debug logging and Gin debug mode")
	redisURL := flags.String("redis-url", envOr("REDIS_URL", "redis://localhost:6379/0"), "Redis connection URL for the result cache")
	pgHost := flags.String("postgres-host", envOr("POSTGRES_HOST", ""), "Postgres host; leave empty to run without persistence")
	pgPort := flags.String("postgres-port", envOr("POSTGRES_PORT", "5432"), "Postgres port")
	pgUser := flags.String("postgres-user", envOr("POSTGRES_USER", "fpl"), "Postgres user")
	pgPassword := flags.String("postgres-password", envOr("POSTGRES_PASSWORD", ""), "Postgres password")
	pgDatabase := flags.String("postgres-db", envOr("POSTGRES_DB", "fpl_optimizer"), "Postgres database name")
	migrationsPath := flags.String("migrations-path", envOr("MIGRATIONS_PATH", "internal/persistence/migrations"), "schema migrations directory")
	flags.Parse(os.Args[1:])

	log := logging.Init("", *development)
	log.WithFields(map[string]interface{}{"port": *port, "development": *development}).Info("starting fpl-optimizer server")

	if *development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	opt, err := redis.ParseURL(*redisURL)
	if err != nil {
		log.WithError(err).Fatal("invalid redis url")
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable at startup; the result cache will degrade, not block, requests")
	}
	defer redisClient.Close()
	solutionCache := cache.New(redisClient, log)

	var db *persistence.DB
	if *pgHost != "" {
		pgCfg := persistence.DefaultConfig()
		pgCfg.Host, pgCfg.Port, pgCfg.User, pgCfg.Password, pgCfg.Database = *pgHost, *pgPort, *pgUser, *pgPassword, *pgDatabase
		db, err = persistence.Open(pgCfg)
		if err != nil {
			log.WithError(err).Warn("postgres unreachable at startup; persistence will be unavailable")
		} else {
			defer db.Close()
			if migrator, err := persistence.NewMigrator(db, *migrationsPath); err != nil {
				log.WithError(err).Warn("failed to initialise migrator")
			} else {
				if err := migrator.Up(); err != nil {
					log.WithError(err).Warn("failed to run migrations")
				}
				migrator.Close()
			}
		}
	}

	wsHub := wsprogress.NewHub(log)
	go wsHub.Run()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	solveHandler := handlers.NewSolveHandler(solutionCache, wsHub, log)
	sensitivityHandler := handlers.NewSensitivityHandler(solutionCache, wsHub, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/solve", solveHandler.Solve)
		apiV1.POST("/sensitivity", sensitivityHandler.Run)
	}
	router.GET("/ws/progress/:run_id", wsHub.HandleWebSocket)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	srv := &http.Server{Addr: fmt.Sprintf(":%s", *port), Handler: router}

	go func() {
		log.WithField("port", *port).Info("fpl-optimizer server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down fpl-optimizer server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("fpl-optimizer server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
