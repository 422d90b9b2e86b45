package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/api"
	"github.com/latteboxd/latteboxd/internal/app"
	"github.com/latteboxd/latteboxd/internal/cafe"
	"github.com/latteboxd/latteboxd/internal/config"
	"github.com/latteboxd/latteboxd/internal/gemini"
	"github.com/latteboxd/latteboxd/internal/identity"
	"github.com/latteboxd/latteboxd/internal/logging"
	"github.com/latteboxd/latteboxd/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("logging: failed to build: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	recordStore, err := store.New(cfg.Store.Dir)
	if err != nil {
		sugar.Fatalf("store: %v", err)
	}

	identitySvc, err := identity.NewService(recordStore, identity.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
		Latency:   cfg.Auth.Latency,
	}, sugar)
	if err != nil {
		sugar.Fatalf("identity: %v", err)
	}

	state := app.NewState()
	if err := state.Restore(identitySvc, sugar); err != nil {
		// Persisted state we cannot read has no repair path.
		sugar.Fatalf("session restore: %v", err)
	}

	generator := gemini.NewClient(cfg.Gemini, sugar)
	cafes := cafe.NewService(generator, sugar)

	router := setupRouter(identitySvc, cafes, state, sugar)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("server crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("graceful shutdown failed: %v", err)
	}

	sugar.Info("server stopped cleanly")
}

func setupRouter(identitySvc *identity.Service, cafes *cafe.Service, state *app.State, sugar *zap.SugaredLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.NewHandler(identitySvc, cafes, state, sugar).RegisterRoutes(router)

	return router
}
