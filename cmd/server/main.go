package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/slopesquad/presence-api/internal/config"
	"github.com/slopesquad/presence-api/internal/database"
	"github.com/slopesquad/presence-api/internal/handler"
	"github.com/slopesquad/presence-api/internal/middleware"
	"github.com/slopesquad/presence-api/internal/places"
	"github.com/slopesquad/presence-api/internal/queue"
	"github.com/slopesquad/presence-api/internal/router"
	"github.com/slopesquad/presence-api/internal/store/mysql"
	"github.com/slopesquad/presence-api/pkg/logging"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	logging.Setup()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	st, err := mysql.New(db, cfg.CodeAttempts)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable, cache and rate limiting disabled")
	}

	h := handler.NewGroupHandler(
		st,
		places.New(cfg.PlacesBaseURL),
		cfg.CheckinTTL,
		cfg.HistoryWindow(),
		cfg.MaxTimestampSkew,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger())
	router.RegisterRoutes(e)
	router.RegisterGroups(e, h, rdb)

	// Audit consumer; reconnects on its own and never returns in practice.
	go func() {
		if err := queue.StartCheckinConsumer(); err != nil {
			slog.Error("presence consumer stopped", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
