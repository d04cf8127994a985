package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/live-scoring-backend/internal/catalog"
	"github.com/DoyleJ11/live-scoring-backend/internal/config"
	"github.com/DoyleJ11/live-scoring-backend/internal/httpapi"
	"github.com/DoyleJ11/live-scoring-backend/internal/hub"
	"github.com/DoyleJ11/live-scoring-backend/internal/logging"
	"github.com/DoyleJ11/live-scoring-backend/internal/ws"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer log.Sync()

	h := hub.NewHub(cfg.ChannelCapacity)
	games := catalog.Default()
	s := ws.NewServer(h, games, cfg, log)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(s, games, cfg.PublicDir, log),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Int("builtin_games", games.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.Stringer("signal", sig))
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	}

	// Sessions first: hijacked sockets are invisible to Shutdown.
	n := h.CloseAll()
	log.Info("sessions closed", zap.Int("count", n))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("goodbye")
	return nil
}
