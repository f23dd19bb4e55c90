// Package app wires configuration into the running pieces shared by the
// server and the terminal client.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/fleet-bracket/internal/catalog"
	"github.com/DoyleJ11/fleet-bracket/internal/config"
	"github.com/DoyleJ11/fleet-bracket/internal/engine"
	"github.com/DoyleJ11/fleet-bracket/internal/httpapi"
	"github.com/DoyleJ11/fleet-bracket/internal/hub"
	"github.com/DoyleJ11/fleet-bracket/internal/lobby"
	"github.com/DoyleJ11/fleet-bracket/internal/webcache"
)

const shutdownGrace = 5 * time.Second

func NewLoader(ctx context.Context, cfg *config.Config, logger *zap.Logger) *catalog.Loader {
	client := webcache.NewClient(ctx, webcache.Options{
		TTL:    cfg.CacheTTL,
		Bucket: cfg.CacheBucket,
		Logger: logger.Named("webcache"),
	})
	l := catalog.NewLoader(cfg.Sources, client, logger.Named("catalog"))
	l.Timeout = cfg.SourceTimeout
	l.MinItems = cfg.MinCatalogSize
	return l
}

func LobbyOptions(cfg *config.Config, loader lobby.Loader, logger *zap.Logger) lobby.Options {
	return lobby.Options{
		Loader:       loader,
		Order:        engine.NewShuffler(nil),
		SelectSettle: cfg.SelectSettle,
		PickSettle:   cfg.PickSettle,
		Logger:       logger.Named("lobby"),
	}
}

// Serve runs the HTTP server until ctx ends, then drains it.
func Serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loader := NewLoader(ctx, cfg, logger)
	// the hub outlives ctx so in-flight requests drain; stopHub ends it
	h := hub.NewHub(context.WithoutCancel(ctx), LobbyOptions(cfg, loader, logger))

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.SetupRoutes(h, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		stopHub(h)
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	stopHub(h)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func stopHub(h *hub.Hub) {
	select {
	case h.Inbox() <- hub.ShutdownHub{}:
	case <-h.Done():
	}
	<-h.Done()
}
