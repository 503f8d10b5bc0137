package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"hemocore/internal/adapters/reports"
	"hemocore/internal/core"
	"hemocore/internal/httpapi"
	"hemocore/internal/infra/blob"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("hemocored exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := httpapi.ConfigFromEnv()
	if err != nil {
		return err
	}

	store, err := core.OpenPersistentStore(core.DefaultRulesEngine())
	if err != nil {
		return err
	}

	recorder, err := core.NewPrometheusMetricsRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	svc := core.NewService(store, core.WithMetricsRecorder(recorder))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobStore, err := blob.OpenFromEnv(ctx)
	if err != nil {
		return err
	}
	exporter := reports.NewExporter(svc, blobStore, log)
	exporter.Start()

	go expireSweep(ctx, svc, log)

	server := httpapi.NewServer(cfg, svc, exporter, log)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := exporter.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("exporter shutdown")
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("store close")
		}
	}
	return nil
}

// expireSweep marks overdue lots expired once at startup and then hourly.
func expireSweep(ctx context.Context, svc *core.Service, log *logrus.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		count, err := svc.ExpireLots(ctx)
		switch {
		case err != nil:
			log.WithError(err).Warn("expire sweep")
		case count > 0:
			log.WithField("expired", count).Info("expire sweep")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
