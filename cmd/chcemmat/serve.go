package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/chcemmat/internal/api"
	"github.com/Kerhoff/chcemmat/internal/bucket"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	l := a.logger
	l.Infof("Starting chcemmat %s...", version)

	// Run migrations
	if err := a.db.Migrate(); err != nil {
		return err
	}

	if err := a.buildService(ctx); err != nil {
		return err
	}

	opts := api.Options{
		RequestTimeout: a.cfg.RequestTimeout,
		CORSOrigins:    a.cfg.CORSOrigins,
		Metrics:        a.metrics,
	}
	if a.cfg.BucketEnabled() {
		images, err := bucket.New(ctx, a.cfg.Bucket())
		if err != nil {
			return err
		}
		opts.Images = images
	} else {
		l.Warn("S3_ENDPOINT is not set, image uploads are disabled")
	}

	apiServer := api.NewServer(a.svc, opts, l)
	httpServer := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", a.metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + a.cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Infof("HTTP server listening on :%s", a.cfg.Port)
		return listen(httpServer)
	})
	g.Go(func() error {
		l.Infof("Metrics server listening on :%s", a.cfg.PrometheusPort)
		return listen(metricsServer)
	})
	g.Go(func() error {
		a.svc.StartReconciler(gctx, a.cfg.ReconcileInterval, a.cfg.ReconcileGrace)
		return nil
	})
	if a.bot != nil {
		g.Go(func() error {
			return a.bot.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		l.Info("Shutting down HTTP servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var result *multierror.Error
		result = multierror.Append(result, httpServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
		return result.ErrorOrNil()
	})

	l.Info("chcemmat started successfully")

	err = g.Wait()
	l.Info("chcemmat stopped")
	return err
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
