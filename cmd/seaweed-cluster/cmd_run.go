package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/seaweed-cluster/internal/adapter/http"
)

var runFlags struct {
	serve bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Advance every configured unit to its final state",
	Long: "run stores the raw tables of every (scenario, scope) unit, clusters the\n" +
		"scopes that have a cluster count and publishes their summaries to the\n" +
		"configured sinks. Stages already stored are skipped.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runFlags.serve, "serve", false, "keep serving health and metrics after the run until interrupted")
}

func runRun(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	var srv *httpadapter.Server
	if a.cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(a.cfg.HTTPAddr, a.pipeline, a.pipeline, a.logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := a.pipeline.Run(ctx, a.cfg.Units())

	if srv != nil {
		if runFlags.serve {
			<-ctx.Done()
		}
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
	}
	a.logger.Info("shutdown complete")
	return runErr
}
