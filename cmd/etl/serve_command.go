package main

import (
	"context"
	"errors"
	"net/http"

	httpadapter "github.com/couchcryptid/species-trend-etl/internal/adapter/http"
	"github.com/spf13/cobra"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the manifest once, then keep serving health, metrics, and the run report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()
			srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.pipeline, a.logger)

			serveErr := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			pipelineDone := make(chan struct{})
			go func() {
				defer close(pipelineDone)
				if _, err := a.pipeline.Run(ctx, a.jobs); err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Error("pipeline error", "error", err)
				}
			}()

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-serveErr:
				if runErr != nil {
					a.logger.Error("http server error", "error", runErr)
				}
			}
			a.logger.Info("shutting down")
			stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("http server shutdown error", "error", err)
			}
			// Sinks close on return; the run must be out of LoadBatch first.
			if !waitForPipeline(shutdownCtx, pipelineDone) {
				a.logger.Warn("pipeline still running at shutdown deadline")
			}
			if runErr != nil {
				return runErr
			}

			a.logger.Info("shutdown complete")
			return nil
		},
	}
}

// waitForPipeline blocks until done is closed or ctx expires. It reports
// whether the pipeline finished.
func waitForPipeline(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
