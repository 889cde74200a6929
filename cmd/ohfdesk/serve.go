package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.App.Env == "release" {
			gin.SetMode(gin.ReleaseMode)
		}

		engine, err := do.Invoke[*gin.Engine](a.inj)
		if err != nil {
			return fmt.Errorf("build router: %w", err)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
			Handler:           engine,
			ReadTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// no WriteTimeout: chat and realtime responses are long-lived streams
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("api listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("http shutdown", zap.Error(err))
		}
		a.log.Info("shutdown complete")
		return nil
	},
}
