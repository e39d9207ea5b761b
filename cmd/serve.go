package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/obligation-finder/internal/model"
	"github.com/sells-group/obligation-finder/internal/obligations"
	"github.com/sells-group/obligation-finder/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the current obligations dataset over HTTP and websockets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctrl, err := obligations.NewController(newSource(cfg), yearRange(cfg), model.FiscalYear(cfg.Years.Default))
		if err != nil {
			return err
		}
		defer ctrl.Close()

		srv, err := server.New(ctrl, server.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RefreshCron:    cfg.Server.RefreshCron,
		})
		if err != nil {
			return err
		}

		// Initial load of the default year.
		if err := ctrl.SelectYear(model.FiscalYear(cfg.Years.Default)); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		return runServer(ctx, srv, fmt.Sprintf(":%d", port))
	},
}

// runServer serves srv on addr until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *server.Server, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
