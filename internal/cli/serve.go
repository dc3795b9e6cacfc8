package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/udhar-khata/khata/internal/api"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "Port to listen on (default from config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the khata over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withSession(cmd, func(s *session) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			s.cfg.API.Port = port
		}

		srv := &http.Server{
			Addr:              s.cfg.API.Addr(),
			Handler:           newAPIServer(s).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("[api] listening on http://%s", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
		}

		log.Printf("[api] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func newAPIServer(s *session) *api.Server {
	srv := api.NewServer(s.ledger, s.reminder)
	if s.cfg.Metrics.Enabled {
		srv.EnableMetrics(s.registry)
	}
	return srv
}
