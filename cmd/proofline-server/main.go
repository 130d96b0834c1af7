// Command proofline-server exposes the grammar checker as a JSON REST API.
//
// Endpoints:
//
//	POST /v2/check      form: text, language, enabledRules, disabledRules
//	GET  /v2/languages
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/proofline/pkg/proofline"
	"github.com/cognicore/proofline/pkg/proofline/config"
	"github.com/cognicore/proofline/pkg/proofline/logging"
)

func newRootCmd() *cobra.Command {
	var (
		verbosity  int
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:           "proofline-server",
		Short:         "Serve the grammar checker over HTTP",
		Version:       proofline.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = config.SearchSettingsFile()
			}
			s, err := config.LoadSettings(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				s.Server.Addr = addr
			}
			logging.SetupLogger(max(verbosity, s.Verbosity))
			return serve(cmd.Context(), s)
		},
	}
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	cmd.Flags().StringVar(&configPath, "config", "", "Settings file (YAML or TOML)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overriding server.addr")
	return cmd
}

// serve runs the API until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, s *config.Settings) error {
	srv := newServer(s)
	defer srv.close()

	// Load the configured language before accepting requests.
	if _, err := srv.resourcesFor(s.Language).Components(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              s.Server.Addr,
		Handler:           srv.routes(),
		ReadTimeout:       s.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Server.Addr).Str("language", s.Language).Msg("proofline server listening")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("proofline server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
