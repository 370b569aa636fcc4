package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patchy/internal/server"
)

// newServeCmd creates the serve command: expose a store over HTTP.
func newServeCmd() *cobra.Command {
	var (
		configPath string
		flagStore  storeConfig
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a materialized store over HTTP",
		Long: `Serve exposes a read-only JSON API over the configured store:

  GET /v1/descriptor
  GET /v1/splits/{split}/info
  GET /v1/splits/{split}/records/{index}
  GET /v1/splits/{split}/tensors/{index}

The server shuts down gracefully on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.Store.merge(flagStore)

			st, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(st, logger),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML config file (default patchy.toml if present)")
	flags.StringVar(&addr, "addr", ":8080", "listen address")
	storeFlags(cmd, &flagStore)

	return cmd
}
