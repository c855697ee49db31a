package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/cli/config"
	"github.com/conduit-lang/sparqld/internal/cli/ui"
	"github.com/conduit-lang/sparqld/internal/logging"
	"github.com/conduit-lang/sparqld/internal/web/server"
)

var serveAddress string

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SPARQL server",
		Long: `Load the endpoint configuration graph and serve the SPARQL 1.1 Protocol.

The serve command will:
  1. Read sparqld.yaml and SPARQLD_* environment variables
  2. Open the stores and mount the endpoints declared in the configuration graph
  3. Serve until interrupted, then drain requests and close the stores

Examples:
  sparqld serve
  sparqld serve --address :3030
  sparqld serve --config /etc/sparqld/sparqld.yaml`,
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&serveAddress, "address", "a", "", "Listen address (overrides server.address)")

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, noColor))
		return nil, err
	}
	if endpointsPath != "" {
		cfg.Endpoints.Configuration = endpointsPath
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return serve(ctx, app)
}

// serve runs app until ctx is cancelled or a shutdown signal arrives.
func serve(ctx context.Context, app *App) error {
	cfg := app.Config

	srvCfg := server.DefaultConfig(app.Router)
	srvCfg.Address = cfg.Server.Address
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = cfg.Server.IdleTimeout
	srvCfg.ReadHeaderTimeout = cfg.Server.ReadHeaderTimeout

	srv, err := server.New(srvCfg)
	if err != nil {
		app.Close(ctx)
		return err
	}

	gs := server.NewGracefulShutdown(srv, server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  app.Logger,
	})
	gs.RegisterHook(app.Close)

	if err := gs.Run(ctx); err != nil {
		app.Logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
