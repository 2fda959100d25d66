// Package servecmder provides the serve command running the HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/api"
	"github.com/perpetual-s/gemi/pkg/app"
	"github.com/perpetual-s/gemi/pkg/config"
	"github.com/perpetual-s/gemi/pkg/logger"
)

type serveCommander struct {
	configDir string
	listen    string
	debug     bool

	logger *zap.Logger
}

const serveLongDesc string = `Run the gemi HTTP API server.

The server exposes chat streaming, journal entries, memories, and
semantic search for the desktop shell and companion tools.

Examples:
  gemi serve
  gemi serve --listen :9000`

const serveShortDesc string = "Run the gemi API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on (overrides api.listen)")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("listen") {
		cfg.API.Listen = c.listen
	}

	ctx := context.Background()

	gemi, err := app.New(ctx, c.configDir, cfg, c.logger)
	if err != nil {
		return err
	}
	defer gemi.Close()

	server := api.NewServer(
		api.Config{ListenAddr: cfg.API.Listen},
		gemi.Session,
		gemi.Memories,
		gemi.Journal,
		gemi.Retriever,
		gemi.Indexer,
		gemi.Generator,
		c.logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		c.logger.Info("shutting down",
			zap.String("signal", sig.String()),
		)
		return server.Shutdown()
	}
}
