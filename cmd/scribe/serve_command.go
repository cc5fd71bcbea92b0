package main

import (
	"github.com/spf13/cobra"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web upload daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			for _, warning := range cfg.Warnings() {
				logger.Warn(warning, logging.String(logging.FieldComponent, "config"))
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := server.New(cfg, store, logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx.signalContext())
		},
	}
}
