package main

import (
	"os/signal"
	"syscall"

	"github.com/dgallion1/formgest/internal/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return api.Run(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().String("port", "8090", "listen port")
	serveCmd.Flags().Int("worker-count", 4, "generation workers")
	serveCmd.Flags().String("api-key", "", "bearer token required on /api routes")
}
