package cmd

import (
	"context"

	"github.com/mono83/slf"
	"github.com/spf13/cobra"

	"ely.by/skinbox/internal/http"
	"ely.by/skinbox/internal/pinger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts HTTP server for uploading and serving skins and capes",
	RunE: func(cmd *cobra.Command, args []string) error {
		container := shouldGetContainer()

		err := container.Invoke(startPinger)
		if err != nil {
			return err
		}

		return container.Invoke(http.StartServer)
	},
}

func startPinger(ctx context.Context, p *pinger.Pinger, logger slf.Logger) {
	if !p.Enabled() {
		logger.Debug("No urls to ping, the pinger is disabled")
		return
	}

	logger.Info("Starting the pinger")
	go p.Run(ctx)
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
