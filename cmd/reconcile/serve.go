package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/epi-triangulate/internal/config"
	"github.com/epi-triangulate/internal/debug"
	"github.com/epi-triangulate/internal/web"
)

func createServeCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := web.DefaultConfig()
			if configPath != "" {
				loaded, err := web.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if logLevel == "" && config.GetEnv(debug.LevelEnv, "") == "" {
				logger.SetLevel(debug.ParseLevel(cfg.LogLevel))
			}

			server, err := web.NewServer(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			return server.Start()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.GetEnv("RECONCILE_WEB_CONFIG", ""), "JSON server configuration")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen host")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port")
	return cmd
}
