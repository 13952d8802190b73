package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"BandView/internal/di"
	"BandView/pkg/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "bandview",
		Short: "serve OHLCV candles and Bollinger Bands overlays",

		// SilenceUsage is an option to silence usage when an error occurs.
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				return err
			}
			log.Printf("env=%s series=%s kafka=%t cache=%t", cfg.Environment, cfg.Series.Backend, cfg.Kafka.Enabled, cfg.Cache.Enabled)

			// Wire DI: Initialize all dependencies
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return err
			}

			// Run application (blocks until signal)
			return app.Run()
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	if err := rootCmd.Execute(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
