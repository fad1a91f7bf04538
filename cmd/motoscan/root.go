package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/motoscan/internal/config"
	"github.com/teslashibe/motoscan/internal/log"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "motoscan",
	Short:        "ArUco tag detector for motorcycle yards",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		log.Init(loaded.Log.Level)
		log.Debug("config loaded", "path", configPath, "backend", loaded.Backend.BaseURL, "camera_id", loaded.Capture.CameraID)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
