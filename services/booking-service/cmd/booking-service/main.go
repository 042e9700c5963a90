package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/appointbook/libs/config"
	"github.com/md-rashed-zaman/appointbook/libs/runtime"
)

func newRootCommand() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "booking-service",
		Short:         "Appointment booking and availability engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file; environment variables win")

	root.AddCommand(newServeCommand(), newMigrateCommand(), newAvailabilityCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return runtime.NewLoggerWithOptions(config.String("SERVICE_NAME", "booking-service"), runtime.LogOptions{
		Level:      config.String("LOG_LEVEL", "info"),
		File:       config.String("LOG_FILE", ""),
		MaxSizeMB:  config.Int("LOG_FILE_MAX_SIZE_MB", 100),
		MaxBackups: config.Int("LOG_FILE_MAX_BACKUPS", 5),
	})
}
