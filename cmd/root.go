// Package cmd holds the command line entry points: the API server and the
// maintenance commands that share its configuration.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "art-contest",
		Short: "Pairwise art contest voting backend",
		Long: `Backend for a pairwise art contest: voters compare two submissions at a time
under a daily vote and refresh quota that resets at 23:59 contest time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(configPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML), defaults to ./config.yaml")

	root.AddCommand(newServeCommand(), newResetCommand(), newLeaderboardCommand(), newHashPasswordCommand(), newVersionCommand())
	return root
}

func loadConfig(configPath string) error {
	logging.BoostrapLogger()

	// Optional .env; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Log.Warnf("could not read .env: %v", err)
	}

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			logging.Log.Errorf("Failed to read config file: %v", err)
			return fmt.Errorf("read config: %w", err)
		}
		logging.Log.Warn("no config.yaml found, using environment only")
	}

	if viper.IsSet("log.level") {
		logging.SetLevel(viper.GetString("log.level"))
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "art-contest version %s (build: %s)\n", Version, BuildTime)
		},
	}
}
