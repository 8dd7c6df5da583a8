package cmd

import (
	"fmt"
	"os"

	"github.com/AlfredBerg/optionstrip-monitor/internal/config"
	"github.com/AlfredBerg/optionstrip-monitor/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.optionstrip-monitor.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file, rotated.")
	cobra.CheckErr(viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file")))

	addWatchFlags(rootCmd)
	addWatchFlags(watchCmd)
	rootCmd.AddCommand(watchCmd, selftestCmd, replayCmd)
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".optionstrip-monitor" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".optionstrip-monitor")
	}

	config.BindEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

var rootCmd = &cobra.Command{
	Use:          "optionstrip-monitor",
	Short:        "Watches a live options table in a browser and publishes new rows over MQTT",
	SilenceUsage: true,

	PreRunE: bindWatchFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(cmd.Context())
	},
}

// setup loads and validates the config and builds the logger every command
// shares.
func setup(logOpts ...logging.Option) (config.Config, *zap.Logger, error) {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return c, nil, err
	}
	if err := c.Validate(); err != nil {
		return c, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.Setup(c.Log.Level, c.Log.File, logOpts...)
	if err != nil {
		return c, nil, err
	}
	return c, logger, nil
}
