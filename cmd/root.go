package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/alejoacosta74/coinbase-api/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	log     = logrus.WithField("component", "cli")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coinbase-api",
	Short: "Coinbase Advanced Trade streaming and REST client",
	Long: `Stream market data from the Coinbase Advanced Trade websocket and
query accounts, products and orders through its REST API.

Settings come from flags, COINBASE_* environment variables or a config file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.coinbase-api.yaml)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.Bool("log-json", false, "log in JSON format")
	flags.String("api-key-name", "", "API key name")
	flags.String("api-secret", "", "API secret (EC private key PEM or HMAC secret)")
	flags.String("bearer", "", "OAuth access token")
	flags.Bool("legacy", false, "sign with the deprecated HMAC key scheme")
	flags.String("ws-url", "", "websocket endpoint")
	flags.String("rest-url", "", "REST base URL")

	bindFlags(flags.Lookup, map[string]string{
		"log.level":     "log-level",
		"log.json":      "log-json",
		"api.key_name":  "api-key-name",
		"api.secret":    "api-secret",
		"api.bearer":    "bearer",
		"api.legacy":    "legacy",
		"ws.url":        "ws-url",
		"rest.base_url": "rest-url",
	})
}

// initConfig reads in config file if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".coinbase-api")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			logrus.WithError(err).Warn("Failed to read config file")
		}
		return
	}
	logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
}

// loadConfig decodes the merged configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	if cfg.Log.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return cfg, nil
}
