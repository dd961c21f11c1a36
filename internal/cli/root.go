// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authflow.
//
// go-authflow is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the authflow command-line interface.
package cli

import (
	"fmt"

	"github.com/jeremyhahn/go-authflow/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	// Global configuration
	globalConfig *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "authflow",
	Short: "go-authflow CLI - Passwordless authentication flow engine",
	Long: `go-authflow CLI drives the passwordless authentication flow engine:
a bidirectional command bridge between an embedded web surface and
native capabilities (WebAuthn ceremonies, session providers, login
storage), with a per-flow event bus and provider wrapper system.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.authflow.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
}

// initConfig locates and loads the configuration. Resolution order: the
// --config flag, the AUTHFLOW_CONFIG environment variable, an
// .authflow.yaml in the working directory or $HOME, then built-in demo
// defaults.
func initConfig(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.SetEnvPrefix("AUTHFLOW")
	v.AutomaticEnv()

	path := cfgFile
	if path == "" {
		path = v.GetString("CONFIG")
	}
	if path == "" {
		v.SetConfigName(".authflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err == nil {
			path = v.ConfigFileUsed()
		}
	}

	if path == "" {
		globalConfig = demoDefaults()
		return nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	globalConfig = cfg
	return nil
}

// demoDefaults is the configuration used when no config file is present,
// good enough to run the scripted demo out of the box.
func demoDefaults() *config.Config {
	cfg := config.DefaultConfig()
	cfg.App.ID = "flowdemo"
	cfg.Origins = []string{"https://auth.example.com"}
	cfg.Ceremony.RelyingPartyID = "example.com"
	cfg.Ceremony.RelyingPartyName = "Example"
	cfg.Session.JWTSecret = "flowdemo-not-a-real-secret"
	cfg.Session.Issuer = "flowdemo"
	cfg.Session.Audience = "flowdemo"
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}
	return cfg
}

// getConfig returns the global configuration
func getConfig() *config.Config {
	return globalConfig
}
