/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "profici",
		Short: "Profici turns web-intelligence data into a market analysis report.",
		Long: `Profici compiles a set of section prompts from a site's external
web-intelligence report and firmographic record, runs them against a
language model in two batches, recovers structured JSON from each answer
and assembles a single report with derived traffic metrics.

Run it as an HTTP API with 'profici serve' or offline with
'profici analyze --input payload.json'.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.profici.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewCacheCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration and rebuilds the logger from it. Logs go
// to stderr so command output on stdout stays machine readable.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger.Configure(loggerOptions(cfg))

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}

// loggerOptions maps logging config to logger options. app.debug forces the
// debug level.
func loggerOptions(cfg *config.Config) logger.Options {
	level := cfg.Logging.Level
	if cfg.App.Debug {
		level = "debug"
	}
	return logger.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	}
}
