// Package cli implements the f1data command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/PepeHerrera14/final-adquisicion/internal/config"
	"github.com/PepeHerrera14/final-adquisicion/pkg/logging"
	"github.com/PepeHerrera14/final-adquisicion/pkg/metrics"
)

const envPrefix = "F1"

// Version is set at build time.
var Version = "dev"

// Execute runs the command tree until it finishes or the process is
// interrupted. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	cfg := config.Default()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:          "f1data",
		Short:        "Formula 1 pit-stop acquisition and reconciliation",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cmd, viper.New(), cfgFile); err != nil {
				return err
			}
			logging.Setup(cfg.Logging())
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.MetricsAddr != "" {
				go func() {
					if err := metrics.Serve(cmd.Context(), cfg.MetricsAddr); err != nil {
						log.Error().Err(err).Msg("Metrics server stopped")
					}
				}()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.f1data.yml)")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "root of the per-season data directories")
	pf.StringVar(&cfg.Seasons, "seasons", cfg.Seasons, "seasons to process, e.g. 2019-2024 or 2019,2021")
	pf.StringVar(&cfg.Output, "output", cfg.Output, "merged CSV (default is {data-dir}/final_merged.csv)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable console logs")
	pf.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	pf.DurationVar(&cfg.PageDelay, "page-delay", cfg.PageDelay, "pause between consecutive page requests")

	rootCmd.AddCommand(newCrawlCmd(&cfg))
	rootCmd.AddCommand(newPitStopsCmd(&cfg))
	rootCmd.AddCommand(newMergeCmd(&cfg))
	rootCmd.AddCommand(newReportCmd(&cfg))
	rootCmd.AddCommand(newAllCmd(&cfg))

	return rootCmd
}

// initConfig reads the config file and F1_* environment variables into the
// flags of the executing command, inherited flags included.
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".f1data")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else if cfgFile != "" {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}

	bindFlags(cmd, v)
	return nil
}

// bindFlags applies config file and environment values to every flag that
// was not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// --data-dir is read from F1_DATA_DIR
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}

		val := fmt.Sprintf("%v", v.Get(f.Name))
		if f.Value.Type() == "stringSlice" {
			val = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if err := cmd.Flags().Set(f.Name, val); err != nil {
			fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
		}
	})
}

// seasons returns the validated season list.
func seasons(cfg *config.Config) []int {
	s, _ := config.ParseSeasons(cfg.Seasons)
	return s
}
