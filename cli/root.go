package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pinpoint",
	Short: "Locate and highlight fact evidence in source documents",
	Long: `pinpoint is the evidence panel for a research workspace: given a fact
and its captured quote, it finds the quote in the source document,
scrolls to it, and reports how confident the match is.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/pinpoint/config.yaml)")
	pf.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	pf.String("log-file", "", "write logs to this file instead of discarding them")
	pf.String("backend", "", "workspace backend base URL")
	pf.String("token", "", "workspace backend API token")
	pf.String("project", "default", "project ID")
	pf.String("style", "dark", "reader style (dark, light, notty, dracula, ascii)")
	pf.Duration("cache-ttl", 0, "content cache staleness window (0 uses the default)")
	pf.Int("prefetch", 2, "max concurrent neighbor prefetches")

	for _, name := range []string{"log-level", "log-file", "backend", "token", "project", "style", "cache-ttl", "prefetch"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pinpoint"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PINPOINT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger = newLogger()
	return nil
}

// newLogger builds the process logger. A TUI owns the terminal, so logs
// are discarded unless a log file is configured.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.WarnLevel
	}

	var out io.Writer = io.Discard
	if path := viper.GetString("log-file"); path != "" {
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr == nil {
			out = zerolog.ConsoleWriter{Out: f, NoColor: true}
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
