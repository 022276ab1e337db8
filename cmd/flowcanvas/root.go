package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/flowcanvas/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "flowcanvas",
	Short: "Flowcanvas is a headless editor for integration flows",
	Long: `Flowcanvas keeps one integration (an ordered list of steps with nested
branches), turns it into a laid-out canvas graph and exposes editing over
HTTP and MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Settings file (default ~/.flowcanvas/settings.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// setup loads the configuration, applies persistent flag overrides and
// builds the logger. Logs go to stderr so stdout stays free for output.
func setup(cmd *cobra.Command) (Config, *slog.Logger, *slog.LevelVar, error) {
	cfg, err := reloadConfig(cmd)
	if err != nil {
		return cfg, nil, nil, err
	}

	level := new(slog.LevelVar)
	lv, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, nil, err
	}
	level.Set(lv)
	return cfg, logging.New(os.Stderr, level, cfg.LogFormat), level, nil
}

// reloadConfig reads the configuration layers again and applies flags on top.
func reloadConfig(cmd *cobra.Command) (Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg)
	return cfg, cfg.validate()
}

func applyFlags(cmd *cobra.Command, cfg *Config) {
	strs := map[string]*string{
		"log-level":     &cfg.LogLevel,
		"log-format":    &cfg.LogFormat,
		"listen":        &cfg.ListenAddr,
		"backend":       &cfg.BackendURL,
		"store":         &cfg.Store,
		"db":            &cfg.DBPath,
		"layout-engine": &cfg.LayoutEngine,
		"direction":     &cfg.Direction,
		"views":         &cfg.ViewsFile,
	}
	for name, dst := range strs {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		*dst = f.Value.String()
	}
}
