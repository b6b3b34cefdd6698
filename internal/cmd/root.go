// Package cmd implements the casenote command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/casenote/internal/config"
)

// Command groups shown in help output.
const (
	groupSession = "session"
	groupSetup   = "setup"
)

var (
	configFlag string
	colorFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "casenote",
	Short: "patient case notes with suggested enhancements",
	Long: `casenote - patient case notes with suggested enhancements
  - type a case description in the editor
  - press Ctrl+E to get a suggested rewrite, page through alternatives,
    then use or discard it`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyColorMode(colorFlag)
	},
	RunE: runCompose,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupSession, Title: "Session Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default is $XDG_CONFIG_HOME/casenote/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", colorAuto, "colorize output: auto, always or never")

	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration named by --config, or the default file.
func loadConfig() (*config.Config, *config.Paths, string, error) {
	paths := config.DefaultPaths()
	path := configFlag
	var cfg *config.Config
	var err error
	if path == "" {
		path = paths.ConfigFile()
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFromFile(path)
	}
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, paths, path, nil
}
