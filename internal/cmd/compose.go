package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/casenote/internal/config"
	"github.com/runger/casenote/internal/enhance"
	clog "github.com/runger/casenote/internal/log"
	"github.com/runger/casenote/internal/provider"
	"github.com/runger/casenote/internal/surface"
	"github.com/runger/casenote/internal/tui"
)

// minTermWidth is the narrowest terminal the editor starts in.
const minTermWidth = 40

var composeText string

var composeCmd = &cobra.Command{
	Use:     "compose",
	Short:   "Write a case description in the editor",
	GroupID: groupSession,
	Long: `Open the case description editor.

Type the description, then press Ctrl+E for a suggested enhancement.
While a suggestion is shown: Enter uses it, Esc discards it, Ctrl+R asks
for another one and the arrow keys page through earlier suggestions.
Ctrl+D finishes and prints the description; Ctrl+C quits without output.

Logs are written to the log file (see 'casenote logs').`,
	Args: cobra.NoArgs,
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVar(&composeText, "text", "", "initial case description")
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, paths, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	if err := checkTERM(); err != nil {
		return err
	}
	tty, err := openTTY()
	if err != nil {
		return fmt.Errorf("no TTY available: %w", err)
	}
	defer tty.Close()
	if w := termWidth(tty); w > 0 && w < minTermWidth {
		return fmt.Errorf("terminal too narrow (%d columns, need at least %d)", w, minTermWidth)
	}

	logger, closeLog, err := openFileLogger(cfg, paths)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := openBackend(cmd.Context(), cfg, paths, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	clog.LogStartup(logger, clog.StartupInfo{
		Version:      Version,
		Command:      "compose",
		ConfigPath:   cfgPath,
		Provider:     cfg.Enhance.Provider,
		CorpusSource: b.source,
		MaxRetries:   cfg.Enhance.MaxRetries,
		PID:          os.Getpid(),
	})

	ctrl := enhance.New(
		provider.NewAdapter(b.provider, logger),
		enhance.WithMaxRetries(cfg.Enhance.MaxRetries),
		enhance.WithLogger(logger),
	)
	model := tui.NewModel(surface.New(ctrl, composeText), tui.Options{
		Title:       cfg.UI.Title,
		Label:       cfg.UI.Label,
		Placeholder: cfg.UI.Placeholder,
		Width:       cfg.UI.Width,
		Height:      cfg.UI.Height,
		Logger:      logger,
	})

	// Styles follow the tty, not stdout, which may be a pipe.
	if colorMode == colorAuto {
		lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())
	}

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("editor error: %w", err)
	}

	m, ok := finalModel.(tui.Model)
	if !ok {
		return errors.New("unexpected model type")
	}
	if m.Finished() {
		fmt.Fprintln(cmd.OutOrStdout(), m.Text())
	}
	return nil
}

// checkTERM verifies that the TERM environment variable is not "dumb".
func checkTERM() error {
	if os.Getenv("TERM") == "dumb" {
		return errors.New("TERM=dumb is not supported")
	}
	return nil
}

// openFileLogger opens the configured log file and builds a JSON logger on
// it. The returned func closes the file.
func openFileLogger(cfg *config.Config, paths *config.Paths) (*slog.Logger, func(), error) {
	level, err := clog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	f, err := clog.OpenFile(cfg.LogFile(paths))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := clog.New(&clog.Config{Output: f, Level: level})
	return logger, func() { f.Close() }, nil
}
