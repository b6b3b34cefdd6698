package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	clog "github.com/runger/casenote/internal/log"
	"github.com/runger/casenote/internal/provider"
	"github.com/runger/casenote/internal/storage"
)

var corpusCmd = &cobra.Command{
	Use:     "corpus",
	Short:   "Manage the SQLite suggestion corpus",
	GroupID: groupSetup,
	Long: `Manage the SQLite corpus used when enhance.provider is sqlite.

The corpus maps case descriptions to suggested enhancements. Lookups ignore
case, punctuation and surrounding whitespace.

Examples:
  casenote corpus import notes.yaml  # Replace the corpus with a YAML file
  casenote corpus list               # Show known inputs`,
}

var corpusImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the corpus with a YAML dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusImport,
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus inputs",
	Args:  cobra.NoArgs,
	RunE:  runCorpusList,
}

func init() {
	corpusCmd.AddCommand(corpusImportCmd)
	corpusCmd.AddCommand(corpusListCmd)
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	cfg, paths, _, err := loadConfig()
	if err != nil {
		return err
	}

	corpus, err := provider.LoadCorpusFile(args[0])
	if err != nil {
		return err
	}

	logger, closeLog, err := openFileLogger(cfg, paths)
	if err != nil {
		return err
	}
	defer closeLog()

	dbPath := cfg.DatabasePath(paths)
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		clog.LogSQLiteError(logger, "open", err)
		return fmt.Errorf("failed to open corpus database: %w", err)
	}
	defer store.Close()

	n, err := store.ImportCorpus(cmd.Context(), corpus)
	if err != nil {
		clog.LogSQLiteError(logger, "import", err)
		return err
	}
	clog.LogCorpusImported(logger, args[0], dbPath, n)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%sImported%s %d input(s) from %s\n", colorGreen, colorReset, n, args[0])
	fmt.Fprintf(out, "Database: %s\n", dbPath)
	return nil
}

func runCorpusList(cmd *cobra.Command, args []string) error {
	cfg, paths, _, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := cfg.DatabasePath(paths)
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open corpus database: %w", err)
	}
	defer store.Close()

	inputs, err := store.ListInputs(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(inputs) == 0 {
		fmt.Fprintf(out, "No corpus inputs in %s\n", dbPath)
		fmt.Fprintln(out, "Run 'casenote corpus import <file>' to add some.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%sOUTPUTS\tINPUT%s\n", colorBold, colorReset)
	for _, in := range inputs {
		fmt.Fprintf(w, "%d\t%s\n", in.NumOutputs, in.Input)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d input(s) in %s\n", len(inputs), dbPath)
	return nil
}
