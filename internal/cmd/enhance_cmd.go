package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/casenote/internal/enhance"
	clog "github.com/runger/casenote/internal/log"
	"github.com/runger/casenote/internal/provider"
)

// maxFailedFetches ends a headless session after this many failures in a row.
const maxFailedFetches = 3

// enhanceOptions holds the flags of the enhance command.
type enhanceOptions struct {
	retries   int
	seed      uint64
	noDelay   bool
	errorRate float64
	accept    bool
}

var enhanceCmd = newEnhanceCmd()

func newEnhanceCmd() *cobra.Command {
	opts := &enhanceOptions{}
	cmd := &cobra.Command{
		Use:     "enhance <text...>",
		Short:   "Run a suggestion session without the editor",
		GroupID: groupSession,
		Long: `Run a suggestion session on the given text and print every suggestion.

The session keeps asking for another suggestion until the retry budget is
spent, the provider has nothing new or fetches keep failing. With --accept
the last suggestion replaces the text; otherwise the session is discarded
and the text is kept.

Examples:
  casenote enhance Patient presents with cough
  casenote enhance --seed 7 --no-delay "Knee swelling after fall"
  casenote enhance --retries 1 --accept "Chest pain when walking"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnhance(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.retries, "retries", 0, "retry budget, overrides enhance.max_retries")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for deterministic suggestions")
	cmd.Flags().BoolVar(&opts.noDelay, "no-delay", false, "skip the simulated provider latency")
	cmd.Flags().Float64Var(&opts.errorRate, "error-rate", 0, "simulated failure rate, overrides enhance.error_rate")
	cmd.Flags().BoolVar(&opts.accept, "accept", false, "use the last suggestion instead of discarding")
	return cmd
}

func runEnhance(cmd *cobra.Command, args []string, opts *enhanceOptions) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to enhance: %w", enhance.ErrInvalidInput)
	}

	cfg, paths, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("retries") {
		if opts.retries < 0 {
			return errors.New("--retries must be >= 0")
		}
		cfg.Enhance.MaxRetries = opts.retries
	}
	if flags.Changed("error-rate") {
		cfg.Enhance.ErrorRate = opts.errorRate
	}
	if opts.noDelay {
		cfg.Enhance.MinDelayMs, cfg.Enhance.MaxDelayMs = 0, 0
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := openFileLogger(cfg, paths)
	if err != nil {
		return err
	}
	defer closeLog()

	var extra []provider.LookupOption
	if flags.Changed("seed") {
		extra = append(extra, provider.WithSeed(opts.seed))
	}
	b, err := openBackend(cmd.Context(), cfg, paths, logger, extra...)
	if err != nil {
		return err
	}
	defer b.Close()

	clog.LogStartup(logger, clog.StartupInfo{
		Version:      Version,
		Command:      "enhance",
		ConfigPath:   cfgPath,
		Provider:     cfg.Enhance.Provider,
		CorpusSource: b.source,
		MaxRetries:   cfg.Enhance.MaxRetries,
	})

	ctrl := enhance.New(
		provider.NewAdapter(b.provider, logger),
		enhance.WithMaxRetries(cfg.Enhance.MaxRetries),
		enhance.WithLogger(logger),
	)

	out := cmd.OutOrStdout()
	result, err := runHeadlessSession(out, ctrl, text, opts.accept)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result)
	return nil
}

// runHeadlessSession drives one session to its end, printing each fetch.
// It returns the resulting text: the accepted suggestion, or the source text
// when the session is discarded.
func runHeadlessSession(out io.Writer, ctrl *enhance.Controller, text string, accept bool) (string, error) {
	fetch, err := ctrl.Open(text)
	if err != nil {
		return "", err
	}

	attempt, failures := 0, 0
	for {
		attempt++
		ctrl.Deliver(fetch())

		st, _ := ctrl.State()
		printFetch(out, attempt, st, ctrl.MaxRetries())

		switch st.Status {
		case enhance.StatusFailed:
			failures++
		case enhance.StatusReady:
			failures = 0
		}
		if failures >= maxFailedFetches || !ctrl.CanTryAgain() {
			break
		}

		if fetch, err = ctrl.TryAgain(); err != nil {
			break
		}
	}

	st, _ := ctrl.State()
	fmt.Fprintf(out, "%ssession %s:%s %d suggestion(s), retries used %d/%d\n",
		colorDim, st.SessionID, colorReset, len(st.History), st.RetriesUsed, ctrl.MaxRetries())

	if accept {
		result, err := ctrl.Accept()
		if err == nil {
			fmt.Fprintf(out, "%saccepted%s\n", colorGreen, colorReset)
			return result, nil
		}
		if !errors.Is(err, enhance.ErrStateViolation) {
			return "", err
		}
		fmt.Fprintf(out, "%snothing to accept (%s)%s\n", colorYellow, st.Status, colorReset)
	}

	result, err := ctrl.Discard()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(out, "%sdiscarded%s\n", colorDim, colorReset)
	return result, nil
}

func printFetch(out io.Writer, attempt int, st enhance.State, maxRetries int) {
	switch st.Status {
	case enhance.StatusReady:
		fmt.Fprintf(out, "%s[%d] ready%s (%d of %d, retries %d/%d) %s\n",
			colorCyan, attempt, colorReset, st.Cursor+1, len(st.History), st.RetriesUsed, maxRetries,
			st.History[st.Cursor].Text)
	case enhance.StatusExhausted:
		fmt.Fprintf(out, "%s[%d] exhausted%s no more suggestions\n", colorYellow, attempt, colorReset)
	case enhance.StatusFailed:
		fmt.Fprintf(out, "%s[%d] failed%s %s\n", colorRed, attempt, colorReset, st.Message)
	default:
		fmt.Fprintf(out, "[%d] %s\n", attempt, st.Status)
	}
}
