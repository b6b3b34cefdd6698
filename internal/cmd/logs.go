package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "View the editor log",
	GroupID: groupSetup,
	Long: `View the casenote log file.

The editor writes its JSON log to a file because the terminal is in use.
By default, shows the last 50 lines. Use --follow to keep watching.

Examples:
  casenote logs              # Show last 50 lines
  casenote logs -f           # Follow log output
  casenote logs --lines=100  # Show last 100 lines`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, paths, _, err := loadConfig()
	if err != nil {
		return err
	}
	logFile := cfg.LogFile(paths)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logFile); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "No log file found at: %s\n", logFile)
		fmt.Fprintln(out, "The editor may not have been started yet.")
		return nil
	}

	if logsFollow {
		return followLogs(cmd.Context(), out, logFile)
	}

	return tailLogs(out, logFile, logsLines)
}

// tailLogs writes the last n lines of filename to out.
func tailLogs(out io.Writer, filename string, n int) error {
	if n <= 0 {
		return nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if stat.Size() == 0 {
		fmt.Fprintln(out, "Log file is empty.")
		return nil
	}

	lines, err := lastLines(f, stat.Size(), n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

// lastLines reads r backwards in chunks until it has n complete lines.
// A trailing newline does not count as an empty last line.
func lastLines(r io.ReaderAt, size int64, n int) ([]string, error) {
	const chunkSize = int64(4096)

	lines := make([]string, 0, n)
	offset := size
	remainder := "" // partial line carried into the next chunk

	for len(lines) < n && offset > 0 {
		readSize := chunkSize
		if offset < chunkSize {
			readSize = offset
		}
		offset -= readSize

		buf := make([]byte, readSize)
		if _, err := r.ReadAt(buf, offset); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read log file: %w", err)
		}

		chunkLines := splitLines(string(buf) + remainder)
		if offset > 0 && len(chunkLines) > 0 {
			remainder = chunkLines[0]
			chunkLines = chunkLines[1:]
		} else {
			remainder = ""
		}

		for i := len(chunkLines) - 1; i >= 0 && len(lines) < n; i-- {
			if chunkLines[i] != "" || len(lines) > 0 {
				lines = append([]string{chunkLines[i]}, lines...)
			}
		}
	}

	if remainder != "" && len(lines) < n {
		lines = append([]string{remainder}, lines...)
	}
	return lines, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// followLogs copies lines appended to filename to out until ctx is done.
func followLogs(ctx context.Context, out io.Writer, filename string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(out, "Following %s (Ctrl+C to stop)...\n\n", filename)

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fmt.Fprint(out, line)
		}
		if err == nil {
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("error reading log: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
