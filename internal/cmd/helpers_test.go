package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// setupTestEnv points every casenote path into a temp dir and turns colors
// off. It returns the temp dir.
func setupTestEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{"CASENOTE_DEBUG", "CASENOTE_LOG_LEVEL", "CASENOTE_PROVIDER", "CASENOTE_CORPUS"} {
		t.Setenv(k, "")
	}

	prev := configFlag
	configFlag = ""
	disableColors()
	t.Cleanup(func() {
		configFlag = prev
		enableColors()
	})
	return dir
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	// nil would make cobra fall back to os.Args
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}
