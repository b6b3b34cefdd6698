package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "casenote.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTailLogs(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\nfour\n")

	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "four\n"},
		{2, "three\nfour\n"},
		{10, "one\ntwo\nthree\nfour\n"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, tailLogs(&out, path, tt.n))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestTailLogs_NoTrailingNewline(t *testing.T) {
	path := writeLog(t, "one\ntwo")

	var out bytes.Buffer
	require.NoError(t, tailLogs(&out, path, 1))
	assert.Equal(t, "two\n", out.String())
}

func TestTailLogs_EmptyFile(t *testing.T) {
	path := writeLog(t, "")

	var out bytes.Buffer
	require.NoError(t, tailLogs(&out, path, 5))
	assert.Equal(t, "Log file is empty.\n", out.String())
}

func TestLastLines_SpansChunks(t *testing.T) {
	// Lines long enough that several cross the 4096-byte chunk boundary.
	var b strings.Builder
	var want []string
	for i := 0; i < 40; i++ {
		line := fmt.Sprintf("%03d %s", i, strings.Repeat("x", 300))
		b.WriteString(line + "\n")
		want = append(want, line)
	}
	content := b.String()

	got, err := lastLines(strings.NewReader(content), int64(len(content)), 25)
	require.NoError(t, err)
	assert.Equal(t, want[15:], got)

	got, err = lastLines(strings.NewReader(content), int64(len(content)), 100)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
}

func TestFollowLogs_StopsOnCancel(t *testing.T) {
	path := writeLog(t, "old line\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := followLogs(ctx, &out, path)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "Following "+path)
	assert.NotContains(t, out.String(), "old line")
}

func TestRunLogs_NoFile(t *testing.T) {
	dir := setupTestEnv(t)

	out, err := execute(&cobra.Command{Use: "logs", RunE: runLogs})
	require.NoError(t, err)
	assert.Contains(t, out, "No log file found at: "+filepath.Join(dir, "cache", "casenote", "casenote.log"))
}
