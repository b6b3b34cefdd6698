//go:build windows

package cmd

import "os"

// termWidth returns 0 on Windows; width detection falls back to $COLUMNS.
func termWidth(f *os.File) int {
	return 0
}

// openTTY opens the console for the editor.
func openTTY() (*os.File, error) {
	return os.OpenFile("CONIN$", os.O_RDWR, 0)
}
