//go:build !windows

package cmd

import (
	"os"

	"golang.org/x/sys/unix"
)

// termWidth returns the width of the terminal behind f via ioctl, or 0 if
// unavailable.
func termWidth(f *os.File) int {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 0
	}
	return int(ws.Col)
}

// openTTY opens the controlling terminal for the editor.
func openTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
