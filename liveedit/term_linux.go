//go:build linux

package liveedit

import (
	"golang.org/x/sys/unix"
)

// RawKeys switches the terminal on fd to unbuffered input without echo so
// single key presses reach Run. The returned function restores the terminal.
func RawKeys(fd int) (func() error, error) {
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	raw := *old
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return func() error {
		return unix.IoctlSetTermios(fd, unix.TCSETS, old)
	}, nil
}
