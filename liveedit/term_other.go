//go:build !linux

package liveedit

// RawKeys is a no-op here: keys arrive after enter is pressed.
func RawKeys(fd int) (func() error, error) {
	return func() error { return nil }, nil
}
