package cli

import "os"

// IsTerminal reports whether f refers to an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isTerminal(f)
}
