package config

import (
	"fmt"
	"io"
	"os"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	ExitCodef(1, format, args...)
}

// ExitCodef is Exitf with an explicit exit code.
func ExitCodef(code int, format string, args ...any) {
	exitf(os.Stderr, os.Exit, code, format, args...)
}

func exitf(w io.Writer, exit func(int), code int, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	if code <= 0 {
		code = 1
	}
	exit(code)
}
