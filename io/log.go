// Package io provides BAMM's console diagnostics and file output
// sinks. The name and the LogError/ExitWithMessage split follow
// github.com/evolbioinfo/gotree's own io package (visible in the
// teacher's cmd/nodes.go and cmd/classical.go), generalized from
// "tree-building CLI diagnostics" to the startup/runtime error split
// of spec.md §7: configuration and input-data errors are fatal,
// numerical and invariant-violation errors during a proposal are
// local and never reach this package.
package io

import (
	"fmt"
	"os"
)

// LogError prints a non-fatal error to stderr and returns.
func LogError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "bamm: %v\n", err)
}

// ExitWithMessage prints err to stderr and terminates the process with
// a non-zero exit code, per spec.md §6 ("Exit codes... non-zero for
// CLI/config errors or unreadable input files").
func ExitWithMessage(err error) {
	fmt.Fprintf(os.Stderr, "bamm: fatal: %v\n", err)
	os.Exit(1)
}

// Fatal formats a message and terminates the process, for internal
// logic errors that spec.md §7 calls out as always fatal (e.g.
// forward-propagation reaching a nil parent above the root).
func Fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "bamm: fatal: "+format+"\n", args...)
	os.Exit(1)
}

// Printf writes an unprefixed progress line to stdout, used by the
// driver's printFreq heartbeat.
func Printf(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
