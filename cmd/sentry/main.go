// Command sentry is the reference tool-layer caller for the security
// pipeline: it checks commands, paths, and domains against the permission
// engine, runs approved commands in the sandbox, and scans text for prompt
// injection.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
