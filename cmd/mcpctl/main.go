// Command mcpctl is a read-only introspection and control client for a
// running mcpd: it opens the same mission control table mcpd reads to
// report state, rules, parameters, and partitions, and signals a
// running daemon (found via its PID file) to reload.
package main

import (
	"fmt"
	"os"

	"github.com/flightos/mcpd/cmd/mcpctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
