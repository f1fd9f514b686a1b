// Command shell-mcp is the local tool server. It reads JSON-RPC requests
// from stdin, one per line, executes shell and ssh commands, and answers on
// stdout. Lucius spawns it as a subprocess.
package main

import (
	"fmt"
	"os"

	"lucius/internal/mcp"
)

func main() {
	if err := mcp.NewServer().Serve(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "shell-mcp: %v\n", err)
		os.Exit(1)
	}
}
