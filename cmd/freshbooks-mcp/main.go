// file: cmd/freshbooks-mcp/main.go
package main

import (
	"os"

	"github.com/dkoosis/freshbooks-mcp/internal/commands"
)

// version is set via ldflags: -X main.version=v1.0.0
var version = "0.1.0-dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
