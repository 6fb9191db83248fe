// Atelier: an AI-assisted collaborative workspace MCP server.
//
// Projects, collaborators, and a semantic knowledge base, with
// tier-based quotas enforced on every mutating action.
//
// Usage:
//
//	atelier serve [config-dir]    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"github.com/mark3labs/mcp-go/server"

	"github.com/atelierhq/atelier/internal/config"
	atelierserver "github.com/atelierhq/atelier/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		configDir := ""
		if len(os.Args) > 2 {
			configDir = os.Args[2]
		}
		if err := run(configDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("atelier v%s\n", atelierserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(configDir string) error {
	// Logs go to stderr so they don't interfere with MCP's stdio
	// transport on stdout.
	logger := slog.Make(sloghuman.Sink(os.Stderr))

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	s, cleanup, err := atelierserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Atelier v%s — AI-assisted collaborative workspace MCP server

Usage:
  atelier serve [config-dir]   Start the MCP server (stdio transport)
  atelier version              Print the version

Configuration:
  Reads atelier.yaml from config-dir, ~/.config/atelier, or the working
  directory; ATELIER_* environment variables override file values.

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "atelier": {
        "command": "atelier",
        "args": ["serve"]
      }
    }
  }
`, atelierserver.Version)
}
