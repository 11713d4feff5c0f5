// linkmap: stable abstract addresses for a moving document tree
//
// An MCP server (and a small CLI) that maps logical document ids such as
// abstract://standard:task_master to their current files, rescanning the
// tree when it changes, and rewrites markdown links between both forms.
//
// Usage:
//
//	linkmap serve                  # Start MCP server (stdio transport)
//	linkmap scan [-force]          # Rebuild the mapping cache
//	linkmap resolve <addr|path>... # Resolve addresses or paths
//	linkmap convert [file]         # Rewrite links (stdin when no file)
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/linkmap/internal/config"
	lmserver "github.com/HendryAvila/linkmap/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(args)
	case "scan":
		err = runScan(ctx, args, os.Stdout, os.Stderr)
	case "resolve":
		err = runResolve(ctx, args, os.Stdout, os.Stderr)
	case "convert":
		err = runConvert(ctx, args, os.Stdin, os.Stdout, os.Stderr)
	case "--help", "-h", "help":
		printUsage(os.Stderr)
		return
	case "--version", "-v", "version":
		fmt.Printf("linkmap v%s\n", lmserver.Version)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Logs go to stderr; stdout carries the MCP stdio transport.
	cfg, logger, err := setup(fs.configPath, os.Stderr)
	if err != nil {
		return err
	}

	s, cleanup, err := lmserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	logger.Info("linkmap serving on stdio", "repo", cfg.RepoRoot, "roots", len(cfg.Roots))
	return server.ServeStdio(s)
}

// setup loads the configuration (explicit path or nearest linkmap.yaml)
// and installs a text logger on w at the configured level.
func setup(configPath string, w io.Writer) (config.Config, *slog.Logger, error) {
	var (
		cfg  config.Config
		used string
		err  error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
		used = configPath
	} else {
		var cwd string
		cwd, err = os.Getwd()
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("getting working directory: %w", err)
		}
		cfg, used, err = config.Discover(cwd)
	}
	if err != nil {
		return config.Config{}, nil, err
	}

	level, err := cfg.Level()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if used == "" {
		logger.Debug("no linkmap.yaml found, using defaults", "repo", cfg.RepoRoot)
	} else {
		logger.Debug("configuration loaded", "file", used)
	}
	return cfg, logger, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `linkmap v%s: abstract document addresses

Usage:
  linkmap serve [-config file]                 Start the MCP server (stdio transport)
  linkmap scan [-config file] [-force]         Rescan the document roots, print a JSON report
  linkmap resolve [-config file] <arg>...      Resolve abstract addresses or physical paths
  linkmap convert [-config file] [-to-physical] [-base dir] [file]
                                               Rewrite markdown links (reads stdin without file)
  linkmap version                              Print the version

Configuration:
  linkmap.yaml is looked up from the working directory upwards.
  Without it, the defaults scan standards/, tasks/, incidents/ and the
  top-level directories, caching mappings in .linkmap/mappings.json.

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "linkmap": {
        "command": "linkmap",
        "args": ["serve"]
      }
    }
  }
`, lmserver.Version)
}
