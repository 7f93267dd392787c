package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/ops"
)

// Build identity, set via -ldflags at build time.
var (
	Version   = "dev"
	GitURL    = ""
	GitCommit = ""
)

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "filter": true, "import": true, "reports": true,
	"status": true, "run-job": true, "ui": true,
	"help": true,
}

func buildInfo() ops.BuildInfo {
	return ops.BuildInfo{Version: Version, GitURL: GitURL, GitCommit: GitCommit}
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short usage note when run interactively without args.
func printBanner() {
	fmt.Println(`
  contigfilter: drop short contigs from an assembly

  Usage: contigfilter <command> [options]
         contigfilter --help

  MCP server mode requires piped input.`)
}

// newLogger returns a JSON logger on w at the named level.
// Unknown levels fall back to info.
func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before config is loaded
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".contigfilter")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.ApplyEnv(cfg, os.Getenv)

	d := newDeps(baseDir, cfg, newLogger(cfg.LogLevel, os.Stderr))
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args
	if !isCLIMode() {
		// Unknown argument + terminal → show error (don't start MCP server)
		if len(os.Args) >= 2 && isTerminal() {
			fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
			fmt.Fprintf(os.Stderr, "Run 'contigfilter --help' for usage.\n")
			os.Exit(1)
		}
		// MCP server mode (default)
		args = []string{os.Args[0], "serve"}
	}

	if err := newCLIApp(d).RunContext(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		d.Close()
		os.Exit(1)
	}
}
