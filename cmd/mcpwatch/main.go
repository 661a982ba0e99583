// Package main provides the mcpwatch CLI application.
//
// mcpwatch passively watches the log files of AI assistant CLIs and
// reconstructs per-MCP-server and per-tool token and dollar consumption
// in real time. It never wraps or modifies the monitored tool.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// splitList splits a comma-separated flag value into trimmed entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	flag.Parse()

	if *showVersion {
		fmt.Printf("mcpwatch %s\n", version)
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "track":
		return runTrackCommand(*configPath, args[1:])
	case "report":
		return runReportCommand(*configPath, args[1:])
	case "sessions":
		return runSessionsCommand(*configPath)
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runTrackCommand runs the track command.
func runTrackCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	platform := fs.String("platform", "", "platform to monitor (claude, codex, gemini)")
	project := fs.String("project", "", "project name override")
	format := fs.String("format", "", "output format (simple, table, json)")
	fromStart := fs.Bool("from-start", false, "read pre-existing log content instead of only new lines")
	resume := fs.Bool("resume", false, "continue from the offsets a previous run stored")
	noPersist := fs.Bool("no-persist", false, "do not write a session record on exit")
	output := fs.String("output", "", "session record directory override")
	pin := fs.String("pin", "", "comma-separated server names to show first")
	refresh := fs.Duration("refresh", 0, "snapshot refresh interval")
	wait := fs.Duration("wait", time.Minute, "how long to wait for platform activity before giving up")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &trackCommand{
		platform:   *platform,
		project:    *project,
		format:     *format,
		fromStart:  *fromStart,
		resume:     *resume,
		noPersist:  *noPersist,
		output:     *output,
		pin:        splitList(*pin),
		refresh:    *refresh,
		wait:       *wait,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runReportCommand runs the report command.
func runReportCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	format := fs.String("format", "", "output format (simple, table, json)")
	dir := fs.String("dir", "", "session record directory to report over")
	since := fs.Duration("since", 0, "only include sessions started within this duration")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("usage: mcpwatch report [-format mode] [-dir path] [-since duration] [record.json]")
	}

	cmd := &reportCommand{
		recordPath: fs.Arg(0),
		format:     *format,
		dir:        *dir,
		since:      *since,
		configPath: configPath,
	}
	return cmd.Execute()
}

// runSessionsCommand runs the sessions command.
func runSessionsCommand(configPath string) error {
	cmd := &sessionsCommand{
		configPath: configPath,
	}
	return cmd.Execute()
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage() error {
	usage := `mcpwatch - passive MCP token and cost monitoring for AI assistant CLIs

Usage:
  mcpwatch [flags] <command> [command flags]

Commands:
  track       Watch a platform's logs and attribute MCP usage live
  report      Render saved session records
  sessions    List saved sessions
  config      Configuration management (show, path, init)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Track Command Flags:
  -platform    Platform to monitor (claude, codex, gemini)
  -project     Project name override (default: working directory name)
  -format      Output format (simple, table, json)
  -from-start  Read pre-existing log content instead of only new lines
  -resume      Continue from the offsets a previous run stored
  -no-persist  Do not write a session record on exit
  -output      Session record directory override
  -pin         Comma-separated server names to show first
  -refresh     Snapshot refresh interval (default: 1s)
  -wait        How long to wait for platform activity (default: 1m)

Report Command Flags:
  -format      Output format (simple, table, json)
  -dir         Session record directory to report over
  -since       Only include sessions started within this duration

Examples:
  # Track Claude Code MCP usage for the current project
  mcpwatch track

  # Track Codex with a table view, reading the whole rollout
  mcpwatch track -platform codex -format table -from-start

  # Render a saved session record as JSON
  mcpwatch report -format json ~/.config/mcpwatch/sessions/claude/2026-08-29/myproject-0b1c2d3e.json

  # Summarize the last week of saved sessions
  mcpwatch report -since 168h -format table

  # List saved sessions
  mcpwatch sessions
`
	fmt.Print(usage)
	return nil
}
