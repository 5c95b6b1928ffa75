package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/bigmoostache/context-pilot/internal/app"
	"github.com/bigmoostache/context-pilot/internal/config"
)

var (
	configPath  = flag.String("config", "", "path to config file")
	projectRoot = flag.String("project", ".", "project root directory")
	debug       = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "context-pilot must run in a terminal")
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	// Stderr is owned by the TUI; keep logs in a file next to the
	// config so -debug output survives the session.
	logger := slog.New(slog.NewTextHandler(openLogFile(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load prompts: %v\n", err)
		os.Exit(1)
	}

	model, err := app.New(cfg, prompts, logger, *projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func openLogFile() *os.File {
	dir := os.TempDir()
	f, err := os.OpenFile(
		dir+string(os.PathSeparator)+"context-pilot.log",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		return os.Stderr
	}
	return f
}
