// Command threatgraph-tui runs one analysis and browses the ranking, the
// run summary and the training loss curve in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/dd0wney/cluso-insider/pkg/config"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/pipeline"
)

type reportMsg struct {
	report *pipeline.Report
}

// analyzeCmd runs the analysis off the UI loop.
func analyzeCmd(ctx context.Context, analyzer *pipeline.Analyzer) tea.Cmd {
	return func() tea.Msg {
		return reportMsg{report: analyzer.Run(ctx)}
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Config file (default ./threatgraph.yaml if present)")
	synthetic := flag.Bool("synthetic", false, "Analyse the synthetic dataset")
	logPath := flag.String("log", "", "Write JSON logs to this file instead of discarding them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "threatgraph-tui: %v\n", err)
		return 2
	}

	// stdout belongs to the UI
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "threatgraph-tui: open log file: %v\n", err)
			return 2
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewJSONLogger(logOut, logging.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := cfg.Runtime(ctx, *synthetic, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "threatgraph-tui: set up analyzer: %v\n", err)
		return 2
	}
	defer rt.Close()

	p := tea.NewProgram(initialModel(analyzeCmd(ctx, rt.Analyzer)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "threatgraph-tui: %v\n", err)
		return 1
	}
	return 0
}
