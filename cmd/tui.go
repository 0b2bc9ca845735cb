package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"coursectl/internal/playback"
	"coursectl/internal/session"
	"coursectl/internal/shared"
	"coursectl/internal/ui"
)

// TUI launches the interactive course browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/coursectl-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	if err := r.connect(); err != nil {
		return err
	}

	state := r.session.Initialize(ctx)
	if state == session.StateAuthenticated {
		interval := time.Duration(r.config.Session.RefreshIntervalMinutes) * time.Minute
		r.session.StartAutoRefresh(interval)
		defer r.session.Close()
	}

	sampleInterval := time.Duration(r.config.Playback.SampleIntervalSeconds) * time.Second
	reporter := playback.NewReporter(r.engine, sampleInterval, fileLogger)
	defer reporter.Stop()

	model := ui.NewModel(ctx, r.catalog, r.engine, reporter)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
