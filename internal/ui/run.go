package ui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"linecheck/internal/suite"
)

// RunSuite executes runner under the progress view and returns the runner's
// outcome. Events keep being drained if the view exits early, so the
// runner never blocks on a full channel.
func RunSuite(ctx context.Context, out io.Writer, title string, reg *suite.Registry, cfg suite.RunnerConfig) (suite.Summary, error) {
	entries, err := reg.Filter(cfg.Filter)
	if err != nil {
		return suite.Summary{}, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Fixture.Name
	}

	events := make(chan suite.Event, 256)
	type outcome struct {
		sum suite.Summary
		err error
	}
	outcomeCh := make(chan outcome, 1)

	go func() {
		cfg.Sink = suite.ChannelSink{Ch: events}
		sum, err := suite.NewRunner(reg, cfg).Run(ctx)
		outcomeCh <- outcome{sum: sum, err: err}
		close(events)
	}()

	model := NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	for range events {
	}
	res := <-outcomeCh
	if res.err != nil {
		return res.sum, res.err
	}
	return res.sum, uiErr
}
