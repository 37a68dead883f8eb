package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fort2hip/internal/buildpipeline"
	"fort2hip/internal/driver"
	"fort2hip/internal/ui"
)

type translateOutcome struct {
	result *driver.TranslateResult
	err    error
}

// runTranslateWithUI runs the translation in the background while the
// progress view renders its events.
func runTranslateWithUI(ctx context.Context, title string, files []string, opts driver.TranslateOptions) (*driver.TranslateResult, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan translateOutcome, 1)

	go func() {
		opts.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := driver.TranslateFiles(ctx, files, opts)
		outcomeCh <- translateOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
