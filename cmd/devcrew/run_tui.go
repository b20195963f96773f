package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/tui"
	"github.com/devcrew-io/devcrew/internal/workflow"
)

// runWithTUI runs the engine behind a live progress view.
func runWithTUI(ctx context.Context, engine *workflow.Engine, task string, roles role.Sequence) (retErr error) {
	// Suppress log output while the TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	program, _ := tui.NewProgram(task, roles)

	go forwardEventsToTUI(program, engine.Events())

	runDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				runDone <- fmt.Errorf("PANIC in run: %v", r)
			}
		}()
		_, err := engine.Run(ctx, task)
		engine.CloseEvents()
		runDone <- err
	}()

	tuiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case err := <-runDone:
		if err != nil {
			program.Send(tui.DoneMsg{Success: false, Message: err.Error()})
		} else {
			program.Send(tui.DoneMsg{Success: true, Message: "run completed"})
		}
		// Leave the final state on screen until the user quits.
		<-tuiDone
		return err

	case err := <-tuiDone:
		// The user quit the display; the run keeps going to completion.
		if err != nil {
			return err
		}
		return <-runDone
	}
}

// forwardEventsToTUI converts run events to TUI messages.
func forwardEventsToTUI(program *tea.Program, events <-chan workflow.Event) {
	for event := range events {
		program.Send(tui.EventMsg{Event: event})
	}
}
