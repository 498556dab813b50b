package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/presentation/tui"
	"github.com/aretw0/recalc/pkg/domain"
)

// debounce lets the file system settle after a change event.
const debounce = 100 * time.Millisecond

// RunWatch evaluates the request, then evaluates it again every time the
// workbook changes until ctx ends. Evaluation errors are reported and the
// watcher waits for the next fix.
func RunWatch(ctx context.Context, eng *recalc.Engine, req domain.EvaluationRequest, out io.Writer) error {
	changes, err := eng.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch mode: %w", err)
	}
	tui.PrintBanner(out, recalc.Version)
	printSystemMessage(out, "Watching '%s'.", req.WorkbookID)

	for {
		evaluateOnce(ctx, eng, req, out)
		printSystemMessage(out, "Waiting for changes...")

		if !waitForChange(ctx, changes, req.WorkbookID) {
			printSystemMessage(out, "Stopped watching '%s'.", req.WorkbookID)
			return ctx.Err()
		}
		printSystemMessage(out, "Change detected in '%s'.", req.WorkbookID)
	}
}

func evaluateOnce(ctx context.Context, eng *recalc.Engine, req domain.EvaluationRequest, out io.Writer) {
	result, err := eng.Evaluate(ctx, req)
	if err != nil {
		printSystemMessage(out, "Evaluation failed: %v", err)
		return
	}
	if err := PrintResult(out, result, false); err != nil {
		printSystemMessage(out, "Render failed: %v", err)
	}
}

// waitForChange blocks until the watched workbook (or any workbook, since
// blueprints may be imported) changes. It returns false when ctx ends or
// the watcher closes.
func waitForChange(ctx context.Context, changes <-chan string, workbookID string) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-changes:
		if !ok {
			return false
		}
	}

	timer := time.NewTimer(debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-changes:
			if !ok {
				return false
			}
			timer.Reset(debounce)
		case <-timer.C:
			return true
		}
	}
}
