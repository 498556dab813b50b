package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/presentation/tui"
	"github.com/aretw0/recalc/pkg/domain"
)

// Validate loads a workbook, checks its structure and builds its session
// graph on a scratch engine, so nothing reaches the configured store.
func Validate(ctx context.Context, eng *recalc.Engine, id string, out io.Writer) error {
	wb, err := eng.Workbook(ctx, id)
	if err != nil {
		return err
	}
	if err := wb.Validate(); err != nil {
		return fmt.Errorf("workbook %s is invalid: %w", id, err)
	}

	scratch, err := recalc.New("", recalc.WithLoader(eng.Loader()), recalc.WithEvaluator(eng.Evaluator()))
	if err != nil {
		return err
	}
	defer func() { _ = scratch.Shutdown(context.WithoutCancel(ctx)) }()

	s, err := scratch.Start(ctx, wb, domain.LevelWarning, "")
	if err != nil {
		return fmt.Errorf("workbook %s does not build: %w", id, err)
	}
	result, err := s.Close(ctx)
	if err != nil {
		return err
	}

	var problems []error
	for _, l := range result.Logs {
		if l.Level >= domain.LevelError {
			problems = append(problems, errors.New(l.Message))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("workbook %s evaluates with errors: %w", id, err)
	}

	rendered, err := tui.NewRenderer(out)(tui.WorkbookMarkdown(wb))
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	printSystemMessage(out, "Workbook '%s' is valid (%d variables).", id, len(result.State))
	return nil
}
