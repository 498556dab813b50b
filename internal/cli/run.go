package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/presentation/tui"
	"github.com/aretw0/recalc/pkg/domain"
)

// RunOptions configures the run command.
type RunOptions struct {
	Workbook string
	Sets     []string
	Level    string
	JSON     bool
	Watch    bool
	Quiet    bool
}

// request builds the evaluation request for the options.
func (o RunOptions) request() (domain.EvaluationRequest, error) {
	inputs, err := ParseAssignments(o.Sets)
	if err != nil {
		return domain.EvaluationRequest{}, err
	}
	req := domain.EvaluationRequest{WorkbookID: o.Workbook, DataVariables: inputs}
	if o.Level != "" {
		lvl, err := domain.ParseLogLevel(o.Level)
		if err != nil {
			return domain.EvaluationRequest{}, err
		}
		req.LogLevel = &lvl
	}
	return req, req.Validate()
}

// Execute handles the run command, dispatching to a single evaluation or
// watch mode.
func Execute(ctx context.Context, eng *recalc.Engine, opts RunOptions, out io.Writer) error {
	req, err := opts.request()
	if err != nil {
		return err
	}
	if opts.Watch {
		if opts.JSON {
			return fmt.Errorf("--watch and --json cannot be used together")
		}
		return handleExecutionError(RunWatch(ctx, eng, req, out))
	}

	if !opts.JSON && !opts.Quiet {
		tui.PrintBanner(out, recalc.Version)
	}
	result, err := eng.Evaluate(ctx, req)
	if err != nil {
		return handleExecutionError(err)
	}
	return PrintResult(out, result, opts.JSON)
}

// PrintResult writes a result as indented JSON or rendered markdown.
func PrintResult(out io.Writer, result *domain.EvaluationResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	rendered, err := tui.NewRenderer(out)(tui.ResultMarkdown(result))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}
