package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/recalc"
)

// ListResults prints the stored results, one per line, with their workbook.
func ListResults(ctx context.Context, eng *recalc.Engine, out io.Writer) error {
	ids, err := eng.Results(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		printSystemMessage(out, "No stored results.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tWORKBOOK\tCREATED\tVARIABLES")
	for _, id := range ids {
		r, err := eng.Result(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t?\t?\t%v\n", id, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", id, r.WorkbookID, r.CreatedAt.Format("2006-01-02 15:04:05"), len(r.State))
	}
	return tw.Flush()
}

// InspectResult prints one stored result.
func InspectResult(ctx context.Context, eng *recalc.Engine, id string, asJSON bool, out io.Writer) error {
	r, err := eng.Result(ctx, id)
	if err != nil {
		return err
	}
	return PrintResult(out, r, asJSON)
}

// RemoveResults deletes stored results.
func RemoveResults(ctx context.Context, eng *recalc.Engine, ids []string, out io.Writer) error {
	for _, id := range ids {
		if err := eng.DeleteResult(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		printSystemMessage(out, "Deleted '%s'.", id)
	}
	return nil
}
