package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/scheduler"
)

// writeSummary prints one line per instance in plan order, then the totals.
func writeSummary(w io.Writer, res *scheduler.RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tSTATE\tCACHED\tDURATION\tCAUSE")
	for _, inst := range res.Instances {
		cause := ""
		if inst.Cause != nil {
			cause = inst.Cause.Error()
		}
		cached := ""
		if inst.CacheHit {
			cached = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", inst.ID, inst.State, cached, inst.Duration.Round(time.Millisecond), cause)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "run %s: %s (%d succeeded, %d failed, %d blocked, %d cancelled) in %s\n",
		res.RunID, res.Status,
		res.Count(scheduler.Succeeded), res.Count(scheduler.Failed),
		res.Count(scheduler.Blocked), res.Count(scheduler.Cancelled),
		res.Finished.Sub(res.Started).Round(time.Millisecond))
	return err
}
