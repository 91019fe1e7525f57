package testbed

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/inference-sim/cloudlet-sim/sim/report"
	"github.com/inference-sim/cloudlet-sim/sim/trace"
)

// WriteReport writes the end-of-run tables, then a trace summary when tracing
// was on, then any work never placed before the horizon. Keep-alive cloudlets
// are listed only when withKeepAlive is set.
func (tb *Testbed) WriteReport(w io.Writer, res Result, withKeepAlive bool) error {
	var err error
	write := func(title string, fn func() error) {
		_, werr := fmt.Fprintf(w, "\n=== %s ===\n", title)
		err = multierr.Append(err, werr)
		err = multierr.Append(err, fn())
	}

	write("Cloudlets", func() error {
		return report.WriteCloudletTable(w, tb.broker.CloudletsSubmitted(), withKeepAlive)
	})
	write("Vms", func() error { return report.WriteVmTable(w, tb.broker.VmsSubmitted()) })
	write("Utilization", func() error { return report.WriteUtilizationTable(w, res.Utilization) })

	_, werr := fmt.Fprintf(w, "\nclock=%.2f dispatched=%d keep_alives=%d makespan=%.2f complete=%t\n",
		res.Clock, res.Dispatched, res.KeepAlivesSubmitted, res.Makespan(), res.Complete)
	err = multierr.Append(err, werr)
	if res.Trace != nil {
		sum := trace.Summarize(res.Trace)
		_, werr = fmt.Fprintf(w, "trace: dispatches=%d placements=%d placed=%d failed=%d targets=%d\n",
			sum.TotalDispatches, sum.PlacementAttempts, sum.PlacedCount, sum.FailedCount, sum.UniqueTargets)
		err = multierr.Append(err, werr)
	}
	for _, e := range res.AllocationTimeouts() {
		_, werr = fmt.Fprintf(w, "unplaced: %v\n", e)
		err = multierr.Append(err, werr)
	}
	return err
}
