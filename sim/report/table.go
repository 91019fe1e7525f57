package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/inference-sim/cloudlet-sim/sim"
)

const megabyte = 1000 * 1000

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

// formatTime renders a simulated instant; negative means never.
func formatTime(t float64) string {
	if t < 0 || math.IsNaN(t) {
		return "-"
	}
	return fmt.Sprintf("%.2f", t)
}

// formatMB renders a size in MB, or "unlimited" when it cannot fit in bytes.
func formatMB(mb float64) string {
	if mb*megabyte >= math.MaxUint64/2 {
		return "unlimited"
	}
	return humanize.Bytes(uint64(mb * megabyte))
}

// WriteCloudletTable writes one row per cloudlet. Keep-alive cloudlets are
// skipped unless withKeepAlive is set.
func WriteCloudletTable(w io.Writer, cloudlets []*sim.Cloudlet, withKeepAlive bool) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "Cloudlet\tState\tVm\tHost\tPEs\tLength MI\tExecuted MI\tSubmit\tStart\tFinish\tCPU Time\t")
	for _, c := range cloudlets {
		if c.IsKeepAlive() && !withKeepAlive {
			continue
		}
		vm, host := "-", "-"
		if c.Vm() != nil {
			vm = fmt.Sprint(c.Vm().ID())
			if h := c.Vm().Host(); h != nil {
				host = fmt.Sprint(h.ID())
			}
		}
		cpuTime := "-"
		if c.State() == sim.CloudletFinished {
			cpuTime = fmt.Sprintf("%.2f", c.ActualCpuTime())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			c.ID(), c.State(), vm, host, c.Pes(),
			humanize.Comma(int64(c.Length())), humanize.Comma(int64(math.Round(c.ExecutedLength()))),
			formatTime(c.SubmitTime()), formatTime(c.ExecStartTime()), formatTime(c.FinishTime()), cpuTime)
	}
	return tw.Flush()
}

// WriteVmTable writes one row per Vm.
func WriteVmTable(w io.Writer, vms []*sim.Vm) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "Vm\tState\tHost\tPEs\tMIPS\tRAM\tBW Mbps\tAllocated\tStarted\tDestroyed\t")
	for _, vm := range vms {
		spec := vm.Spec()
		host := "-"
		if h := vm.Host(); h != nil {
			host = fmt.Sprint(h.ID())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			vm.ID(), vm.State(), host, spec.Pes,
			humanize.Comma(int64(spec.Mips)), formatMB(spec.Ram), humanize.Comma(int64(spec.Bw)),
			formatTime(vm.AllocatedAt()), formatTime(vm.StartedAt()), formatTime(vm.DestroyedAt()))
	}
	return tw.Flush()
}

// WriteUtilizationTable writes one row per sampled Vm with mean, p95 and max
// percentages.
func WriteUtilizationTable(w io.Writer, rows []VmUtilization) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "Vm\tSamples\tCPU mean\tCPU p95\tCPU max\tRAM mean\tRAM max\tBW mean\tBW max\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\t\n",
			r.VmID, r.Samples, r.Cpu.Mean, r.Cpu.P95, r.Cpu.Max,
			r.Ram.Mean, r.Ram.Max, r.Bw.Mean, r.Bw.Max)
	}
	return tw.Flush()
}
