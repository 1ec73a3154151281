package telemetry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shirou/gopsutil/process"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Report renders a human-readable end-of-run summary, in the teacher's
// go-pretty table style (core/util.go's PrintState tables), plus a host
// resource sidebar sampling the simulation process's own CPU/RSS
// (spec.md §2 ambient stack).
func Report(runID string, snap Snapshot) string {
	var b strings.Builder

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Run %s — %d ticks", runID, snap.Ticks))
	t.AppendHeader(table.Row{"Unit", "Active", "Stall", "Utilization", "Bytes", "Energy (pJ)"})

	names := make([]string, 0, len(snap.Units))
	for name := range snap.Units {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		u := snap.Units[name]
		t.AppendRow(table.Row{
			titleCaser.String(name),
			u.ActiveTicks,
			u.StallTicks,
			fmt.Sprintf("%.1f%%", snap.Utilization(name)*100),
			u.Bytes,
			fmt.Sprintf("%.0f", u.EnergyPJ),
		})
	}

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(hostSidebar())
	return b.String()
}

// hostSidebar samples the simulation process's own CPU time and
// resident set size, so a run's simulated energy/cycle numbers can be
// read next to the real cost of producing them.
func hostSidebar() string {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return "host: unavailable"
	}
	cpuPct, _ := proc.CPUPercent()
	mem, err := proc.MemoryInfo()
	rss := uint64(0)
	if err == nil && mem != nil {
		rss = mem.RSS
	}

	ht := table.NewWriter()
	ht.SetTitle("Host process")
	ht.AppendHeader(table.Row{"CPU %", "RSS (bytes)"})
	ht.AppendRow(table.Row{fmt.Sprintf("%.1f", cpuPct), rss})
	return ht.Render()
}
