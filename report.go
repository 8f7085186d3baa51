package qnetsim

// report.go holds the text report generators: the per-station simulated
// metrics table and the analytical-vs-simulated comparison table

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

const reportWidth = 78

// deviationThreshold is the relative error above which a comparison row
// is flagged
const deviationThreshold = 0.10

// ReportGenerator renders simulation results as plain text tables
type ReportGenerator struct {
	width int
}

// CreateReportGenerator is a constructor
func CreateReportGenerator() *ReportGenerator {
	rg := new(ReportGenerator)
	rg.width = reportWidth
	return rg
}

// stationOrder returns the station ids of a metrics set in ascending order
func stationOrder(nm *NetworkMetrics) []int {
	ids := make([]int, 0, len(nm.Stations))
	for id := range nm.Stations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// GenerateResults renders the steady-state measures of a finished run
func (rg *ReportGenerator) GenerateResults(sim *NetworkMetrics, clock float64, completed int) string {
	var sb strings.Builder

	sb.WriteString("\nSteady-State Simulation Results\n")
	sb.WriteString(strings.Repeat("=", rg.width))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "clock %.2f, completed customers %d\n\n", clock, completed)

	fmt.Fprintf(&sb, "%-10s %10s %10s %10s %10s %10s\n", "station", "L", "Lq", "W", "Wq", "rho")
	for _, id := range stationOrder(sim) {
		sm := sim.Stations[id]
		fmt.Fprintf(&sb, "%-10s %10.4f %10.4f %10.4f %10.4f %9.2f%%\n",
			fmt.Sprintf("Q%d", id), sm.L, sm.Lq, sm.W, sm.Wq, sm.Rho*100.0)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "system total N: %.4f\n", sim.TotalL)
	fmt.Fprintf(&sb, "system response R: %.4f\n", sim.SystemResponse)
	return sb.String()
}

// compareRow renders one metric of the comparison, flagging relative
// errors above the deviation threshold
func compareRow(sb *strings.Builder, name string, ana, sim float64) {
	var dev float64
	if ana > 0.0 {
		dev = (sim - ana) / ana
		if dev < 0.0 {
			dev = -dev
		}
	}
	status := "ok"
	if dev >= deviationThreshold {
		status = "HIGH DEV"
	}
	fmt.Fprintf(sb, "%-22s %12.4f %12.4f %9.2f%% %10s\n", name, ana, sim, dev*100.0, status)
}

// GenerateComparison renders the analytical and simulated measures side
// by side with their relative error
func (rg *ReportGenerator) GenerateComparison(ana, sim *NetworkMetrics) string {
	var sb strings.Builder

	sb.WriteString("\nAnalytical vs Simulation Comparison\n")
	sb.WriteString(strings.Repeat("=", rg.width))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%-22s %12s %12s %10s %10s\n", "metric", "analytical", "simulated", "error", "status")
	sb.WriteString(strings.Repeat("-", rg.width))
	sb.WriteString("\n")

	compareRow(&sb, "system total N", ana.TotalL, sim.TotalL)
	compareRow(&sb, "system response R", ana.SystemResponse, sim.SystemResponse)

	for _, id := range stationOrder(ana) {
		am := ana.Stations[id]
		sm := sim.Stations[id]
		sb.WriteString(strings.Repeat("-", rg.width))
		sb.WriteString("\n")
		compareRow(&sb, fmt.Sprintf("Q%d L", id), am.L, sm.L)
		compareRow(&sb, fmt.Sprintf("Q%d Lq", id), am.Lq, sm.Lq)
		compareRow(&sb, fmt.Sprintf("Q%d W", id), am.W, sm.W)
		compareRow(&sb, fmt.Sprintf("Q%d Wq", id), am.Wq, sm.Wq)
		compareRow(&sb, fmt.Sprintf("Q%d rho", id), am.Rho, sm.Rho)
	}
	return sb.String()
}
