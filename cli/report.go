package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"

	"github.com/gridscan/gridscan/scanner"
)

// latencyRecorder keeps the wall time of every tick that ran, in milliseconds.
type latencyRecorder struct {
	mu     sync.Mutex
	totals []float64
}

func (r *latencyRecorder) observe(_ scanner.TickResult, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals = append(r.totals, float64(elapsed)/float64(time.Millisecond))
}

func (r *latencyRecorder) Totals() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.totals...)
}

// writeReport prints the smoothed latency of each stage and a summary of the raw tick times.
func writeReport(w io.Writer, snap scanner.Snapshot, totals []float64) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Smoothed (ms)"})
	for _, stage := range scanner.Stages {
		t.AppendRow(table.Row{stage, fmt.Sprintf("%.2f", snap.Latencies[stage])})
	}
	if len(totals) > 0 {
		mean, err := stats.Mean(totals)
		if err != nil {
			return err
		}
		p95, err := stats.Percentile(totals, 95)
		if err != nil {
			return err
		}
		t.AppendFooter(table.Row{"tick mean / p95", fmt.Sprintf("%.2f / %.2f", mean, p95)})
	}
	_, err := fmt.Fprintf(w, "%s\nticks: %d, last result: %s\n", t.Render(), snap.Ticks, snap.LastResult)
	return err
}

// formatBoard lays out an 81 digit solution as a 9x9 board.
func formatBoard(solution string) string {
	var sb strings.Builder
	for row := 0; row < 9; row++ {
		if row > 0 && row%3 == 0 {
			sb.WriteString("------+-------+------\n")
		}
		for col := 0; col < 9; col++ {
			if col > 0 && col%3 == 0 {
				sb.WriteString("| ")
			}
			sb.WriteByte(solution[row*9+col])
			if col < 8 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
