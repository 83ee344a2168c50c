package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/optics"
	"github.com/temgo/temtrace/internal/trace"
)

// RayDiagram rasterizes the column side view: z runs top to bottom the
// way TEM columns are drawn, x spans the horizontal axis. Ray polylines
// stop at the stage where the ray was blocked; explicit element planes
// are drawn as dashed rules.
func RayDiagram(traj *trace.Trajectory, col *column.Column, width, height int) *Canvas {
	c := NewCanvas(width, height)
	batches := traj.Batches
	if len(batches) == 0 {
		return c
	}

	maxX := 0.0
	for _, b := range batches {
		for _, x := range b.X {
			if v := math.Abs(x); v > maxX {
				maxX = v
			}
		}
	}
	if maxX == 0 {
		maxX = 1
	}
	maxX *= 1.2

	zSpan := col.DetectorZ - col.SourceZ
	toDot := func(x, z float64) (int, int) {
		px := int((x + maxX) / (2 * maxX) * float64(c.DotWidth()-1))
		py := int((z - col.SourceZ) / zSpan * float64(c.DotHeight()-1))
		return px, py
	}

	for _, e := range col.Explicit {
		_, py := toDot(0, e.Z)
		c.DrawHLine(py, true)
	}

	n := batches[0].Len()
	for id := 0; id < n; id++ {
		for s := 1; s < len(batches); s++ {
			prev, cur := batches[s-1], batches[s]
			if prev.Blocked[id] {
				break
			}
			x0, y0 := toDot(prev.X[id], prev.Z)
			x1, y1 := toDot(cur.X[id], cur.Z)
			c.DrawLine(x0, y0, x1, y1)
		}
	}

	return c
}

// Envelope returns the RMS beam radius at every snapshot, in z-order.
func Envelope(traj *trace.Trajectory) []float64 {
	env := make([]float64, len(traj.Batches))
	for i, b := range traj.Batches {
		env[i] = b.RMSRadius()
	}
	return env
}

// EnvelopePlot renders the beam envelope as an asciigraph chart.
func EnvelopePlot(traj *trace.Trajectory, width, height int) string {
	return asciigraph.Plot(Envelope(traj),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("rms beam radius vs stage"),
	)
}

// envelopeChart is the compact envelope panel used by the live view.
func envelopeChart(env []float64) string {
	return asciigraph.Plot(env,
		asciigraph.Height(5),
		asciigraph.Width(34),
		asciigraph.Caption("beam envelope"),
	)
}

// SpotDiagram scatter-plots the unblocked rays of a batch, typically
// the detector plane. Blocked rays are omitted.
func SpotDiagram(b *optics.Batch, width, height int) string {
	maxR := 0.0
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		if v := math.Max(math.Abs(b.X[i]), math.Abs(b.Y[i])); v > maxR {
			maxR = v
		}
	}
	if maxR == 0 {
		maxR = 1
	}
	maxR *= 1.1

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	plotted := 0
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		px := int((b.X[i] + maxR) / (2 * maxR) * float64(width-1))
		py := int((b.Y[i] + maxR) / (2 * maxR) * float64(height-1))
		py = height - 1 - py
		if px >= 0 && px < width && py >= 0 && py < height {
			grid[py][px] = '*'
			plotted++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%6.3f ┌%s┐\n", maxR, strings.Repeat("─", width)))
	for i := range grid {
		if i == height/2 {
			sb.WriteString(" 0.000 │")
		} else {
			sb.WriteString("       │")
		}
		sb.WriteString(string(grid[i]))
		sb.WriteString("│\n")
	}
	sb.WriteString(fmt.Sprintf("%6.3f └%s┘\n", -maxR, strings.Repeat("─", width)))
	sb.WriteString(fmt.Sprintf("       %d rays at z=%.3g (%d blocked upstream)\n",
		plotted, b.Z, b.BlockedCount()))
	return sb.String()
}
