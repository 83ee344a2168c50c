// Package export writes trajectory diagrams as standalone SVG files.
package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/trace"
)

const (
	rayColor     = "#00ccff"
	blockedColor = "#ff4444"
	planeColor   = "#666688"
	background   = "#0a0a0a"
)

// TrajectorySVG renders the column side view (x horizontal, z top to
// bottom) as an SVG document. Rays are polylines; a ray blocked at some
// stage stops there and its last live segment is tinted.
func TrajectorySVG(traj *trace.Trajectory, col *column.Column, width, height int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))

	batches := traj.Batches
	if len(batches) == 0 {
		sb.WriteString("</svg>")
		return sb.String()
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
	px := func(x float64) float64 { return (x + maxX) / (2 * maxX) * float64(width) }
	py := func(z float64) float64 { return (z - col.SourceZ) / zSpan * float64(height) }

	for _, e := range col.Explicit {
		y := py(e.Z)
		sb.WriteString(fmt.Sprintf(
			`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="6 4" stroke-width="1"/>
`, y, width, y, planeColor))
		if e.Label != "" {
			sb.WriteString(fmt.Sprintf(`<text x="4" y="%.1f" fill="%s" font-size="11">%s</text>
`, y-3, planeColor, e.Label))
		}
	}

	n := batches[0].Len()
	for id := 0; id < n; id++ {
		var points []string
		blockedAt := -1
		for s, b := range batches {
			points = append(points, fmt.Sprintf("%.1f,%.1f", px(b.X[id]), py(b.Z)))
			if b.Blocked[id] {
				blockedAt = s
				break
			}
		}

		color := rayColor
		if blockedAt >= 0 {
			color = blockedColor
		}
		sb.WriteString(fmt.Sprintf(
			`<polyline fill="none" stroke="%s" stroke-width="1" points="%s"/>
`, color, strings.Join(points, " ")))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteSVG renders the trajectory to a file.
func WriteSVG(path string, traj *trace.Trajectory, col *column.Column, width, height int) error {
	return os.WriteFile(path, []byte(TrajectorySVG(traj, col, width, height)), 0644)
}
