package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/source"
	"github.com/temgo/temtrace/internal/trace"
)

func TestTrajectorySVG(t *testing.T) {
	lens, err := element.NewLens(5, 5)
	if err != nil {
		t.Fatal(err)
	}
	ap, err := element.NewAperture(3, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	col, err := column.Build([]element.Element{lens, ap}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	beam, err := source.Generate(source.Spec{Shape: source.Line, Count: 5, Radius: 4})
	if err != nil {
		t.Fatal(err)
	}
	res, err := trace.New().Trace(context.Background(), col, beam)
	if err != nil {
		t.Fatal(err)
	}

	svg := TrajectorySVG(res.Trajectory, col, 400, 600)

	if !strings.HasPrefix(svg, `<?xml version="1.0"`) || !strings.HasSuffix(svg, "</svg>") {
		t.Error("not a complete SVG document")
	}
	if got := strings.Count(svg, "<polyline"); got != 5 {
		t.Errorf("found %d polylines, want 5", got)
	}
	// The |x| > 2 rays block at the aperture and are tinted.
	if got := strings.Count(svg, blockedColor); got != 2 {
		t.Errorf("found %d blocked polylines, want 2", got)
	}
	// One dashed plane rule per explicit element.
	if got := strings.Count(svg, "stroke-dasharray"); got != 2 {
		t.Errorf("found %d plane rules, want 2", got)
	}

	path := filepath.Join(t.TempDir(), "rays.svg")
	if err := WriteSVG(path, res.Trajectory, col, 400, 600); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != svg {
		t.Error("file contents differ from rendered SVG")
	}
}
