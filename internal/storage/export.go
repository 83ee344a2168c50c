package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/temgo/temtrace/internal/trace"
)

type ExportData struct {
	ID       string             `json:"id"`
	Layout   string             `json:"layout"`
	Rays     int                `json:"rays"`
	Stages   int                `json:"stages"`
	Blocked  int                `json:"blocked"`
	Metrics  map[string]float64 `json:"metrics"`
	Z        []float64          `json:"z"`
	X        [][]float64        `json:"x"`
	Y        [][]float64        `json:"y"`
	BlockedS [][]bool           `json:"blocked_per_snapshot"`
}

func buildExport(id, layout string, result *trace.Result) ExportData {
	traj := result.Trajectory
	data := ExportData{
		ID:       id,
		Layout:   layout,
		Rays:     traj.Final().Len(),
		Stages:   len(traj.Stages),
		Blocked:  result.Blocked,
		Metrics:  result.Metrics,
		Z:        make([]float64, len(traj.Batches)),
		X:        make([][]float64, len(traj.Batches)),
		Y:        make([][]float64, len(traj.Batches)),
		BlockedS: make([][]bool, len(traj.Batches)),
	}
	for i, b := range traj.Batches {
		data.Z[i] = b.Z
		data.X[i] = b.X
		data.Y[i] = b.Y
		data.BlockedS[i] = b.Blocked
	}
	return data
}

func ExportJSON(w io.Writer, id, layout string, result *trace.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildExport(id, layout, result))
}

func ExportJSONStdout(id, layout string, result *trace.Result) error {
	return ExportJSON(os.Stdout, id, layout, result)
}
