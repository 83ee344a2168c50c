package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/metrics"
	"github.com/temgo/temtrace/internal/source"
	"github.com/temgo/temtrace/internal/trace"
)

func runFixture(t *testing.T) *trace.Result {
	t.Helper()
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

	tr := trace.New()
	tr.AddMetric(metrics.NewBlockedFraction())
	res, err := tr.Trace(context.Background(), col, beam)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	res := runFixture(t)
	runID, err := st.Save("test-layout", 0, 10, res)
	if err != nil {
		t.Fatal(err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Layout != "test-layout" || meta.Rays != 5 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Stages != len(res.Trajectory.Stages) {
		t.Errorf("stages = %d, want %d", meta.Stages, len(res.Trajectory.Stages))
	}
	if meta.Blocked != res.Blocked {
		t.Errorf("blocked = %d, want %d", meta.Blocked, res.Blocked)
	}

	snapshots, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != len(res.Trajectory.Batches) {
		t.Fatalf("loaded %d snapshots, want %d", len(snapshots), len(res.Trajectory.Batches))
	}
	for snap, rows := range snapshots {
		want := res.Trajectory.Batches[snap]
		if len(rows) != want.Len() {
			t.Fatalf("snapshot %d has %d rows, want %d", snap, len(rows), want.Len())
		}
		for _, row := range rows {
			if row.Blocked != want.Blocked[row.Ray] {
				t.Errorf("snapshot %d ray %d blocked mismatch", snap, row.Ray)
			}
		}
	}
}

func TestList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty store, got %d runs", len(runs))
	}

	res := runFixture(t)
	if _, err := st.Save("a", 0, 10, res); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Layout != "a" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	st := New(t.TempDir() + "/nope")
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %v", runs)
	}
}

func TestExportJSON(t *testing.T) {
	res := runFixture(t)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, "run1", "test-layout", res); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.ID != "run1" || data.Rays != 5 {
		t.Errorf("export = %+v", data)
	}
	if len(data.Z) != len(res.Trajectory.Batches) {
		t.Errorf("z has %d entries, want %d", len(data.Z), len(res.Trajectory.Batches))
	}
}
