// Package storage persists propagation runs as directories holding a
// metadata header and the full trajectory table.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/temgo/temtrace/internal/trace"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Layout    string             `json:"layout"`
	Timestamp time.Time          `json:"timestamp"`
	Rays      int                `json:"rays"`
	Stages    int                `json:"stages"`
	SourceZ   float64            `json:"source_z"`
	DetectorZ float64            `json:"detector_z"`
	Blocked   int                `json:"blocked"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one run directory: metadata.json plus trajectory.csv with
// a row per ray per snapshot.
func (s *Store) Save(layout string, sourceZ, detectorZ float64, result *trace.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", layout, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	traj := result.Trajectory
	meta := RunMetadata{
		ID:        runID,
		Layout:    layout,
		Timestamp: time.Now(),
		Rays:      traj.Final().Len(),
		Stages:    len(traj.Stages),
		SourceZ:   sourceZ,
		DetectorZ: detectorZ,
		Blocked:   result.Blocked,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trajectory.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"snapshot", "z", "ray", "x", "y", "dx", "dy", "path", "blocked"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for snap, b := range traj.Batches {
		for i := range b.X {
			row := []string{
				strconv.Itoa(snap),
				strconv.FormatFloat(b.Z, 'f', 6, 64),
				strconv.Itoa(b.ID[i]),
				strconv.FormatFloat(b.X[i], 'f', 6, 64),
				strconv.FormatFloat(b.Y[i], 'f', 6, 64),
				strconv.FormatFloat(b.Dx[i], 'f', 6, 64),
				strconv.FormatFloat(b.Dy[i], 'f', 6, 64),
				strconv.FormatFloat(b.Path[i], 'f', 6, 64),
				strconv.FormatBool(b.Blocked[i]),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// RayRecord is one trajectory.csv row.
type RayRecord struct {
	Snapshot int
	Z        float64
	Ray      int
	X, Y     float64
	Dx, Dy   float64
	Path     float64
	Blocked  bool
}

// LoadTrajectory reads every trajectory row of a run, grouped by
// snapshot index in file order.
func (s *Store) LoadTrajectory(runID string) ([][]RayRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]RayRecord{}, nil
	}

	snapshots := make([][]RayRecord, 0)
	for _, rec := range records[1:] {
		if len(rec) < 9 {
			continue
		}
		row, err := parseRow(rec)
		if err != nil {
			continue
		}
		for row.Snapshot >= len(snapshots) {
			snapshots = append(snapshots, make([]RayRecord, 0))
		}
		snapshots[row.Snapshot] = append(snapshots[row.Snapshot], row)
	}
	return snapshots, nil
}

func parseRow(rec []string) (RayRecord, error) {
	var row RayRecord
	var err error
	if row.Snapshot, err = strconv.Atoi(rec[0]); err != nil {
		return row, err
	}
	if row.Z, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return row, err
	}
	if row.Ray, err = strconv.Atoi(rec[2]); err != nil {
		return row, err
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		if vals[i], err = strconv.ParseFloat(rec[3+i], 64); err != nil {
			return row, err
		}
	}
	row.X, row.Y, row.Dx, row.Dy, row.Path = vals[0], vals[1], vals[2], vals[3], vals[4]
	if row.Blocked, err = strconv.ParseBool(rec[8]); err != nil {
		return row, err
	}
	return row, nil
}
