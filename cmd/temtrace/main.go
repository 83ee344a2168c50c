package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/config"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/export"
	"github.com/temgo/temtrace/internal/metrics"
	"github.com/temgo/temtrace/internal/optics"
	"github.com/temgo/temtrace/internal/source"
	"github.com/temgo/temtrace/internal/storage"
	"github.com/temgo/temtrace/internal/sweep"
	"github.com/temgo/temtrace/internal/trace"
	"github.com/temgo/temtrace/internal/viz"
)

var (
	dataDir    string
	configFile string
	rayCount   int
	beamShape  string
	beamRadius float64
	randomBeam bool
	seed       int64
	voltage    float64
	svgOut     string
	svgWidth   int
	svgHeight  int
	lensIndex  int
	focalMin   float64
	focalMax   float64
	focalSteps int
	scanPoints int
	scanTilt   float64
)

// main registers commands and flags and executes the root command. With
// no subcommand it opens the interactive column editor on the default
// layout. It exits with status 1 if command execution returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:   "temtrace",
		Short: "electron optics ray tracing lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, []string{"single-lens"})
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".temtrace", "data directory")

	traceCmd := &cobra.Command{
		Use:   "trace [layout]",
		Short: "trace a beam through a column",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrace,
	}
	addBeamFlags(traceCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot beam envelope of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	spotCmd := &cobra.Command{
		Use:   "spot [run_id]",
		Short: "spot diagram at the detector of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  spotRun,
	}

	diagramCmd := &cobra.Command{
		Use:   "diagram [layout]",
		Short: "trace and draw the ray diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE:  drawDiagram,
	}
	addBeamFlags(diagramCmd)

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [layout]",
		Short: "trace and write an SVG ray diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSVG,
	}
	addBeamFlags(exportSVGCmd)
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "trace.svg", "output file")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	focusCmd := &cobra.Command{
		Use:   "focus [layout]",
		Short: "sweep a lens focal length for the tightest spot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  focusSweep,
	}
	addBeamFlags(focusCmd)
	focusCmd.Flags().IntVar(&lensIndex, "lens", -1, "lens index in the layout (-1 = first lens)")
	focusCmd.Flags().Float64Var(&focalMin, "min", 0.5, "smallest focal length")
	focusCmd.Flags().Float64Var(&focalMax, "max", 10.0, "largest focal length")
	focusCmd.Flags().IntVar(&focalSteps, "steps", 40, "sweep steps")

	scanCmd := &cobra.Command{
		Use:   "scan [layout]",
		Short: "sweep a double-deflector scan across the detector",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	addBeamFlags(scanCmd)
	scanCmd.Flags().IntVar(&scanPoints, "points", 9, "scan positions")
	scanCmd.Flags().Float64Var(&scanTilt, "tilt", 0.02, "maximum scan tilt")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in column layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("%-14s %d elements, detector at z=%g\n",
					name, len(cfg.Column.Elements), cfg.Column.DetectorZ)
			}
			return nil
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [layout]",
		Short: "interactive column editor with live retrace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addBeamFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [layout]",
		Short: "benchmark tracing at several beam sizes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchLayout,
	}

	wavelengthCmd := &cobra.Command{
		Use:   "wavelength [voltage]",
		Short: "de Broglie electron wavelength for a gun voltage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phi, err := strconv.ParseFloat(args[0], 64)
			if err != nil || phi <= 0 {
				return fmt.Errorf("bad voltage: %s", args[0])
			}
			lambda := optics.Wavelength(phi)
			fmt.Printf("voltage:    %.0f V\n", phi)
			fmt.Printf("wavelength: %.4f pm\n", lambda*1e12)
			return nil
		},
	}

	rootCmd.AddCommand(traceCmd, listCmd, plotCmd, spotCmd, diagramCmd,
		exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd,
		focusCmd, scanCmd, presetsCmd, liveCmd, benchCmd, wavelengthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addBeamFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "column config file (yaml)")
	cmd.Flags().IntVar(&rayCount, "rays", 0, "number of rays")
	cmd.Flags().StringVar(&beamShape, "shape", "", "beam shape (point, parallel, grid, line)")
	cmd.Flags().Float64Var(&beamRadius, "radius", 0, "beam radius or cone semiangle")
	cmd.Flags().BoolVar(&randomBeam, "random", false, "random disc sampling instead of rings")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random sampling seed")
	cmd.Flags().Float64Var(&voltage, "voltage", 0, "gun voltage override")
}

// loadLayout resolves the effective config: preset by name, then a
// config file if given, then explicit beam flags on top.
func loadLayout(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := "single-lens"
	if len(args) > 0 {
		name = args[0]
	}

	cfg := config.GetPreset(name)
	if cfg == nil && configFile == "" {
		return nil, fmt.Errorf("unknown layout: %s (available: %v)", name, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("rays") {
		cfg.Beam.Count = rayCount
	}
	if cmd.Flags().Changed("shape") {
		cfg.Beam.Shape = beamShape
	}
	if cmd.Flags().Changed("radius") {
		cfg.Beam.Radius = beamRadius
	}
	if cmd.Flags().Changed("random") {
		cfg.Beam.Random = randomBeam
	}
	if cmd.Flags().Changed("seed") {
		cfg.Beam.Seed = seed
	}
	if cmd.Flags().Changed("voltage") {
		cfg.Voltage = voltage
	}

	return cfg, nil
}

func buildRun(cfg *config.Config) (*column.Column, *optics.Batch, error) {
	col, err := cfg.BuildColumn()
	if err != nil {
		return nil, nil, err
	}
	spec, err := cfg.BeamSpec()
	if err != nil {
		return nil, nil, err
	}
	beam, err := source.Generate(spec)
	if err != nil {
		return nil, nil, err
	}
	return col, beam, nil
}

func newTracer() *trace.Tracer {
	tr := trace.New()
	tr.AddMetric(metrics.NewSpotRadius())
	tr.AddMetric(metrics.NewMinSpot())
	tr.AddMetric(metrics.NewBlockedFraction())
	return tr
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := loadLayout(cmd, args)
	if err != nil {
		return err
	}
	col, beam, err := buildRun(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("tracing %s: %d rays, %d stages...\n", cfg.Name, beam.Len(), len(col.Stages))
	start := time.Now()

	result, err := newTracer().Trace(context.Background(), col, beam)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Name, col.SourceZ, col.DetectorZ, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("blocked: %d of %d\n", result.Blocked, beam.Len())
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLAYOUT\tTIME\tRAYS\tSTAGES\tBLOCKED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.Layout,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Rays,
			run.Stages,
			run.Blocked,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	snapshots, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("layout: %s\n", meta.Layout)
	fmt.Printf("snapshots: %d\n\n", len(snapshots))

	env := make([]float64, len(snapshots))
	blocked := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		var sum float64
		var live int
		for _, r := range snap {
			if r.Blocked {
				blocked[i]++
				continue
			}
			sum += r.X*r.X + r.Y*r.Y
			live++
		}
		if live > 0 {
			env[i] = math.Sqrt(sum / float64(live))
		}
	}

	fmt.Println(asciigraph.Plot(env,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("rms beam radius vs z"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(blocked,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("blocked rays vs z"),
	))

	return nil
}

func spotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	snapshots, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no data to plot")
	}

	final := batchFromRecords(snapshots[len(snapshots)-1])
	fmt.Println(viz.SpotDiagram(final, 70, 24))
	return nil
}

// batchFromRecords rebuilds one snapshot batch from its stored rows.
func batchFromRecords(records []storage.RayRecord) *optics.Batch {
	b := optics.NewBatch(len(records))
	for i, r := range records {
		b.Z = r.Z
		b.X[i] = r.X
		b.Y[i] = r.Y
		b.Dx[i] = r.Dx
		b.Dy[i] = r.Dy
		b.Path[i] = r.Path
		b.ID[i] = r.Ray
		b.Blocked[i] = r.Blocked
	}
	return b
}

func drawDiagram(cmd *cobra.Command, args []string) error {
	cfg, err := loadLayout(cmd, args)
	if err != nil {
		return err
	}
	col, beam, err := buildRun(cfg)
	if err != nil {
		return err
	}

	result, err := newTracer().Trace(context.Background(), col, beam)
	if err != nil {
		return err
	}

	fmt.Println(viz.RayDiagram(result.Trajectory, col, 40, 28).String())
	fmt.Println()
	fmt.Println(viz.EnvelopePlot(result.Trajectory, 70, 10))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	snapshots, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"snapshot", "z", "ray", "x", "y", "dx", "dy", "path", "blocked"}); err != nil {
		return err
	}
	for _, snap := range snapshots {
		for _, r := range snap {
			row := []string{
				strconv.Itoa(r.Snapshot),
				strconv.FormatFloat(r.Z, 'f', 6, 64),
				strconv.Itoa(r.Ray),
				strconv.FormatFloat(r.X, 'f', 6, 64),
				strconv.FormatFloat(r.Y, 'f', 6, 64),
				strconv.FormatFloat(r.Dx, 'f', 6, 64),
				strconv.FormatFloat(r.Dy, 'f', 6, 64),
				strconv.FormatFloat(r.Path, 'f', 6, 64),
				strconv.FormatBool(r.Blocked),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	snapshots, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no data to export")
	}

	traj := &trace.Trajectory{
		Batches: make([]*optics.Batch, len(snapshots)),
		Stages:  make([]element.Element, meta.Stages),
	}
	for i, snap := range snapshots {
		traj.Batches[i] = batchFromRecords(snap)
	}

	result := &trace.Result{
		Trajectory: traj,
		Metrics:    meta.Metrics,
		Blocked:    meta.Blocked,
	}

	return storage.ExportJSONStdout(meta.ID, meta.Layout, result)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	cfg, err := loadLayout(cmd, args)
	if err != nil {
		return err
	}
	col, beam, err := buildRun(cfg)
	if err != nil {
		return err
	}

	result, err := newTracer().Trace(context.Background(), col, beam)
	if err != nil {
		return err
	}

	if err := export.WriteSVG(svgOut, result.Trajectory, col, svgWidth, svgHeight); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d rays, %d stages)\n", svgOut, beam.Len(), len(col.Stages))
	return nil
}

func focusSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadLayout(cmd, args)
	if err != nil {
		return err
	}
	col, beam, err := buildRun(cfg)
	if err != nil {
		return err
	}

	idx := lensIndex
	if idx < 0 {
		for i, e := range col.Explicit {
			if e.Kind == element.Lens {
				idx = i
				break
			}
		}
	}
	if idx < 0 || idx >= len(col.Explicit) || col.Explicit[idx].Kind != element.Lens {
		return fmt.Errorf("layout %s has no lens at index %d", cfg.Name, idx)
	}
	if focalSteps < 2 || focalMax <= focalMin {
		return fmt.Errorf("bad sweep range [%g, %g] with %d steps", focalMin, focalMax, focalSteps)
	}

	focals := make([]float64, focalSteps)
	step := (focalMax - focalMin) / float64(focalSteps-1)
	for i := range focals {
		focals[i] = focalMin + float64(i)*step
	}

	fmt.Printf("sweeping %s lens %d over [%g, %g] in %d steps...\n",
		cfg.Name, idx, focalMin, focalMax, focalSteps)

	best, spot, err := sweep.Focus(context.Background(), col, idx, focals, beam)
	if err != nil {
		return err
	}

	fmt.Printf("best focal length: %.4f\n", best)
	fmt.Printf("spot rms radius:   %.6f\n", spot)
	return nil
}

// runScan replaces the layout's deflector pair with pivot-ratio scan
// settings and traces every position concurrently. The -2 tilt ratio
// puts the pivot point at z2+(z2-z1), past the lower deflector.
func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadLayout(cmd, args)
	if err != nil {
		return err
	}
	col, beam, err := buildRun(cfg)
	if err != nil {
		return err
	}

	i1, i2 := -1, -1
	for i, e := range col.Explicit {
		if e.Kind != element.Deflector {
			continue
		}
		if i1 < 0 {
			i1 = i
		} else {
			i2 = i
			break
		}
	}
	if i2 < 0 {
		return fmt.Errorf("layout %s needs two deflectors to scan", cfg.Name)
	}
	if scanPoints < 2 {
		return fmt.Errorf("need at least 2 scan points, got %d", scanPoints)
	}

	z1, z2 := col.Explicit[i1].Z, col.Explicit[i2].Z
	tilts := make([]float64, scanPoints)
	variants := make([]*column.Column, scanPoints)
	for i := range tilts {
		tilts[i] = -scanTilt + 2*scanTilt*float64(i)/float64(scanPoints-1)
		pair, err := element.NewDoubleDeflector(z1, z2, tilts[i], -2*tilts[i])
		if err != nil {
			return err
		}
		v, err := col.WithElement(i1, pair[0])
		if err != nil {
			return err
		}
		if v, err = v.WithElement(i2, pair[1]); err != nil {
			return err
		}
		variants[i] = v
	}

	results, err := trace.NewEnsemble(variants, newTracer).Run(context.Background(), beam)
	if err != nil {
		return err
	}

	fmt.Printf("scanning %s: %d positions, tilt ±%g\n\n", cfg.Name, scanPoints, scanTilt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TILT\tCENTROID X\tSPOT RMS\tBLOCKED")

	for i, res := range results {
		final := res.Trajectory.Final()
		var cx float64
		var live int
		for j := range final.X {
			if final.Blocked[j] {
				continue
			}
			cx += final.X[j]
			live++
		}
		if live > 0 {
			cx /= float64(live)
		}
		fmt.Fprintf(w, "%+.4f\t%+.4f\t%.4f\t%d\n", tilts[i], cx, final.RMSRadius(), res.Blocked)
	}

	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadLayout(cmd, args)
	if err != nil {
		return err
	}
	col, beam, err := buildRun(cfg)
	if err != nil {
		return err
	}
	return viz.Run(cfg.Name, col, beam)
}

func benchLayout(cmd *cobra.Command, args []string) error {
	name := "tem"
	if len(args) > 0 {
		name = args[0]
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return fmt.Errorf("unknown layout: %s", name)
	}

	col, err := cfg.BuildColumn()
	if err != nil {
		return err
	}

	counts := []int{100, 1000, 10000, 100000}

	fmt.Printf("benchmarking %s (%d stages)\n\n", name, len(col.Stages))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RAYS\tTIME\tRAYS/SEC")

	for _, n := range counts {
		spec, err := cfg.BeamSpec()
		if err != nil {
			return err
		}
		spec.Count = n
		beam, err := source.Generate(spec)
		if err != nil {
			return err
		}

		start := time.Now()
		if _, err := trace.New().Trace(context.Background(), col, beam); err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%d\t%v\t%.0f\n", beam.Len(), elapsed, float64(beam.Len())/elapsed.Seconds())
	}

	return w.Flush()
}
