package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/optics"
	"github.com/temgo/temtrace/internal/trace"
)

const (
	diagramWidth  = 60
	diagramHeight = 22
)

// Model is the interactive column view. Every parameter edit builds a
// new immutable column and re-traces the stored initial batch; the
// engine itself is never mutated mid-run.
type Model struct {
	layout   string
	original *column.Column
	col      *column.Column
	beam     *optics.Batch
	result   *trace.Result
	selected int
	editErr  error
	showHelp bool
}

// NewModel traces the initial batch once and is ready to display.
func NewModel(layout string, col *column.Column, beam *optics.Batch) (Model, error) {
	res, err := trace.New().Trace(context.Background(), col, beam)
	if err != nil {
		return Model{}, err
	}
	return Model{
		layout:   layout,
		original: col,
		col:      col,
		beam:     beam,
		result:   res,
	}, nil
}

// Run launches the bubbletea program for the model.
func Run(layout string, col *column.Column, beam *optics.Batch) error {
	m, err := NewModel(layout, col, beam)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if n := len(m.col.Explicit); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case "up", "k":
			m.adjust(1.05)
		case "down", "j":
			m.adjust(0.95)
		case "r":
			m.col = m.original
			m.retrace()
		case "?":
			m.showHelp = !m.showHelp
		}
	}
	return m, nil
}

// adjust scales the selected element's primary parameter and re-traces.
// An invalid edit is reported and discarded, leaving the last valid
// column in place.
func (m *Model) adjust(factor float64) {
	if len(m.col.Explicit) == 0 {
		return
	}
	e := m.col.Explicit[m.selected]

	switch e.Kind {
	case element.Lens:
		e.Focal *= factor
	case element.Aperture:
		e.RadiusOuter *= factor
	case element.Deflector:
		if e.TiltX == 0 {
			e.TiltX = 0.001
		}
		e.TiltX *= factor
	case element.Biprism:
		e.Deflection *= factor
	default:
		return
	}

	edited, err := m.col.WithElement(m.selected, e)
	if err != nil {
		m.editErr = err
		return
	}
	m.editErr = nil
	m.col = edited
	m.retrace()
}

func (m *Model) retrace() {
	res, err := trace.New().Trace(context.Background(), m.col, m.beam)
	if err != nil {
		m.editErr = err
		return
	}
	m.result = res
}

func (m Model) View() string {
	canvas := RayDiagram(m.result.Trajectory, m.col, diagramWidth, diagramHeight)
	diagram := canvasStyle.Render(canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.layout)) + "\n")

	final := m.result.Trajectory.Final()
	s.WriteString(labelStyle.Render("Rays") + valueStyle.Render(fmt.Sprintf("%d", final.Len())) + "\n")
	s.WriteString(labelStyle.Render("Stages") + valueStyle.Render(fmt.Sprintf("%d", len(m.result.Trajectory.Stages))) + "\n")
	s.WriteString(labelStyle.Render("Spot (rms)") + valueStyle.Render(fmt.Sprintf("%.4f", final.RMSRadius())) + "\n")
	blocked := fmt.Sprintf("%d", m.result.Blocked)
	if m.result.Blocked > 0 {
		s.WriteString(labelStyle.Render("Blocked") + blockedStyle.Render(blocked) + "\n")
	} else {
		s.WriteString(labelStyle.Render("Blocked") + valueStyle.Render(blocked) + "\n")
	}

	s.WriteString("\nELEMENTS\n")
	for i, e := range m.col.Explicit {
		line := elementLine(e)
		if i == m.selected {
			s.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	if len(m.col.Explicit) == 0 {
		s.WriteString(labelStyle.Render("  (empty column)") + "\n")
	}

	if m.editErr != nil {
		s.WriteString("\n" + blockedStyle.Render("edit rejected: "+m.editErr.Error()) + "\n")
	}

	if env := Envelope(m.result.Trajectory); len(env) > 1 {
		s.WriteString(graphStyle.Render(envelopeChart(env)) + "\n")
	}

	s.WriteString(helpStyle.Render("tab:select  ↑↓:tune  r:reset  ?:help  q:quit"))
	panel := panelStyle.Render(s.String())

	view := lipgloss.JoinHorizontal(lipgloss.Top, diagram, panel)
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

func elementLine(e element.Element) string {
	name := e.Label
	if name == "" {
		name = e.Kind.String()
	}
	switch e.Kind {
	case element.Lens:
		return fmt.Sprintf("%-18s z=%-5.2f f=%.3f", name, e.Z, e.Focal)
	case element.Aperture:
		return fmt.Sprintf("%-18s z=%-5.2f r=%.3f", name, e.Z, e.RadiusOuter)
	case element.Deflector:
		return fmt.Sprintf("%-18s z=%-5.2f tilt=%.4f", name, e.Z, e.TiltX)
	case element.Biprism:
		return fmt.Sprintf("%-18s z=%-5.2f defl=%.4f", name, e.Z, e.Deflection)
	default:
		return fmt.Sprintf("%-18s z=%-5.2f", name, e.Z)
	}
}

const helpText = `
  tab        select next element
  up/k       increase selected parameter (+5%)
  down/j     decrease selected parameter (-5%)
  r          restore the original column
  ?          toggle this help
  q          quit
`
