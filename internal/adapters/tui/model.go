// Package tui provides the interactive renderer: a Bubble Tea program that
// keeps one row per package up to date while installs run.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/ui/output"
	"go.trai.ch/parcel/internal/ui/status"
	"go.trai.ch/parcel/internal/ui/style"
)

const (
	maxBarWidth     = 40
	barWidthDivisor = 3
)

// PackageStatus is the display state of a package row.
type PackageStatus string

const (
	// StatusActive means the package is being worked on.
	StatusActive PackageStatus = "Active"
	// StatusDone means the package reached a successful final state.
	StatusDone PackageStatus = "Done"
	// StatusCurrent means the package was already installed and current.
	StatusCurrent PackageStatus = "Current"
	// StatusFailed means the install aborted.
	StatusFailed PackageStatus = "Failed"
)

// PackageNode is one package row.
type PackageNode struct {
	Name    string
	Status  PackageStatus
	Line    string
	Written int64
	Total   int64
}

// SpanNode is one traced operation.
type SpanNode struct {
	Name  string
	Start time.Time
	End   time.Time
	Err   error
	Done  bool
}

// Model is the Bubble Tea model of the interactive renderer.
type Model struct {
	Packages   []*PackageNode
	PackageMap map[string]*PackageNode
	Spans      []*SpanNode
	SpanMap    map[string]*SpanNode
	Width      int

	spinner spinner.Model
	bar     progress.Model
}

// NewModel creates an empty model.
func NewModel() *Model {
	profile := output.ColorProfile()
	lipgloss.SetColorProfile(profile)

	return &Model{
		PackageMap: make(map[string]*PackageNode),
		SpanMap:    make(map[string]*SpanNode),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(activeStyle),
		),
		bar: progress.New(
			progress.WithSolidFill(string(style.Iris)),
			progress.WithColorProfile(profile),
			progress.WithWidth(maxBarWidth/2),
		),
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.bar.Width = min(msg.Width/barWidthDivisor, maxBarWidth)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MsgEvent:
		m.applyEvent(msg.Event)

	case MsgSpanStart:
		// Only top-level operations are summarized.
		if msg.ParentID == "" {
			span := &SpanNode{Name: msg.Name, Start: msg.StartTime}
			m.Spans = append(m.Spans, span)
			m.SpanMap[msg.SpanID] = span
		}

	case MsgSpanComplete:
		if span, ok := m.SpanMap[msg.SpanID]; ok {
			span.End = msg.EndTime
			span.Err = msg.Err
			span.Done = true
		}
	}

	return m, nil
}

func (m *Model) applyEvent(e domain.Event) {
	node, ok := m.PackageMap[e.Package]
	if !ok {
		node = &PackageNode{Name: e.Package}
		m.Packages = append(m.Packages, node)
		m.PackageMap[e.Package] = node
	}

	node.Line = status.Line(e)
	switch e.Kind {
	case domain.EventBeforeInstall, domain.EventBeforeDownload, domain.EventBeforeCleanup:
		node.Status = StatusActive
		node.Written, node.Total = 0, 0
	case domain.EventProgress:
		node.Status = StatusActive
		node.Written, node.Total = e.Written, e.Total
	case domain.EventAfterDownload:
		node.Status = StatusActive
	case domain.EventAfterInstall, domain.EventAfterCleanup:
		node.Status = StatusDone
	case domain.EventCurrent:
		node.Status = StatusCurrent
	case domain.EventInstallFailed:
		node.Status = StatusFailed
	}
}
