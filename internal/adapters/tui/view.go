package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/parcel/internal/ui/status"
	"go.trai.ch/parcel/internal/ui/style"
)

// View renders one row per package followed by a summary of every finished
// operation.
func (m *Model) View() string {
	var s strings.Builder

	for _, node := range m.Packages {
		s.WriteString(m.renderPackageRow(node) + "\n")
	}

	for _, span := range m.Spans {
		if !span.Done {
			continue
		}
		icon, st := style.Check, doneStyle
		if span.Err != nil {
			icon, st = style.Cross, failedStyle
		}
		summary := status.Completion(span.Name, span.End.Sub(span.Start), span.Err)
		s.WriteString(st.Render(icon) + " " + span.Name + " " + summaryStyle.Render(summary) + "\n")
	}

	return s.String()
}

func (m *Model) renderPackageRow(node *PackageNode) string {
	icon, st := m.packageIcon(node)
	row := st.Render(icon) + " " + nameStyle.Render(node.Name) + " " + node.Line

	if node.Status == StatusActive && node.Total > 0 {
		row = lipgloss.JoinHorizontal(lipgloss.Top, row, "  ", m.bar.ViewAs(fraction(node.Written, node.Total)))
	}
	return row
}

func (m *Model) packageIcon(node *PackageNode) (string, lipgloss.Style) {
	switch node.Status {
	case StatusDone:
		return style.Check, doneStyle
	case StatusFailed:
		return style.Cross, failedStyle
	case StatusCurrent:
		return style.Circle, currentStyle
	default:
		return m.spinner.View(), activeStyle
	}
}

func fraction(written, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(written) / float64(total)
	return min(f, 1)
}
