package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.trai.ch/parcel/internal/app"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/ui/status"
	"go.trai.ch/parcel/internal/ui/style"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(style.Iris).PaddingRight(2)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	keyStyle    = lipgloss.NewStyle().Foreground(style.Slate).Width(10)
)

func printReport(w io.Writer, r domain.DiffReport) {
	if r.Empty() {
		_, _ = fmt.Fprintln(w, "Catalog is up to date.")
		return
	}

	_, _ = fmt.Fprintf(w, "Catalog updated: %d added, %d updated, %d removed.\n",
		len(r.Added), len(r.Updated), len(r.Removed))
	for _, name := range r.Added {
		_, _ = fmt.Fprintf(w, "  + %s\n", name)
	}
	for _, name := range r.Updated {
		_, _ = fmt.Fprintf(w, "  ~ %s\n", name)
	}
	for _, name := range r.Removed {
		_, _ = fmt.Fprintf(w, "  - %s\n", name)
	}
}

func printList(w io.Writer, pkgs []app.PackageInfo) {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("NAME", "FILE", "SIZE", "STATUS")

	for _, p := range pkgs {
		t.Row(
			strings.Repeat("  ", p.Depth)+p.Name,
			p.File,
			status.Size(p.Size),
			installState(p),
		)
	}

	_, _ = fmt.Fprintln(w, t.Render())
}

func installState(p app.PackageInfo) string {
	switch {
	case !p.Installed:
		return style.Circle + " available"
	case p.Current:
		return style.Check + " installed"
	default:
		return style.Warning + " outdated"
	}
}

func printDetails(w io.Writer, d *app.Details) {
	field := func(key, value string) {
		if value == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", keyStyle.Render(key), value)
	}

	field("name", d.Spec.Name)
	field("file", d.Spec.File)
	field("size", fmt.Sprintf("%s (%d bytes)", status.Size(d.Spec.Size), d.Spec.Size))
	field("sha256", d.Spec.Sha256)
	field("sha1", d.Spec.Sha1)
	field("md5", d.Spec.Md5)
	field("source", d.Spec.Source)
	field("zipped", d.Spec.Zipped)
	field("chain", strings.Join(d.Chain, " "+style.Arrow+" "))

	switch {
	case d.Receipt == nil:
		field("state", "not installed")
	case d.Current:
		field("state", "installed")
	default:
		field("state", "outdated")
	}
	field("payload", d.PayloadAt)
	field("catalog", fmt.Sprintf("format %s, %d packages, fingerprint %016x",
		d.Catalog.Format, d.Catalog.Packages, d.Catalog.Fingerprint))
}
