package app

import (
	"context"

	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
)

// ListFilter selects which packages List returns.
type ListFilter int

const (
	// ListAll returns every catalog entry.
	ListAll ListFilter = iota
	// ListInstalled returns installed catalog entries.
	ListInstalled
	// ListOutdated returns installed entries whose catalog descriptor changed.
	ListOutdated
)

// PackageInfo is one row of a package listing.
type PackageInfo struct {
	Name      string
	File      string
	Size      int64
	Depth     int
	Installed bool
	Current   bool
}

// List returns catalog entries in catalog order, nested entries following
// their parent.
func (a *App) List(ctx context.Context, o domain.Overrides, filter ListFilter) ([]PackageInfo, error) {
	inst, err := a.quiet(ctx, o)
	if err != nil {
		return nil, err
	}

	var out []PackageInfo
	for node := range inst.Catalog().Traverse() {
		status, err := inst.Status(node.Name())
		if err != nil {
			return nil, err
		}

		info := PackageInfo{
			Name:      node.Name(),
			File:      node.File(),
			Size:      node.Size(),
			Depth:     len(node.Ancestors()) - 1,
			Installed: status.Receipt != nil,
			Current:   status.Current,
		}

		switch filter {
		case ListInstalled:
			if !info.Installed {
				continue
			}
		case ListOutdated:
			if !info.Installed || info.Current {
				continue
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// Details describes one package for the info command.
type Details struct {
	Spec      domain.PackageSpec
	Chain     []string
	Receipt   *domain.Receipt
	Current   bool
	Catalog   CatalogInfo
	PayloadAt string
}

// CatalogInfo summarizes the loaded catalog.
type CatalogInfo struct {
	Format      string
	Packages    int
	Fingerprint uint64
}

// Info describes the package identified by a name or any of its hashes.
func (a *App) Info(ctx context.Context, o domain.Overrides, id string) (*Details, error) {
	inst, err := a.quiet(ctx, o)
	if err != nil {
		return nil, err
	}

	status, err := inst.Status(id)
	if err != nil {
		return nil, err
	}

	cat := inst.Catalog()
	d := &Details{
		Spec:    status.Node.Spec(),
		Chain:   chainNames(status.Node),
		Receipt: status.Receipt,
		Current: status.Current,
		Catalog: CatalogInfo{
			Format:      cat.Format(),
			Packages:    cat.Len(),
			Fingerprint: cat.Fingerprint(),
		},
	}
	d.Spec.Packages = nil
	if status.Receipt != nil {
		d.PayloadAt = inst.Layout().PayloadPath(status.Receipt.Name, status.Receipt.File)
	}
	return d, nil
}

func chainNames(node *catalog.Node) []string {
	chain := node.Ancestors()
	names := make([]string, len(chain))
	for i, n := range chain {
		names[i] = n.Name()
	}
	return names
}
