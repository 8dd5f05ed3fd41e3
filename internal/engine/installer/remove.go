package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/parcel/internal/adapters/fs"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/zerr"
)

// Remove deletes an installed package and reports whether anything was present.
// The metadata directory goes first so an interrupted removal never looks installed.
func (i *Installer) Remove(ctx context.Context, id string) (bool, error) {
	_, span := i.tracer.Start(ctx, "remove "+id)
	defer span.End()

	name, err := i.localName(id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	removed, err := i.removePackage(name)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttribute("parcel.removed", removed)
	return removed, nil
}

// Cleanup removes every package directory the loaded catalog does not list,
// emitting before and after events per removal, and purges stray scratch
// directories left by interrupted installs. It returns the removed names.
func (i *Installer) Cleanup(ctx context.Context, obs ports.Observer) ([]string, error) {
	if obs == nil {
		obs = nopObserver{}
	}

	_, span := i.tracer.Start(ctx, "cleanup")
	defer span.End()

	if !i.catalog.Loaded() {
		err := zerr.Wrap(domain.ErrNotLoaded, "catalog has not been loaded")
		span.RecordError(err)
		return nil, err
	}

	names, err := i.localPackages()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var removed []string
	var errs []error
	for _, name := range names {
		node, err := i.catalog.ByName(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if node != nil {
			if err := i.purgeScratch(name); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		obs.OnEvent(domain.Event{Kind: domain.EventBeforeCleanup, Package: name})
		if _, err := i.removePackage(name); err != nil {
			errs = append(errs, err)
			continue
		}
		obs.OnEvent(domain.Event{Kind: domain.EventAfterCleanup, Package: name})
		removed = append(removed, name)
	}

	span.SetAttribute("parcel.removed", len(removed))
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return removed, err
	}
	return removed, nil
}

func (i *Installer) removePackage(name string) (bool, error) {
	metaRemoved, err := fs.RemoveIfExists(i.layout.MetaDir(name))
	if err != nil {
		return false, errors.Join(domain.ErrRemoveFailed, zerr.With(zerr.Wrap(err, "failed to remove metadata"), "package", name))
	}

	dirRemoved, err := fs.RemoveIfExists(i.layout.PackageDir(name))
	if err != nil {
		return false, errors.Join(domain.ErrRemoveFailed, zerr.With(zerr.Wrap(err, "failed to remove package directory"), "package", name))
	}

	return metaRemoved || dirRemoved, nil
}

// purgeScratch removes leftover install-* directories of a listed package.
func (i *Installer) purgeScratch(name string) error {
	metaDir := i.layout.MetaDir(name)
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to list metadata directory"), "path", metaDir)
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), domain.TempDirPrefix) {
			continue
		}
		if _, err := fs.RemoveIfExists(filepath.Join(metaDir, e.Name())); err != nil {
			return errors.Join(domain.ErrRemoveFailed, zerr.With(zerr.Wrap(err, "failed to remove scratch directory"), "package", name))
		}
	}
	return nil
}
