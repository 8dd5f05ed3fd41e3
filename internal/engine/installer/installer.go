// Package installer implements the install pipeline: resolving a package's
// ancestor chain, extracting its bytes from the root resource through the
// slice and decompression chain, verifying them, and committing atomically.
package installer

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/zerr"
)

// State is a step of the per-install state machine.
type State string

const (
	// StateIdle is the state before an install starts.
	StateIdle State = "Idle"
	// StateResolving maps the identifier to a catalog entry and checks its receipt.
	StateResolving State = "Resolving"
	// StateCurrentSkip means the package was already installed and current.
	StateCurrentSkip State = "CurrentSkip"
	// StateDownloading streams the extracted bytes into the scratch directory.
	StateDownloading State = "Downloading"
	// StateVerifying checks the size and sha256 of the downloaded payload.
	StateVerifying State = "Verifying"
	// StateCommitting moves the payload into place and writes the receipt.
	StateCommitting State = "Committing"
	// StateDone means the install committed.
	StateDone State = "Done"
	// StateFailed means the install aborted and left the tree unchanged.
	StateFailed State = "Failed"
)

// Result describes the outcome of one install within a batch.
type Result struct {
	Package   string
	Processed []string
	State     State
	Err       error
}

// Status describes how a catalog entry relates to the local tree.
type Status struct {
	Node    *catalog.Node
	Receipt *domain.Receipt
	Current bool
}

// Installer drives installs, removals and cleanups below one root.
// Concurrent conflicting operations against the same root are not
// serialized; callers must not overlap them.
type Installer struct {
	catalog    *catalog.Catalog
	transport  ports.Transport
	receipts   ports.ReceiptStore
	hasher     ports.Hasher
	tracer     ports.Tracer
	layout     domain.Layout
	catalogURL string
	headers    map[string]string
}

// New creates an Installer for the configured root.
func New(
	cat *catalog.Catalog,
	transport ports.Transport,
	receipts ports.ReceiptStore,
	hasher ports.Hasher,
	tracer ports.Tracer,
	cfg *domain.Config,
) *Installer {
	return &Installer{
		catalog:    cat,
		transport:  transport,
		receipts:   receipts,
		hasher:     hasher,
		tracer:     tracer,
		layout:     domain.NewLayout(cfg.Root),
		catalogURL: cfg.CatalogURL,
		headers:    cfg.Headers,
	}
}

// Catalog returns the catalog the installer resolves against.
func (i *Installer) Catalog() *catalog.Catalog {
	return i.catalog
}

// Layout returns the on-disk layout of the installation root.
func (i *Installer) Layout() domain.Layout {
	return i.layout
}

// Update fetches the catalog text, loads it and persists it.
func (i *Installer) Update(ctx context.Context) (domain.DiffReport, error) {
	return i.tracedUpdate(ctx)
}

func (i *Installer) tracedUpdate(ctx context.Context, opts ...ports.SpanOption) (domain.DiffReport, error) {
	ctx, span := i.tracer.Start(ctx, "update catalog", opts...)
	defer span.End()

	report, err := i.update(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.DiffReport{}, err
	}

	span.SetAttribute("parcel.added", len(report.Added))
	span.SetAttribute("parcel.updated", len(report.Updated))
	span.SetAttribute("parcel.removed", len(report.Removed))
	return report, nil
}

func (i *Installer) update(ctx context.Context) (domain.DiffReport, error) {
	resp, err := i.get(ctx, i.catalogURL, nil)
	if err != nil {
		return domain.DiffReport{}, err
	}

	if resp.StatusCode() != http.StatusOK {
		_ = resp.Body().Close()
		return domain.DiffReport{}, unexpectedStatus(i.catalogURL, resp.StatusCode())
	}

	text, err := resp.Text()
	if err != nil {
		return domain.DiffReport{}, errors.Join(domain.ErrTransport,
			zerr.With(zerr.Wrap(err, "failed to read catalog body"), "url", i.catalogURL))
	}

	report, err := i.catalog.Load([]byte(text))
	if err != nil {
		return domain.DiffReport{}, err
	}

	if err := i.catalog.Write(); err != nil {
		return domain.DiffReport{}, err
	}

	return report, nil
}

// EnsureCatalog loads the persisted catalog, fetching it first when none exists.
func (i *Installer) EnsureCatalog(ctx context.Context) error {
	if i.catalog.Loaded() {
		return nil
	}

	ok, err := i.catalog.ReadIfExists()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// An implicit fetch is not a user-facing operation of its own.
	_, err = i.tracedUpdate(ctx, ports.WithQuiet())
	return err
}

// Status reports the installation state of the package identified by id.
func (i *Installer) Status(id string) (*Status, error) {
	node, err := i.resolve(id)
	if err != nil {
		return nil, err
	}

	receipt, err := i.receipts.Get(node.Name())
	if err != nil {
		return nil, err
	}

	spec := node.Spec()
	return &Status{Node: node, Receipt: receipt, Current: receipt.Matches(&spec)}, nil
}

// Installed returns the receipts of every package present below the root,
// including packages the catalog no longer lists.
func (i *Installer) Installed() ([]domain.Receipt, error) {
	names, err := i.localPackages()
	if err != nil {
		return nil, err
	}

	var out []domain.Receipt
	for _, name := range names {
		receipt, err := i.receipts.Get(name)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			out = append(out, *receipt)
		}
	}
	return out, nil
}

// Outdated returns installed catalog packages whose receipt no longer matches
// the catalog's file, size or sha256.
func (i *Installer) Outdated() ([]*catalog.Node, error) {
	if !i.catalog.Loaded() {
		return nil, zerr.Wrap(domain.ErrNotLoaded, "catalog has not been loaded")
	}

	var out []*catalog.Node
	for node := range i.catalog.Traverse() {
		receipt, err := i.receipts.Get(node.Name())
		if err != nil {
			return nil, err
		}
		spec := node.Spec()
		if receipt != nil && !receipt.Matches(&spec) {
			out = append(out, node)
		}
	}
	return out, nil
}

// Upgrade installs every outdated package in turn. A failure does not stop
// later upgrades; all failures are returned joined.
func (i *Installer) Upgrade(ctx context.Context, obs ports.Observer) ([]Result, error) {
	outdated, err := i.Outdated()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(outdated))
	var errs []error
	for _, node := range outdated {
		processed, state, err := i.install(ctx, node.Name(), obs)
		results = append(results, Result{
			Package:   node.Name(),
			Processed: nodeNames(processed),
			State:     state,
			Err:       err,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

// Verify re-hashes an installed payload against its receipt, checking the
// size before the sha256.
func (i *Installer) Verify(_ context.Context, id string) error {
	name, err := i.localName(id)
	if err != nil {
		return err
	}

	receipt, err := i.receipts.Get(name)
	if err != nil {
		return err
	}
	if receipt == nil {
		return zerr.With(zerr.Wrap(domain.ErrNotInstalled, "package is not installed"), "package", name)
	}

	path := i.layout.PayloadPath(name, receipt.File)
	info, err := os.Stat(path)
	if err != nil {
		return errors.Join(domain.ErrIntegrity, zerr.With(zerr.Wrap(err, "installed payload is missing"), "path", path))
	}
	if info.Size() != receipt.Size {
		return sizeMismatch(name, receipt.Size, info.Size())
	}

	_, sum, err := i.hasher.HashFile(path)
	if err != nil {
		return errors.Join(domain.ErrIntegrity, err)
	}
	if sum != receipt.Sha256 {
		return hashMismatch(name, receipt.Sha256, sum)
	}
	return nil
}

// resolve maps a name or any hash to a catalog entry.
func (i *Installer) resolve(id string) (*catalog.Node, error) {
	node, err := i.catalog.ByAnyKey(id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "unknown package"), "package", id)
	}
	return node, nil
}

// localName maps id to a package directory name, falling back to id itself
// for packages the catalog no longer lists.
func (i *Installer) localName(id string) (string, error) {
	if i.catalog.Loaded() {
		node, err := i.catalog.ByAnyKey(id)
		if err != nil {
			return "", err
		}
		if node != nil {
			return node.Name(), nil
		}
	}
	if domain.IsReserved(id) || filepath.Base(id) != id {
		return "", zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "not a package name"), "package", id)
	}
	return id, nil
}

// localPackages lists the non-reserved directories below the root.
func (i *Installer) localPackages() ([]string, error) {
	entries, err := os.ReadDir(i.layout.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to list installation root"), "path", i.layout.Root)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !domain.IsReserved(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (i *Installer) get(ctx context.Context, url string, extra map[string]string) (ports.Response, error) {
	headers := make(map[string]string, len(i.headers)+len(extra))
	for k, v := range i.headers {
		headers[k] = v
	}
	for k, v := range extra {
		headers[k] = v
	}

	// One transparent retry on transport failure; status codes are never retried.
	var err error
	for range 2 {
		var resp ports.Response
		resp, err = i.transport.Get(ctx, url, headers)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	if !errors.Is(err, domain.ErrTransport) {
		err = errors.Join(domain.ErrTransport, zerr.With(zerr.Wrap(err, "request failed"), "url", url))
	}
	return nil, err
}

func unexpectedStatus(url string, code int) error {
	err := zerr.Wrap(domain.ErrUnexpectedStatus, "unexpected response status")
	return zerr.With(zerr.With(err, "status_code", code), "url", url)
}

func sizeMismatch(name string, expected, actual int64) error {
	err := zerr.With(zerr.Wrap(domain.ErrIntegrity, "size mismatch"), "package", name)
	return zerr.With(zerr.With(err, "expected_size", expected), "actual_size", actual)
}

func hashMismatch(name, expected, actual string) error {
	err := zerr.With(zerr.Wrap(domain.ErrIntegrity, "sha256 mismatch"), "package", name)
	return zerr.With(zerr.With(err, "expected_sha256", expected), "actual_sha256", actual)
}

func nodeNames(nodes []*catalog.Node) []string {
	out := make([]string, len(nodes))
	for idx, n := range nodes {
		out[idx] = n.Name()
	}
	return out
}

// parseContentLength returns the declared length, or -1 when absent.
func parseContentLength(resp ports.Response) (int64, string, bool) {
	raw := resp.Header("Content-Length")
	if raw == "" {
		return -1, "", true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1, raw, false
	}
	return n, raw, true
}
