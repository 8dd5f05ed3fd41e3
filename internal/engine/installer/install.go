package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/parcel/internal/stream"
	"go.trai.ch/zerr"
)

// Install installs the package identified by name or any of its hashes and
// returns the root-to-target chain it processed. An already current package
// yields an empty list and a single current event.
func (i *Installer) Install(ctx context.Context, id string, obs ports.Observer) ([]*catalog.Node, error) {
	processed, _, err := i.install(ctx, id, obs)
	return processed, err
}

// attempt carries the bookkeeping of a single install call.
type attempt struct {
	span  ports.Span
	obs   ports.Observer
	name  string
	state State
}

func (a *attempt) transition(s State) {
	a.state = s
	a.span.SetAttribute("state", string(s))
}

func (a *attempt) emit(kind domain.EventKind) {
	a.obs.OnEvent(domain.Event{Kind: kind, Package: a.name})
}

func (a *attempt) fail(err error) ([]*catalog.Node, State, error) {
	a.transition(StateFailed)
	a.span.RecordError(err)
	a.obs.OnEvent(domain.Event{Kind: domain.EventInstallFailed, Package: a.name, Err: err})
	return nil, StateFailed, err
}

func (i *Installer) install(ctx context.Context, id string, obs ports.Observer) ([]*catalog.Node, State, error) {
	if obs == nil {
		obs = nopObserver{}
	}

	ctx, span := i.tracer.Start(ctx, "install "+id)
	defer span.End()

	a := &attempt{span: span, obs: obs, name: id, state: StateIdle}
	a.transition(StateResolving)

	node, err := i.resolve(id)
	if err != nil {
		return a.fail(err)
	}
	a.name = node.Name()
	span.SetAttribute("parcel.package", node.Name())

	// An undecodable receipt is replaced like a stale one; the new receipt
	// is only written after the payload verifies.
	receipt, err := i.receipts.Get(node.Name())
	if err != nil && !errors.Is(err, domain.ErrReceiptUnmarshalFailed) {
		return a.fail(err)
	}
	spec := node.Spec()
	if receipt.Matches(&spec) {
		a.transition(StateCurrentSkip)
		a.emit(domain.EventCurrent)
		return []*catalog.Node{}, StateCurrentSkip, nil
	}

	chain := node.Ancestors()
	a.emit(domain.EventBeforeInstall)

	p, err := buildPlan(chain)
	if err != nil {
		return a.fail(err)
	}

	if err := i.download(ctx, a, node, p, receipt); err != nil {
		return a.fail(err)
	}

	a.transition(StateDone)
	a.emit(domain.EventAfterInstall)
	return chain, StateDone, nil
}

// download streams, verifies and commits the target. The scratch directory
// is always removed; directories created for a failed install are removed too.
func (i *Installer) download(ctx context.Context, a *attempt, node *catalog.Node, p plan, prev *domain.Receipt) (err error) {
	name := node.Name()
	pkgDir := i.layout.PackageDir(name)
	metaDir := i.layout.MetaDir(name)
	pkgExisted := exists(pkgDir)
	metaExisted := exists(metaDir)

	if err := os.MkdirAll(metaDir, domain.DirPerm); err != nil {
		return errors.Join(domain.ErrDownloadFailed, zerr.With(zerr.Wrap(err, "failed to create metadata directory"), "path", metaDir))
	}

	tmpDir, err := os.MkdirTemp(metaDir, domain.TempDirPrefix+"*")
	if err != nil {
		return errors.Join(domain.ErrDownloadFailed, zerr.With(zerr.Wrap(err, "failed to create scratch directory"), "path", metaDir))
	}

	defer func() {
		_ = os.RemoveAll(tmpDir)
		if err == nil {
			return
		}
		switch {
		case !pkgExisted:
			_ = os.RemoveAll(pkgDir)
		case !metaExisted:
			_ = os.RemoveAll(metaDir)
		}
	}()

	a.transition(StateDownloading)
	a.emit(domain.EventBeforeDownload)

	tmpPath := filepath.Join(tmpDir, node.File())
	written, sum, err := i.fetchTo(ctx, a, node, p, tmpPath)
	if err != nil {
		return err
	}
	a.emit(domain.EventAfterDownload)

	a.transition(StateVerifying)
	if written != node.Size() {
		return sizeMismatch(name, node.Size(), written)
	}
	if sum != node.Sha256() {
		return hashMismatch(name, node.Sha256(), sum)
	}

	a.transition(StateCommitting)
	return i.commit(node, tmpPath, prev)
}

// fetchTo drives the root resource through the transform chain into path and
// returns the bytes written and their sha256.
func (i *Installer) fetchTo(ctx context.Context, a *attempt, node *catalog.Node, p plan, path string) (int64, string, error) {
	raw, err := i.open(ctx, p)
	if err != nil {
		return 0, "", err
	}

	body := &bodyReader{ReadCloser: raw}
	src := p.transforms.Apply(body)
	defer src.Close() //nolint:errcheck // Best effort close in defer

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, domain.FilePerm) //nolint:gosec // Path is below the scratch directory
	if err != nil {
		return 0, "", errors.Join(domain.ErrDownloadFailed, zerr.With(zerr.Wrap(err, "failed to create scratch file"), "path", path))
	}
	defer f.Close() //nolint:errcheck // Closed explicitly on the success path

	digester := digest.SHA256.Digester()
	progress := stream.NewProgressWriter(io.MultiWriter(f, digester.Hash()), node.Size(), func(written, total int64) {
		a.obs.OnEvent(domain.Event{Kind: domain.EventProgress, Package: a.name, Written: written, Total: total})
	})

	progress.Start()
	if _, err := io.Copy(progress, src); err != nil {
		if body.err != nil {
			return 0, "", errors.Join(zerr.With(zerr.Wrap(body.err, "failed to read response body"), "url", p.root.Source()), domain.ErrTransport)
		}
		return 0, "", errors.Join(domain.ErrDownloadFailed, zerr.With(zerr.Wrap(err, "failed to stream package"), "package", node.Name()))
	}

	if err := f.Close(); err != nil {
		return 0, "", errors.Join(domain.ErrDownloadFailed, zerr.With(zerr.Wrap(err, "failed to flush scratch file"), "path", path))
	}

	return progress.Written(), digester.Digest().Encoded(), nil
}

// open returns the raw byte source for a plan: a plain fetch of a root, a
// ranged fetch of a nested slice, or an empty source for a zero-length slice.
func (i *Installer) open(ctx context.Context, p plan) (io.ReadCloser, error) {
	url := p.root.Source()

	if !p.ranged {
		resp, err := i.get(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			_ = resp.Body().Close()
			return nil, unexpectedStatus(url, resp.StatusCode())
		}
		if n, raw, ok := parseContentLength(resp); !ok || (n >= 0 && n != p.root.Size()) {
			_ = resp.Body().Close()
			err := zerr.With(zerr.Wrap(domain.ErrIntegrity, "content length does not match package size"), "url", url)
			return nil, zerr.With(zerr.With(err, "expected_size", p.root.Size()), "content_length", raw)
		}
		return resp.Body(), nil
	}

	if p.length == 0 {
		return stream.Empty(), nil
	}

	rng := fmt.Sprintf("bytes=%d-%d", p.offset, p.offset+p.length-1)
	resp, err := i.get(ctx, url, map[string]string{"Range": rng})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != http.StatusPartialContent {
		_ = resp.Body().Close()
		err := zerr.With(zerr.Wrap(domain.ErrInvalidRange, "server did not honour range request"), "url", url)
		return nil, zerr.With(zerr.With(err, "status_code", resp.StatusCode()), "range", rng)
	}
	if n, raw, ok := parseContentLength(resp); !ok || (n >= 0 && n != p.length) {
		_ = resp.Body().Close()
		err := zerr.With(zerr.Wrap(domain.ErrInvalidRange, "ranged response has wrong length"), "url", url)
		return nil, zerr.With(zerr.With(err, "content_length", raw), "range", rng)
	}

	return resp.Body(), nil
}

// commit moves a verified payload into place. The receipt is written last.
func (i *Installer) commit(node *catalog.Node, tmpPath string, prev *domain.Receipt) error {
	name := node.Name()
	dest := i.layout.PayloadPath(name, node.File())

	if err := os.MkdirAll(i.layout.MetaDir(name), domain.DirPerm); err != nil {
		return errors.Join(domain.ErrCommitFailed, err)
	}

	stale := []string{i.layout.ReceiptPath(name), dest}
	if prev != nil && prev.File != node.File() && !domain.IsReserved(prev.File) && filepath.Base(prev.File) == prev.File {
		stale = append(stale, i.layout.PayloadPath(name, prev.File))
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Join(domain.ErrCommitFailed, zerr.With(zerr.Wrap(err, "failed to remove previous install"), "path", path))
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return errors.Join(domain.ErrCommitFailed, zerr.With(zerr.Wrap(err, "failed to move payload into place"), "path", dest))
	}

	if err := i.receipts.Put(node.Receipt()); err != nil {
		return errors.Join(domain.ErrCommitFailed, err)
	}
	return nil
}

// bodyReader records the first failed read of the network body, so that a
// dropped connection is told apart from a scratch file that cannot be written.
type bodyReader struct {
	io.ReadCloser
	err error
}

func (r *bodyReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && err != io.EOF && r.err == nil { //nolint:errorlint // io.EOF is returned unwrapped by contract
		r.err = err
	}
	return n, err
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

type nopObserver struct{}

func (nopObserver) OnEvent(domain.Event) {}
