package installer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/parcel/internal/adapters/store"
	"go.trai.ch/parcel/internal/adapters/telemetry"
	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/engine/installer"
	"go.trai.ch/zerr"
)

func metadata(t *testing.T, err error) map[string]any {
	t.Helper()
	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	return zErr.Metadata()
}

func chainNames(nodes []*catalog.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func (e *env) update(t *testing.T) {
	t.Helper()
	_, err := e.inst.Update(context.Background())
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)

	report, err := e.inst.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle", "fonts", "serif", "bold", "empty"}, report.Added)
	assert.Equal(t, "parcel/test", e.server.lastRequest().Header.Get("User-Agent"))

	persisted, err := os.ReadFile(e.layout.CatalogPath())
	require.NoError(t, err)
	assert.Equal(t, e.server.catalog, persisted)

	report, err = e.inst.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Empty())
}

func TestEnsureCatalog(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.inst.EnsureCatalog(context.Background()))
	assert.Equal(t, 1, e.server.requestCount())
	assert.True(t, e.catalog.Loaded())

	// A fresh catalog on the same root reads the persisted file instead of fetching.
	fresh := catalog.New(e.layout.CatalogPath())
	second := installer.New(fresh, nil, store.NewReceiptStore(e.root), nil, telemetry.NewNoOpTracer(), &domain.Config{Root: e.root})
	require.NoError(t, second.EnsureCatalog(context.Background()))
	assert.Equal(t, 1, e.server.requestCount())
	assert.Equal(t, e.catalog.Fingerprint(), fresh.Fingerprint())
}

func TestInstall_NestedChain(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	rec := &recorder{}

	processed, err := e.inst.Install(context.Background(), "bold", rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle", "fonts", "serif", "bold"}, chainNames(processed))

	installed, err := os.ReadFile(e.layout.PayloadPath("bold", "bold.bin"))
	require.NoError(t, err)
	assert.Equal(t, e.archive.bold, installed)

	// fonts is stored, so its slice folds into the network range; serif is
	// the first deflated layer and is fetched as one contiguous range.
	start := e.archive.fontsOffset + 3
	end := start + int64(len(e.archive.serifZ)) - 1
	assert.Equal(t, fmt.Sprintf("bytes=%d-%d", start, end), e.server.lastRequest().Header.Get("Range"))

	assert.Equal(t, []domain.EventKind{
		domain.EventBeforeInstall,
		domain.EventBeforeDownload,
		domain.EventAfterDownload,
		domain.EventAfterInstall,
	}, rec.kinds())

	progress := rec.progress()
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(0), progress[0])
	assert.Equal(t, int64(len(e.archive.bold)), progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}

	receipt, err := store.NewReceiptStore(e.root).Get("bold")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, int64(len(e.archive.bold)), receipt.Size)

	entries, err := os.ReadDir(e.layout.MetaDir("bold"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "scratch directory must be removed")
	assert.Equal(t, domain.ReceiptFileName, entries[0].Name())
}

func TestInstall_EveryLevel(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	expected := map[string][]byte{
		"bundle": e.archive.bundle,
		"fonts":  e.archive.fonts,
		"serif":  e.archive.serif,
		"bold":   e.archive.bold,
		"empty":  {},
	}

	for name, content := range expected {
		t.Run(name, func(t *testing.T) {
			_, err := e.inst.Install(context.Background(), name, nil)
			require.NoError(t, err)

			got, err := os.ReadFile(e.layout.PayloadPath(name, name+".bin"))
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestInstall_RootIsFetchedWithoutRange(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "bundle", nil)
	require.NoError(t, err)
	assert.Empty(t, e.server.lastRequest().Header.Get("Range"))
}

func TestInstall_ZeroLengthSliceSkipsNetwork(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	before := e.server.requestCount()

	processed, err := e.inst.Install(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle", "empty"}, chainNames(processed))
	assert.Equal(t, before, e.server.requestCount())
}

func TestInstall_ByAnyHash(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	fonts, err := e.catalog.ByName("fonts")
	require.NoError(t, err)

	processed, err := e.inst.Install(context.Background(), fonts.Md5(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle", "fonts"}, chainNames(processed))
}

func TestInstall_AlreadyCurrent(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "serif", nil)
	require.NoError(t, err)
	before := e.server.requestCount()

	rec := &recorder{}
	processed, err := e.inst.Install(context.Background(), "serif", rec)
	require.NoError(t, err)
	assert.NotNil(t, processed)
	assert.Empty(t, processed)
	assert.Equal(t, []domain.EventKind{domain.EventCurrent}, rec.kinds())
	assert.Empty(t, rec.progress())
	assert.Equal(t, before, e.server.requestCount())
}

func TestInstall_UnknownPackage(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	rec := &recorder{}

	_, err := e.inst.Install(context.Background(), "missing", rec)
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
	assert.Equal(t, []domain.EventKind{domain.EventInstallFailed}, rec.kinds())
}

func TestInstall_NotLoaded(t *testing.T) {
	e := newEnv(t)

	_, err := e.inst.Install(context.Background(), "bold", nil)
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
}

func TestInstall_RangeNotHonoured(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	e.server.setHandler(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(e.archive.bundle)
	})
	rec := &recorder{}

	_, err := e.inst.Install(context.Background(), "fonts", rec)
	require.ErrorIs(t, err, domain.ErrInvalidRange)
	assert.Equal(t, http.StatusOK, metadata(t, err)["status_code"])
	assert.Equal(t, 2, e.server.requestCount(), "a wrong status must not be retried")

	_, statErr := os.Stat(e.layout.PackageDir("fonts"))
	assert.True(t, os.IsNotExist(statErr), "failed install must not leave a package directory")
	kinds := rec.kinds()
	assert.Equal(t, domain.EventInstallFailed, kinds[len(kinds)-1])
}

func TestInstall_WrongRangeLength(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	e.server.setHandler(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "3")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abc"))
	})

	_, err := e.inst.Install(context.Background(), "fonts", nil)
	require.ErrorIs(t, err, domain.ErrInvalidRange)
	assert.Equal(t, "3", metadata(t, err)["content_length"])
}

func TestInstall_RootStatus(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	e.server.setHandler(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := e.inst.Install(context.Background(), "bundle", nil)
	require.ErrorIs(t, err, domain.ErrUnexpectedStatus)
	assert.Equal(t, http.StatusServiceUnavailable, metadata(t, err)["status_code"])
	assert.Equal(t, 2, e.server.requestCount(), "a wrong status must not be retried")
}

func TestInstall_ConnectionDroppedMidBody(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	e.server.setHandler(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(e.archive.bundle)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(e.archive.bundle[:10])
		rc := http.NewResponseController(w)
		_ = rc.Flush()
		conn, _, err := rc.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})
	rec := &recorder{}

	_, err := e.inst.Install(context.Background(), "bundle", rec)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrDownloadFailed)
	assert.Equal(t, e.server.URL+"/bundle.zip", metadata(t, err)["url"])

	_, statErr := os.Stat(e.layout.PackageDir("bundle"))
	assert.True(t, os.IsNotExist(statErr), "failed install must not leave a package directory")
	kinds := rec.kinds()
	assert.Equal(t, domain.EventInstallFailed, kinds[len(kinds)-1])
}

func TestInstall_CancelledMidBody(t *testing.T) {
	e := newEnv(t)
	e.update(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.server.setHandler(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(e.archive.bundle)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(e.archive.bundle[:10])
		_ = http.NewResponseController(w).Flush()
		cancel()
		<-r.Context().Done()
	})

	_, err := e.inst.Install(ctx, "bundle", nil)
	require.ErrorIs(t, err, domain.ErrTransport)

	_, statErr := os.Stat(e.layout.PackageDir("bundle"))
	assert.True(t, os.IsNotExist(statErr), "failed install must not leave a package directory")
}

func TestInstall_ReplacesCorruptReceipt(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "fonts", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.layout.ReceiptPath("fonts"), []byte("{not json"), domain.FilePerm))

	processed, err := e.inst.Install(context.Background(), "fonts", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle", "fonts"}, chainNames(processed))

	receipt, err := store.NewReceiptStore(e.root).Get("fonts")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "fonts.bin", receipt.File)
}

func TestInstall_IntegrityFailureKeepsExistingInstall(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "fonts", nil)
	require.NoError(t, err)

	// Publish a catalog claiming different content for fonts.
	var doc domain.CatalogDocument
	require.NoError(t, json.Unmarshal(e.server.catalog, &doc))
	claimed, _, _ := hashes([]byte("something else entirely"))
	doc.Packages[0].Packages[0].Sha256 = claimed
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	report, err := e.catalog.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"fonts"}, report.Updated)

	_, err = e.inst.Install(context.Background(), "fonts", nil)
	require.ErrorIs(t, err, domain.ErrIntegrity)
	meta := metadata(t, err)
	assert.Equal(t, claimed, meta["expected_sha256"])
	actual, _, _ := hashes(e.archive.fonts)
	assert.Equal(t, actual, meta["actual_sha256"])

	installed, err := os.ReadFile(e.layout.PayloadPath("fonts", "fonts.bin"))
	require.NoError(t, err)
	assert.Equal(t, e.archive.fonts, installed)

	receipt, err := store.NewReceiptStore(e.root).Get("fonts")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, actual, receipt.Sha256)

	entries, err := os.ReadDir(e.layout.MetaDir("fonts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInstall_SizeMismatch(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	var doc domain.CatalogDocument
	require.NoError(t, json.Unmarshal(e.server.catalog, &doc))
	doc.Packages[0].Packages[0].Packages[0].Packages[0].Size++
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	_, err = e.catalog.Load(raw)
	require.NoError(t, err)

	_, err = e.inst.Install(context.Background(), "bold", nil)
	require.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Equal(t, int64(len(e.archive.bold)), metadata(t, err)["actual_size"])
}

func TestInstall_ReplacesRenamedPayload(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "serif", nil)
	require.NoError(t, err)

	var doc domain.CatalogDocument
	require.NoError(t, json.Unmarshal(e.server.catalog, &doc))
	doc.Packages[0].Packages[0].Packages[0].File = "serif.dat"
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	_, err = e.catalog.Load(raw)
	require.NoError(t, err)

	_, err = e.inst.Install(context.Background(), "serif", nil)
	require.NoError(t, err)

	_, err = os.Stat(e.layout.PayloadPath("serif", "serif.bin"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(e.layout.PayloadPath("serif", "serif.dat"))
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "bold", nil)
	require.NoError(t, err)
	require.NoError(t, e.inst.Verify(context.Background(), "bold"))

	path := e.layout.PayloadPath("bold", "bold.bin")

	t.Run("content corrupted", func(t *testing.T) {
		corrupted := append([]byte(nil), e.archive.bold...)
		corrupted[0] ^= 0xff
		require.NoError(t, os.WriteFile(path, corrupted, 0o600))

		err := e.inst.Verify(context.Background(), "bold")
		require.ErrorIs(t, err, domain.ErrIntegrity)
		actual, _, _ := hashes(corrupted)
		assert.Equal(t, actual, metadata(t, err)["actual_sha256"])
	})

	t.Run("length corrupted", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, e.archive.bold[:10], 0o600))

		err := e.inst.Verify(context.Background(), "bold")
		require.ErrorIs(t, err, domain.ErrIntegrity)
		assert.Equal(t, int64(10), metadata(t, err)["actual_size"])
	})

	t.Run("not installed", func(t *testing.T) {
		err := e.inst.Verify(context.Background(), "serif")
		assert.ErrorIs(t, err, domain.ErrNotInstalled)
	})
}

func TestRemove(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "fonts", nil)
	require.NoError(t, err)

	removed, err := e.inst.Remove(context.Background(), "fonts")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = os.Stat(e.layout.PackageDir("fonts"))
	assert.True(t, os.IsNotExist(err))

	removed, err = e.inst.Remove(context.Background(), "fonts")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = e.inst.Remove(context.Background(), "../escape")
	assert.ErrorIs(t, err, domain.ErrUnknownPackage)
}

func TestCleanup(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	_, err := e.inst.Install(context.Background(), "fonts", nil)
	require.NoError(t, err)

	orphan := store.NewReceiptStore(e.root)
	require.NoError(t, orphan.Put(domain.Receipt{Name: "orphan", File: "orphan.bin"}))
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, ".hidden"), 0o750))
	stray := filepath.Join(e.layout.MetaDir("fonts"), domain.TempDirPrefix+"123")
	require.NoError(t, os.MkdirAll(stray, 0o750))

	rec := &recorder{}
	removed, err := e.inst.Cleanup(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, removed)
	assert.Equal(t, []domain.EventKind{domain.EventBeforeCleanup, domain.EventAfterCleanup}, rec.kinds())

	_, err = os.Stat(e.layout.PackageDir("orphan"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(e.root, ".hidden"))
	assert.NoError(t, err)
	_, err = os.Stat(e.layout.PayloadPath("fonts", "fonts.bin"))
	assert.NoError(t, err)
}

func TestOutdatedAndUpgrade(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	for _, name := range []string{"fonts", "serif", "bold"} {
		_, err := e.inst.Install(context.Background(), name, nil)
		require.NoError(t, err)
	}

	receipts := store.NewReceiptStore(e.root)
	for _, name := range []string{"fonts", "serif"} {
		r, err := receipts.Get(name)
		require.NoError(t, err)
		r.Sha256 = "stale"
		require.NoError(t, receipts.Put(*r))
	}

	outdated, err := e.inst.Outdated()
	require.NoError(t, err)
	assert.Equal(t, []string{"fonts", "serif"}, chainNames(outdated))

	serifStart := e.archive.fontsOffset + 3
	serifRange := fmt.Sprintf("bytes=%d-%d", serifStart, serifStart+int64(len(e.archive.serifZ))-1)
	e.server.setHandler(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") == serifRange {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		e.server.serve(w, r)
	})

	rec := &recorder{}
	results, err := e.inst.Upgrade(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
	require.Len(t, results, 2)

	assert.Equal(t, "fonts", results[0].Package)
	assert.Equal(t, installer.StateDone, results[0].State)
	assert.Equal(t, []string{"bundle", "fonts"}, results[0].Processed)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, "serif", results[1].Package)
	assert.Equal(t, installer.StateFailed, results[1].State)
	assert.True(t, errors.Is(results[1].Err, domain.ErrInvalidRange))

	outdated, err = e.inst.Outdated()
	require.NoError(t, err)
	assert.Equal(t, []string{"serif"}, chainNames(outdated))
}

func TestStatusAndInstalled(t *testing.T) {
	e := newEnv(t)
	e.update(t)

	status, err := e.inst.Status("fonts")
	require.NoError(t, err)
	assert.Nil(t, status.Receipt)
	assert.False(t, status.Current)

	_, err = e.inst.Install(context.Background(), "fonts", nil)
	require.NoError(t, err)

	status, err = e.inst.Status("fonts")
	require.NoError(t, err)
	require.NotNil(t, status.Receipt)
	assert.True(t, status.Current)

	installed, err := e.inst.Installed()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "fonts", installed[0].Name)
}
