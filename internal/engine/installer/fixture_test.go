package installer_test

import (
	"bytes"
	"crypto/md5"  //nolint:gosec // Test fixtures only
	"crypto/sha1" //nolint:gosec // Test fixtures only
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
	"go.trai.ch/parcel/internal/adapters/fs"
	"go.trai.ch/parcel/internal/adapters/store"
	"go.trai.ch/parcel/internal/adapters/telemetry"
	"go.trai.ch/parcel/internal/adapters/transport"
	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/engine/installer"
)

// archive is a three-level nested resource served by the fixture:
//
//	bundle (root)  = "HEAD!!!" + fonts + "TAIL"
//	fonts  (0-7-n) = "pad" + deflate(serif) + "end"
//	serif  (8-3-n) = "xx" + deflate(bold) + "yy"
//	bold   (8-2-n) = payload
type archive struct {
	bundle []byte
	fonts  []byte
	serif  []byte
	bold   []byte
	empty  []byte

	fontsOffset int64
	serifZ      []byte
	boldZ       []byte
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newArchive(t *testing.T) *archive {
	t.Helper()
	a := &archive{bold: bytes.Repeat([]byte("bold glyph data "), 2048)}
	a.boldZ = deflate(t, a.bold)
	a.serif = append(append([]byte("xx"), a.boldZ...), "yy"...)
	a.serifZ = deflate(t, a.serif)
	a.fonts = append(append([]byte("pad"), a.serifZ...), "end"...)
	a.fontsOffset = 7
	a.bundle = append(append([]byte("HEAD!!!"), a.fonts...), "TAIL"...)
	return a
}

func hashes(content []byte) (string, string, string) {
	s256 := sha256.Sum256(content)
	s1 := sha1.Sum(content) //nolint:gosec // Test fixtures only
	m5 := md5.Sum(content)  //nolint:gosec // Test fixtures only
	return hex.EncodeToString(s256[:]), hex.EncodeToString(s1[:]), hex.EncodeToString(m5[:])
}

func pkg(name string, content []byte, source, zipped string, children ...domain.PackageSpec) domain.PackageSpec {
	s256, s1, m5 := hashes(content)
	return domain.PackageSpec{
		Name:     name,
		File:     name + ".bin",
		Size:     int64(len(content)),
		Sha256:   s256,
		Sha1:     s1,
		Md5:      m5,
		Source:   source,
		Zipped:   zipped,
		Packages: children,
	}
}

func (a *archive) document(baseURL string) domain.CatalogDocument {
	zipped := func(method int, offset, length int) string {
		return strconv.Itoa(method) + "-" + strconv.Itoa(offset) + "-" + strconv.Itoa(length)
	}
	// The empty package shares no hashes with the others: its content is
	// empty, so its digests are those of the empty string.
	return domain.CatalogDocument{
		Format: "1.2",
		Packages: []domain.PackageSpec{
			pkg("bundle", a.bundle, baseURL+"/bundle.zip", "",
				pkg("fonts", a.fonts, "bundle/fonts", zipped(0, int(a.fontsOffset), len(a.fonts)),
					pkg("serif", a.serif, "bundle/fonts/serif", zipped(8, 3, len(a.serifZ)),
						pkg("bold", a.bold, "bundle/fonts/serif/bold", zipped(8, 2, len(a.boldZ))),
					),
				),
				pkg("empty", a.empty, "bundle/empty", zipped(0, 0, 0)),
			),
		},
	}
}

// server serves the catalog and the root archive, honouring Range requests.
type server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	catalog  []byte
	bundle   []byte
	handler  http.HandlerFunc
}

func newServer(t *testing.T, a *archive) *server {
	t.Helper()
	s := &server{bundle: a.bundle}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		handler := s.handler
		s.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		s.serve(w, r)
	}))
	t.Cleanup(s.Close)

	raw, err := json.Marshal(a.document(s.URL))
	require.NoError(t, err)
	s.catalog = raw
	return s
}

func (s *server) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/catalog.json":
		_, _ = w.Write(s.catalog)
	case "/bundle.zip":
		http.ServeContent(w, r, "bundle.zip", time.Time{}, bytes.NewReader(s.bundle))
	default:
		http.NotFound(w, r)
	}
}

func (s *server) setHandler(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *server) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *server) lastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type env struct {
	root    string
	layout  domain.Layout
	archive *archive
	server  *server
	catalog *catalog.Catalog
	inst    *installer.Installer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	a := newArchive(t)
	srv := newServer(t, a)
	root := filepath.Join(t.TempDir(), "packages")
	layout := domain.NewLayout(root)

	cfg := &domain.Config{
		Root:       root,
		CatalogURL: srv.URL + "/catalog.json",
		Headers:    map[string]string{domain.ClientHeader: "parcel/test"},
	}

	cat := catalog.New(layout.CatalogPath())
	inst := installer.New(
		cat,
		transport.New(),
		store.NewReceiptStore(root),
		fs.NewHasher(),
		telemetry.NewNoOpTracer(),
		cfg,
	)

	return &env{root: root, layout: layout, archive: a, server: srv, catalog: cat, inst: inst}
}

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) OnEvent(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EventKind
	for _, e := range r.events {
		if e.Kind != domain.EventProgress {
			out = append(out, e.Kind)
		}
	}
	return out
}

func (r *recorder) progress() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, e := range r.events {
		if e.Kind == domain.EventProgress {
			out = append(out, e.Written)
		}
	}
	return out
}
