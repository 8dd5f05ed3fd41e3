package app_test

import (
	"bytes"
	"crypto/md5"  //nolint:gosec // Test fixtures only
	"crypto/sha1" //nolint:gosec // Test fixtures only
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/parcel/internal/adapters/detector"
	"go.trai.ch/parcel/internal/adapters/fs"
	"go.trai.ch/parcel/internal/adapters/store"
	"go.trai.ch/parcel/internal/adapters/transport"
	"go.trai.ch/parcel/internal/app"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/parcel/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// The fixture serves one root resource with a stored child inside it:
//
//	tool (root)  = "HEADER" + "hello" + "TAIL"
//	doc  (0-6-5) = "hello"
var (
	docPayload  = []byte("hello")
	toolPayload = append(append([]byte("HEADER"), docPayload...), []byte("TAIL")...)
)

func spec(name, zipped, source string, payload []byte, children ...domain.PackageSpec) domain.PackageSpec {
	s256 := sha256.Sum256(payload)
	s1 := sha1.Sum(payload) //nolint:gosec // Test fixtures only
	m5 := md5.Sum(payload)  //nolint:gosec // Test fixtures only
	return domain.PackageSpec{
		Name:     name,
		File:     name + ".bin",
		Size:     int64(len(payload)),
		Sha256:   hex.EncodeToString(s256[:]),
		Sha1:     hex.EncodeToString(s1[:]),
		Md5:      hex.EncodeToString(m5[:]),
		Source:   source,
		Zipped:   zipped,
		Packages: children,
	}
}

type server struct {
	*httptest.Server

	mu      sync.Mutex
	catalog []byte
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog.json":
			s.mu.Lock()
			body := s.catalog
			s.mu.Unlock()
			http.ServeContent(w, r, "catalog.json", time.Time{}, bytes.NewReader(body))
		case "/tool.bin":
			http.ServeContent(w, r, "tool.bin", time.Time{}, bytes.NewReader(toolPayload))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)

	s.setCatalog(t, spec("tool", "", s.URL+"/tool.bin", toolPayload,
		spec("doc", "0-6-5", "", docPayload),
	))
	return s
}

func (s *server) setCatalog(t *testing.T, pkgs ...domain.PackageSpec) {
	t.Helper()
	raw, err := json.Marshal(domain.CatalogDocument{Format: domain.SupportedFormat.String(), Packages: pkgs})
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = raw
}

// recorder collects everything a renderer is told.
type recorder struct {
	mu        sync.Mutex
	events    []domain.Event
	spans     []string
	completed []error
}

func (r *recorder) kinds(pkg string) []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.EventKind
	for _, e := range r.events {
		if e.Package == pkg && e.Kind != domain.EventProgress {
			out = append(out, e.Kind)
		}
	}
	return out
}

// newRenderer returns a mock renderer that records into rec.
func newRenderer(ctrl *gomock.Controller, rec *recorder) *mocks.MockRenderer {
	r := mocks.NewMockRenderer(ctrl)
	r.EXPECT().Start(gomock.Any()).Return(nil).Times(1)
	r.EXPECT().Wait().Return(nil).Times(1)
	r.EXPECT().Stop().Return(nil).Times(1)
	r.EXPECT().OnEvent(gomock.Any()).Do(func(e domain.Event) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, e)
	}).AnyTimes()
	r.EXPECT().OnSpanStart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_, _, name string, _ time.Time) {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.spans = append(rec.spans, name)
		}).AnyTimes()
	r.EXPECT().OnSpanComplete(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ string, _ time.Time, err error) {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.completed = append(rec.completed, err)
		}).AnyTimes()
	return r
}

type env struct {
	app    *app.App
	srv    *server
	root   string
	cfg    *domain.Config
	rec    *recorder
	logger *mocks.MockLogger
}

// newEnv wires an App against the fixture server. Each rendered command gets
// a fresh mock renderer.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctrl := gomock.NewController(t)

	srv := newServer(t)
	root := t.TempDir()
	cfg := &domain.Config{
		Root:       root,
		CatalogURL: srv.URL + "/catalog.json",
		Headers:    map[string]string{domain.ClientHeader: "parcel/test"},
		OutputMode: domain.OutputLinear,
	}

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(gomock.Any()).Return(cfg, nil).AnyTimes()

	log := mocks.NewMockLogger(ctrl)
	rec := &recorder{}

	a := app.New(
		loader,
		transport.New(),
		fs.NewHasher(),
		func(root string) ports.ReceiptStore { return store.NewReceiptStore(root) },
		log,
	).
		WithOutput(io.Discard, io.Discard).
		WithDetector(func() detector.OutputMode { return detector.ModeLinear }).
		WithRendererFactory(func(mode detector.OutputMode, _, _ io.Writer) ports.Renderer {
			if mode != detector.ModeLinear {
				t.Errorf("unexpected renderer mode %v", mode)
			}
			return newRenderer(ctrl, rec)
		})

	return &env{app: a, srv: srv, root: root, cfg: cfg, rec: rec, logger: log}
}

func (e *env) payload(name string) string {
	return filepath.Join(e.root, name, name+".bin")
}
