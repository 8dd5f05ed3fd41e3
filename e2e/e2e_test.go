//go:build e2e

package e2e_test

import (
	"bytes"
	"crypto/md5"  //nolint:gosec // Test fixtures only
	"crypto/sha1" //nolint:gosec // Test fixtures only
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/rogpeppe/go-internal/testscript"
	"go.trai.ch/parcel/internal/core/domain"
)

var parcelBinary string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "parcel-e2e-*")
	if err != nil {
		panic(err)
	}

	parcelBinary = filepath.Join(tmpDir, "parcel")

	//nolint:gosec // Building binary with static arguments, not user input
	cmd := exec.Command("go", "build", "-o", parcelBinary, "./cmd/parcel")
	cmd.Dir = ".."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		panic("failed to build parcel binary: " + err.Error())
	}

	exitCode := m.Run()

	_ = os.RemoveAll(tmpDir)

	os.Exit(exitCode)
}

// readme is served deflated inside the bundle:
//
//	bundle (root)  = "HEAD!!!" + deflate(readme) + "TAIL"
//	readme (8-7-n) = "Read me first.\n"
var readme = []byte("Read me first.\n")

func TestScripts(t *testing.T) {
	srv := newCatalogServer(t)

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			env.Setenv("PARCEL_CATALOG_URL", srv.URL+"/catalog.json")
			return setupE2E(env)
		},
	})
}

func setupE2E(env *testscript.Env) error {
	env.Setenv("NO_COLOR", "1")
	env.Setenv("CI", "true")

	binDir := filepath.Dir(parcelBinary)
	currentPath := env.Getenv("PATH")
	env.Setenv("PATH", binDir+string(os.PathListSeparator)+currentPath)

	homeDir := filepath.Join(env.WorkDir, ".home")
	if err := os.MkdirAll(homeDir, 0o750); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)

	return nil
}

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	var z bytes.Buffer
	w, err := flate.NewWriter(&z, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(readme); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	bundle := append(append([]byte("HEAD!!!"), z.Bytes()...), "TAIL"...)

	srv := httptest.NewUnstartedServer(nil)
	doc := domain.CatalogDocument{
		Format: domain.SupportedFormat.String(),
		Packages: []domain.PackageSpec{
			spec("bundle", "bundle.bin", bundle, "http://"+srv.Listener.Addr().String()+"/bundle.bin", "",
				spec("readme", "readme.txt", readme, "", "8-7-"+strconv.Itoa(z.Len())),
			),
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog.json":
			http.ServeContent(w, r, "catalog.json", time.Time{}, bytes.NewReader(raw))
		case "/bundle.bin":
			http.ServeContent(w, r, "bundle.bin", time.Time{}, bytes.NewReader(bundle))
		default:
			http.NotFound(w, r)
		}
	})
	srv.Start()
	t.Cleanup(srv.Close)

	return srv
}

func spec(name, file string, content []byte, source, zipped string, children ...domain.PackageSpec) domain.PackageSpec {
	s256 := sha256.Sum256(content)
	s1 := sha1.Sum(content) //nolint:gosec // Test fixtures only
	m5 := md5.Sum(content)  //nolint:gosec // Test fixtures only
	return domain.PackageSpec{
		Name:     name,
		File:     file,
		Size:     int64(len(content)),
		Sha256:   hex.EncodeToString(s256[:]),
		Sha1:     hex.EncodeToString(s1[:]),
		Md5:      hex.EncodeToString(m5[:]),
		Source:   source,
		Zipped:   zipped,
		Packages: children,
	}
}
