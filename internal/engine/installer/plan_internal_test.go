package installer

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
)

func entry(name, zipped string, children ...domain.PackageSpec) domain.PackageSpec {
	pad := func(c byte, n int) string { return strings.Repeat(string(c), n) }
	// Distinct, well-formed hex keys derived from the first letter of the name.
	c := "0123456789abcdef"[len(name)%16]
	return domain.PackageSpec{
		Name:     name,
		File:     name + ".bin",
		Size:     1,
		Sha256:   pad(c, 62) + hexPair(name),
		Sha1:     pad(c, 38) + hexPair(name),
		Md5:      pad(c, 30) + hexPair(name),
		Source:   "https://example.com/" + name,
		Zipped:   zipped,
		Packages: children,
	}
}

func hexPair(name string) string {
	const digits = "0123456789abcdef"
	b := name[0]
	return string([]byte{digits[b>>4], digits[b&0xf]})
}

func loadChain(t *testing.T, target string, pkgs ...domain.PackageSpec) []*catalog.Node {
	t.Helper()
	raw, err := json.Marshal(domain.CatalogDocument{Format: "1.2", Packages: pkgs})
	require.NoError(t, err)

	c := catalog.New(filepath.Join(t.TempDir(), "catalog.json"))
	_, err = c.Load(raw)
	require.NoError(t, err)

	node, err := c.ByName(target)
	require.NoError(t, err)
	require.NotNil(t, node)
	return node.Ancestors()
}

func TestBuildPlan_Root(t *testing.T) {
	p, err := buildPlan(loadChain(t, "a", entry("a", "")))
	require.NoError(t, err)
	assert.False(t, p.ranged)
	assert.Empty(t, p.transforms)
}

func TestBuildPlan_StoredLayersAccumulate(t *testing.T) {
	chain := loadChain(t, "c",
		entry("a", "",
			entry("b", "0-100-500",
				entry("c", "0-20-30"),
			),
		),
	)

	p, err := buildPlan(chain)
	require.NoError(t, err)
	assert.True(t, p.ranged)
	assert.Equal(t, int64(120), p.offset)
	assert.Equal(t, int64(30), p.length)
	assert.Empty(t, p.transforms)
}

func TestBuildPlan_LayersAfterDecompression(t *testing.T) {
	chain := loadChain(t, "e",
		entry("a", "",
			entry("b", "0-10-1000",
				entry("c", "8-5-200",
					entry("d", "0-7-50",
						entry("e", "8-3-20"),
					),
				),
			),
		),
	)

	p, err := buildPlan(chain)
	require.NoError(t, err)
	assert.Equal(t, int64(15), p.offset)
	assert.Equal(t, int64(200), p.length)
	// inflate(c), range(d), range(e), inflate(e)
	assert.Len(t, p.transforms, 4)
}

func TestBuildPlan_UnsupportedCompression(t *testing.T) {
	chain := loadChain(t, "b", entry("a", "", entry("b", "9-0-1")))

	_, err := buildPlan(chain)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCompression)
}
