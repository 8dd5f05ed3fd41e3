// Package catalog loads, validates, indexes, diffs and persists the forest of
// package descriptors.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/parcel/internal/adapters/fs"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/zerr"
)

// generation is one wholesale-built, immutable view of a loaded catalog.
type generation struct {
	id          uint64
	format      string
	raw         []byte
	fingerprint uint64
	nodes       []*Node
	roots       []int
	byName      map[string]int
	bySha256    map[string]int
	bySha1      map[string]int
	byMd5       map[string]int
	byAny       map[string]int
}

// Catalog is the validated, multiply indexed package forest. It starts
// unloaded and becomes loaded through Load, Read or ReadIfExists.
//
// Traversal observes the live catalog: an iterator started on one
// generation stops as soon as a reload installs another.
type Catalog struct {
	path    string
	factory NodeFactory
	format  domain.FormatVersion

	mu      sync.RWMutex
	gen     *generation
	counter uint64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithNodeFactory replaces the default node construction strategy.
func WithNodeFactory(factory NodeFactory) Option {
	return func(c *Catalog) {
		c.factory = factory
	}
}

// WithSupportedFormat overrides the format version the catalog accepts.
func WithSupportedFormat(v domain.FormatVersion) Option {
	return func(c *Catalog) {
		c.format = v
	}
}

// New returns an unloaded catalog persisted at path.
func New(path string, opts ...Option) *Catalog {
	c := &Catalog{
		path:    path,
		factory: NewNode,
		format:  domain.SupportedFormat,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the persistence path.
func (c *Catalog) Path() string {
	return c.path
}

// Load parses and validates raw catalog text, installs it as the current
// generation and reports how it differs from the previous one. On any error
// the catalog keeps its previous state.
func (c *Catalog) Load(raw []byte) (domain.DiffReport, error) {
	next, err := c.build(raw)
	if err != nil {
		return domain.DiffReport{}, err
	}

	c.mu.Lock()
	prev := c.gen
	c.counter++
	next.id = c.counter
	c.gen = next
	c.mu.Unlock()

	return diff(prev, next), nil
}

// Read loads the persisted catalog.
func (c *Catalog) Read() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return errors.Join(domain.ErrCatalogReadFailed, zerr.With(zerr.Wrap(err, "failed to read catalog"), "path", c.path))
	}
	_, err = c.Load(raw)
	return err
}

// ReadIfExists loads the persisted catalog when present and reports whether it was.
func (c *Catalog) ReadIfExists() (bool, error) {
	if err := c.Read(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Write atomically persists the text of the current generation.
func (c *Catalog) Write() error {
	gen, err := c.loaded()
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(c.path, gen.raw); err != nil {
		return errors.Join(domain.ErrCatalogWriteFailed, zerr.With(zerr.Wrap(err, "failed to write catalog"), "path", c.path))
	}
	return nil
}

// ByName returns the node with the given name, or nil.
func (c *Catalog) ByName(name string) (*Node, error) {
	return c.lookup(func(g *generation) map[string]int { return g.byName }, name)
}

// BySha256 returns the node with the given sha256, or nil.
func (c *Catalog) BySha256(sum string) (*Node, error) {
	return c.lookup(func(g *generation) map[string]int { return g.bySha256 }, sum)
}

// BySha1 returns the node with the given sha1, or nil.
func (c *Catalog) BySha1(sum string) (*Node, error) {
	return c.lookup(func(g *generation) map[string]int { return g.bySha1 }, sum)
}

// ByMd5 returns the node with the given md5, or nil.
func (c *Catalog) ByMd5(sum string) (*Node, error) {
	return c.lookup(func(g *generation) map[string]int { return g.byMd5 }, sum)
}

// ByAnyKey returns the node owning key in any of the four key spaces, or nil.
func (c *Catalog) ByAnyKey(key string) (*Node, error) {
	return c.lookup(func(g *generation) map[string]int { return g.byAny }, key)
}

// Traverse yields every node in pre-order: each root followed by its whole
// subtree. The sequence is restartable and stops early when the catalog is
// reloaded mid-iteration, so it never mixes two generations.
func (c *Catalog) Traverse() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		gen := c.current()
		if gen == nil {
			return
		}
		for _, n := range gen.nodes {
			if cur := c.current(); cur == nil || cur.id != gen.id {
				return
			}
			if !yield(n) {
				return
			}
		}
	}
}

// Roots returns the root nodes of the current generation.
func (c *Catalog) Roots() []*Node {
	gen := c.current()
	if gen == nil {
		return nil
	}
	out := make([]*Node, len(gen.roots))
	for i, idx := range gen.roots {
		out[i] = gen.nodes[idx]
	}
	return out
}

// Loaded reports whether any generation has been installed.
func (c *Catalog) Loaded() bool {
	return c.current() != nil
}

// Format returns the format string of the current generation.
func (c *Catalog) Format() string {
	if gen := c.current(); gen != nil {
		return gen.format
	}
	return ""
}

// Len returns the number of packages in the current generation.
func (c *Catalog) Len() int {
	if gen := c.current(); gen != nil {
		return len(gen.nodes)
	}
	return 0
}

// Fingerprint returns the xxhash64 of the current generation's raw text.
func (c *Catalog) Fingerprint() uint64 {
	if gen := c.current(); gen != nil {
		return gen.fingerprint
	}
	return 0
}

// Generation returns the identifier of the current generation, zero when unloaded.
func (c *Catalog) Generation() uint64 {
	if gen := c.current(); gen != nil {
		return gen.id
	}
	return 0
}

func (c *Catalog) current() *generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Catalog) loaded() (*generation, error) {
	gen := c.current()
	if gen == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotLoaded, "catalog has not been loaded"), "path", c.path)
	}
	return gen, nil
}

func (c *Catalog) lookup(index func(*generation) map[string]int, key string) (*Node, error) {
	gen, err := c.loaded()
	if err != nil {
		return nil, err
	}
	idx, ok := index(gen)[key]
	if !ok {
		return nil, nil
	}
	return gen.nodes[idx], nil
}

// build parses raw text into a fully indexed generation without touching
// the catalog's current state.
func (c *Catalog) build(raw []byte) (*generation, error) {
	var doc domain.CatalogDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(domain.ErrValidation, zerr.Wrap(err, "malformed catalog document"))
	}
	if dec.More() {
		return nil, zerr.Wrap(domain.ErrValidation, "trailing data after catalog document")
	}

	version, err := domain.ParseFormatVersion(doc.Format)
	if err != nil {
		return nil, err
	}
	if !c.format.Accepts(version) {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrValidation, "unsupported catalog format"),
			"format", doc.Format), "supported", c.format.String())
	}

	b := &builder{
		factory: c.factory,
		gen: &generation{
			format:      doc.Format,
			raw:         bytes.Clone(raw),
			fingerprint: xxhash.Sum64(raw),
			byName:      make(map[string]int),
			bySha256:    make(map[string]int),
			bySha1:      make(map[string]int),
			byMd5:       make(map[string]int),
			byAny:       make(map[string]int),
		},
	}
	for _, spec := range doc.Packages {
		if err := b.add(spec, nil); err != nil {
			return nil, err
		}
	}

	return b.gen, nil
}
