package catalog

import (
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	sha1HexLen = 40
	md5HexLen  = 32
)

type builder struct {
	factory NodeFactory
	gen     *generation
}

// add constructs spec and its subtree in pre-order.
func (b *builder) add(spec domain.PackageSpec, parent *Node) error {
	if err := validateSpec(spec, parent == nil); err != nil {
		return err
	}

	n, err := b.factory(spec, parent)
	if err != nil {
		return err
	}

	n.index = len(b.gen.nodes)
	n.table = b.gen
	n.children = nil
	if parent != nil {
		n.parent = parent.index
	} else {
		n.parent = noParent
	}

	if err := b.index(n); err != nil {
		return err
	}

	b.gen.nodes = append(b.gen.nodes, n)
	if parent != nil {
		parent.children = append(parent.children, n.index)
	} else {
		b.gen.roots = append(b.gen.roots, n.index)
	}

	for _, child := range spec.Packages {
		if err := b.add(child, n); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) index(n *Node) error {
	spaces := []struct {
		field string
		key   string
		idx   map[string]int
	}{
		{"name", n.spec.Name, b.gen.byName},
		{"sha256", n.spec.Sha256, b.gen.bySha256},
		{"sha1", n.spec.Sha1, b.gen.bySha1},
		{"md5", n.spec.Md5, b.gen.byMd5},
	}

	for _, s := range spaces {
		if _, ok := s.idx[s.key]; ok {
			return duplicateKey(n, s.field, s.key)
		}
		if owner, ok := b.gen.byAny[s.key]; ok && owner != n.index {
			return duplicateKey(n, s.field, s.key)
		}
	}

	for _, s := range spaces {
		s.idx[s.key] = n.index
		b.gen.byAny[s.key] = n.index
	}
	return nil
}

func duplicateKey(n *Node, field, key string) error {
	err := zerr.Wrap(domain.ErrValidation, "duplicate "+field)
	return zerr.With(zerr.With(err, "package", n.spec.Name), field, key)
}

func validateSpec(spec domain.PackageSpec, root bool) error {
	invalid := func(msg string) error {
		return zerr.With(zerr.Wrap(domain.ErrValidation, msg), "package", spec.Name)
	}

	switch {
	case spec.Name == "":
		return invalid("package name is empty")
	case domain.IsReserved(spec.Name) || strings.ContainsAny(spec.Name, `/\`):
		return invalid("package name is not a valid directory name")
	case spec.File == "":
		return invalid("package file is empty")
	case domain.IsReserved(spec.File) || strings.ContainsAny(spec.File, `/\`):
		return invalid("package file is not a valid file name")
	case spec.Size < 0:
		return invalid("package size is negative")
	case root && spec.Source == "":
		return invalid("root package has no source")
	}

	if err := digest.SHA256.Validate(spec.Sha256); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrValidation, "malformed sha256"), "package", spec.Name), "sha256", spec.Sha256)
	}
	if !isHex(spec.Sha1, sha1HexLen) {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrValidation, "malformed sha1"), "package", spec.Name), "sha1", spec.Sha1)
	}
	if !isHex(spec.Md5, md5HexLen) {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrValidation, "malformed md5"), "package", spec.Name), "md5", spec.Md5)
	}
	return nil
}

func isHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// diff classifies package names between two generations. A source-only
// change is not reported.
func diff(prev, next *generation) domain.DiffReport {
	var report domain.DiffReport
	if prev != nil && prev.fingerprint == next.fingerprint && string(prev.raw) == string(next.raw) {
		return report
	}

	for _, n := range next.nodes {
		if prev == nil {
			report.Added = append(report.Added, n.spec.Name)
			continue
		}
		idx, ok := prev.byName[n.spec.Name]
		if !ok {
			report.Added = append(report.Added, n.spec.Name)
			continue
		}
		old := prev.nodes[idx].spec
		if old.File != n.spec.File || old.Size != n.spec.Size || old.Sha256 != n.spec.Sha256 {
			report.Updated = append(report.Updated, n.spec.Name)
		}
	}

	if prev != nil {
		for _, n := range prev.nodes {
			if _, ok := next.byName[n.spec.Name]; !ok {
				report.Removed = append(report.Removed, n.spec.Name)
			}
		}
	}
	return report
}
