package catalog

import (
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/stream"
	"go.trai.ch/zerr"
)

// noParent marks a root node.
const noParent = -1

// Node is an immutable package descriptor bound to one catalog generation.
// The parent relation is an index into the generation's node table, so a
// node never owns its ancestors.
type Node struct {
	spec     domain.PackageSpec
	zipped   domain.Zipped
	index    int
	parent   int
	children []int
	table    *generation
}

// NodeFactory constructs a node from its wire descriptor. parent is nil for
// roots. Catalogs accept a custom factory through WithNodeFactory.
type NodeFactory func(spec domain.PackageSpec, parent *Node) (*Node, error)

// NewNode is the default NodeFactory. It enforces that a node carries a
// compression descriptor if and only if it has a parent.
func NewNode(spec domain.PackageSpec, parent *Node) (*Node, error) {
	n := &Node{
		spec:   spec,
		parent: noParent,
	}
	n.spec.Packages = nil

	switch {
	case parent == nil && spec.Zipped != "":
		return nil, zerr.With(zerr.Wrap(domain.ErrValidation, "root package must not be zipped"), "package", spec.Name)
	case parent != nil && spec.Zipped == "":
		return nil, zerr.With(zerr.Wrap(domain.ErrValidation, "nested package requires a compression descriptor"), "package", spec.Name)
	}

	if parent != nil {
		z, err := domain.ParseZipped(spec.Zipped)
		if err != nil {
			return nil, zerr.With(err, "package", spec.Name)
		}
		n.zipped = z
		n.parent = parent.index
	}

	return n, nil
}

// Name returns the unique package name.
func (n *Node) Name() string { return n.spec.Name }

// File returns the installed file name.
func (n *Node) File() string { return n.spec.File }

// Size returns the uncompressed byte length.
func (n *Node) Size() int64 { return n.spec.Size }

// Sha256 returns the hex sha256 of the uncompressed content.
func (n *Node) Sha256() string { return n.spec.Sha256 }

// Sha1 returns the hex sha1 of the uncompressed content.
func (n *Node) Sha1() string { return n.spec.Sha1 }

// Md5 returns the hex md5 of the uncompressed content.
func (n *Node) Md5() string { return n.spec.Md5 }

// Source returns the fetch URL of a root, or the opaque path of a nested package.
func (n *Node) Source() string { return n.spec.Source }

// Zipped returns the parsed compression descriptor. It is the zero value for roots.
func (n *Node) Zipped() domain.Zipped { return n.zipped }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == noParent }

// Spec returns the node's descriptor without its children.
func (n *Node) Spec() domain.PackageSpec { return n.spec }

// Receipt returns the receipt that a successful install of this node persists.
func (n *Node) Receipt() domain.Receipt {
	return domain.Receipt{
		Name:   n.spec.Name,
		File:   n.spec.File,
		Size:   n.spec.Size,
		Sha256: n.spec.Sha256,
		Source: n.spec.Source,
	}
}

// Parent returns the enclosing package, or nil for a root.
func (n *Node) Parent() *Node {
	if n.parent == noParent || n.table == nil {
		return nil
	}
	return n.table.nodes[n.parent]
}

// Children returns the directly nested packages in catalog order.
func (n *Node) Children() []*Node {
	if n.table == nil {
		return nil
	}
	out := make([]*Node, len(n.children))
	for i, idx := range n.children {
		out[i] = n.table.nodes[idx]
	}
	return out
}

// Ancestors returns the chain from the root down to and including n.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Root returns the outermost ancestor of n.
func (n *Node) Root() *Node {
	cur := n
	for p := cur.Parent(); p != nil; p = cur.Parent() {
		cur = p
	}
	return cur
}

// DecompressionMethod returns the method code of the compression descriptor.
func (n *Node) DecompressionMethod() (int, error) {
	switch n.zipped.Method {
	case domain.MethodStored, domain.MethodDeflate:
		return n.zipped.Method, nil
	default:
		return 0, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnsupportedCompression, "unsupported compression method"),
			"package", n.spec.Name), "method", n.zipped.Method)
	}
}

// ByteSlice returns the node's offset and length within its parent's decompressed output.
func (n *Node) ByteSlice() (offset, length int64) {
	return n.zipped.Offset, n.zipped.Length
}

// Decompressor returns the transform that decodes the node's slice, or nil
// when the bytes are stored and pass through unchanged.
func (n *Node) Decompressor() (stream.Transform, error) {
	method, err := n.DecompressionMethod()
	if err != nil {
		return nil, err
	}
	if method == domain.MethodDeflate {
		return stream.Inflate, nil
	}
	return nil, nil
}
