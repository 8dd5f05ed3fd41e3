package installer

import (
	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/stream"
)

// plan describes how to extract a target's bytes from its root resource:
// one byte range against the raw root stream, followed by alternating range
// filters and decompressors that peel each nested archive layer.
type plan struct {
	root       *catalog.Node
	ranged     bool
	offset     int64
	length     int64
	transforms stream.Chain
}

// buildPlan computes the extraction plan for a root-to-target chain.
//
// Until the first decompressing layer is met, nested slices address one
// contiguous region of the raw root bytes, so their offsets accumulate into
// a single network range and the innermost length wins. Every layer after
// that is sliced out of the previous layer's decompressed output.
func buildPlan(chain []*catalog.Node) (plan, error) {
	p := plan{root: chain[0]}
	if len(chain) == 1 {
		return p, nil
	}

	p.ranged = true
	opened := false
	initialized := false
	for _, node := range chain[1:] {
		offset, length := node.ByteSlice()

		switch {
		case opened:
			p.transforms = append(p.transforms, stream.Range(offset, length))
		case initialized:
			p.offset += offset
			p.length = length
		default:
			p.offset, p.length = offset, length
			initialized = true
		}

		dec, err := node.Decompressor()
		if err != nil {
			return plan{}, err
		}
		if dec != nil {
			p.transforms = append(p.transforms, dec)
			opened = true
		}
	}

	return p, nil
}
