package domain

// Receipt is the persisted proof of a successful install. It is written last,
// after the payload is in place, so its presence implies a verified install.
type Receipt struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Source string `json:"source"`
}

// Matches reports whether the receipt describes the same installed content as
// the descriptor. Source is ignored: moving a package does not make it stale.
func (r *Receipt) Matches(spec *PackageSpec) bool {
	if r == nil || spec == nil {
		return false
	}
	return r.Name == spec.Name &&
		r.File == spec.File &&
		r.Size == spec.Size &&
		r.Sha256 == spec.Sha256
}

// DiffReport classifies package names between two catalog generations.
// Updated means file, size, or sha256 changed; a source-only change is unchanged.
type DiffReport struct {
	Added   []string `json:"added,omitempty"`
	Updated []string `json:"updated,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether the report holds no changes.
func (d DiffReport) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}
