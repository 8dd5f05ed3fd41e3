package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

const (
	// MethodStored passes a child's bytes through unchanged.
	MethodStored = 0

	// MethodDeflate marks a child stored as a raw deflate stream.
	MethodDeflate = 8
)

// PackageSpec is the wire form of a package descriptor in the catalog JSON.
// Root entries omit Zipped; nested entries require it.
type PackageSpec struct {
	Name     string        `json:"name"`
	File     string        `json:"file"`
	Size     int64         `json:"size"`
	Sha256   string        `json:"sha256"`
	Sha1     string        `json:"sha1"`
	Md5      string        `json:"md5"`
	Source   string        `json:"source"`
	Zipped   string        `json:"zipped,omitempty"`
	Packages []PackageSpec `json:"packages,omitempty"`
}

// CatalogDocument is the top-level catalog JSON document.
type CatalogDocument struct {
	Format   string        `json:"format"`
	Packages []PackageSpec `json:"packages"`
}

// Zipped is a parsed compression descriptor: a child's method and its byte
// slice within the decompressed output of its parent.
type Zipped struct {
	Method int
	Offset int64
	Length int64
}

// ParseZipped parses a "METHOD-OFFSET-LENGTH" compression descriptor.
// The method is not checked here; unknown methods surface when the
// decompressor is requested.
func ParseZipped(s string) (Zipped, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Zipped{}, zerr.With(zerr.Wrap(ErrValidation, "malformed compression descriptor"), "zipped", s)
	}

	method, err := strconv.Atoi(parts[0])
	if err != nil || method < 0 {
		return Zipped{}, zerr.With(zerr.Wrap(ErrValidation, "malformed compression method"), "zipped", s)
	}

	offset, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || offset < 0 {
		return Zipped{}, zerr.With(zerr.Wrap(ErrValidation, "malformed compression offset"), "zipped", s)
	}

	length, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || length < 0 {
		return Zipped{}, zerr.With(zerr.Wrap(ErrValidation, "malformed compression length"), "zipped", s)
	}

	return Zipped{Method: method, Offset: offset, Length: length}, nil
}

// String renders the descriptor in its wire form.
func (z Zipped) String() string {
	return strconv.Itoa(z.Method) + "-" +
		strconv.FormatInt(z.Offset, 10) + "-" +
		strconv.FormatInt(z.Length, 10)
}

// FormatVersion is a parsed "MAJOR.MINOR" catalog format.
type FormatVersion struct {
	Major int
	Minor int
}

// SupportedFormat is the catalog format this engine reads and writes.
var SupportedFormat = FormatVersion{Major: 1, Minor: 2}

// ParseFormatVersion parses a "MAJOR.MINOR" string of two non-negative integers.
func ParseFormatVersion(s string) (FormatVersion, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || !isDigits(major) || !isDigits(minor) {
		return FormatVersion{}, zerr.With(zerr.Wrap(ErrValidation, "malformed catalog format"), "format", s)
	}

	maj, err := strconv.Atoi(major)
	if err != nil {
		return FormatVersion{}, zerr.With(zerr.Wrap(ErrValidation, "malformed catalog format"), "format", s)
	}

	mnr, err := strconv.Atoi(minor)
	if err != nil {
		return FormatVersion{}, zerr.With(zerr.Wrap(ErrValidation, "malformed catalog format"), "format", s)
	}

	return FormatVersion{Major: maj, Minor: mnr}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Accepts reports whether a catalog of format other can be read by an engine
// supporting v: the major must match exactly and the minor must not be older.
func (v FormatVersion) Accepts(other FormatVersion) bool {
	return other.Major == v.Major && other.Minor >= v.Minor
}

// String renders the version as "MAJOR.MINOR".
func (v FormatVersion) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}
