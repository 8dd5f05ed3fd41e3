package domain

import (
	"path/filepath"
	"strings"
)

const (
	// MetaDirName is the metadata directory, both at the root and inside each package directory.
	MetaDirName = ".parcel"

	// CatalogFileName is the name of the persisted catalog inside the root metadata directory.
	CatalogFileName = "catalog.json"

	// ReceiptFileName is the name of the install receipt inside a package metadata directory.
	ReceiptFileName = "receipt.json"

	// TempDirPrefix prefixes the scratch directories created for in-flight installs.
	TempDirPrefix = "install-"

	// DefaultRootDir is the installation root used when neither a flag nor the environment sets one.
	DefaultRootDir = "packages"

	// ConfigFileName is the optional configuration file looked up in the working directory.
	ConfigFileName = "parcel.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// Layout maps packages onto the on-disk tree below an installation root.
//
//	R/<name>/<file>                 payload
//	R/<name>/.parcel/receipt.json   install receipt
//	R/<name>/.parcel/install-*/     scratch space for an in-flight install
//	R/.parcel/catalog.json          persisted catalog
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// CatalogPath returns the path of the persisted catalog.
func (l Layout) CatalogPath() string {
	return filepath.Join(l.Root, MetaDirName, CatalogFileName)
}

// PackageDir returns the install directory of the named package.
func (l Layout) PackageDir(name string) string {
	return filepath.Join(l.Root, name)
}

// MetaDir returns the metadata directory of the named package.
func (l Layout) MetaDir(name string) string {
	return filepath.Join(l.Root, name, MetaDirName)
}

// PayloadPath returns the installed payload path of the named package.
func (l Layout) PayloadPath(name, file string) string {
	return filepath.Join(l.Root, name, file)
}

// ReceiptPath returns the install receipt path of the named package.
func (l Layout) ReceiptPath(name string) string {
	return filepath.Join(l.MetaDir(name), ReceiptFileName)
}

// IsReserved reports whether a directory name below the root is never treated as a package.
func IsReserved(name string) bool {
	return name == "" || strings.HasPrefix(name, ".")
}
