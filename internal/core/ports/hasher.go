package ports

// Hasher computes content digests of installed files.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// HashFile returns the size and hex sha256 of the file at path.
	HashFile(path string) (size int64, sha256 string, err error)
}
