package domain

import "go.trai.ch/zerr"

var (
	// ErrValidation is returned when a catalog is malformed, has a duplicate key,
	// or declares an unsupported format version.
	ErrValidation = zerr.New("catalog validation failed")

	// ErrNotLoaded is returned when a catalog operation runs before any successful load.
	ErrNotLoaded = zerr.New("catalog not loaded")

	// ErrUnknownPackage is returned when an identifier does not match any catalog entry.
	ErrUnknownPackage = zerr.New("unknown package")

	// ErrNotInstalled is returned when a package has no install receipt.
	ErrNotInstalled = zerr.New("package not installed")

	// ErrIntegrity is returned when a payload's size or sha256 does not match its descriptor.
	ErrIntegrity = zerr.New("integrity check failed")

	// ErrUnsupportedCompression is returned for a compression method other than stored (0) or deflate (8).
	ErrUnsupportedCompression = zerr.New("unsupported compression method")

	// ErrTransport is returned when a network request fails below the HTTP status level.
	ErrTransport = zerr.New("transport failure")

	// ErrInvalidRange is returned when a ranged request is answered with the wrong status or length.
	ErrInvalidRange = zerr.New("invalid range response")

	// ErrUnexpectedStatus is returned when an unranged request is not answered with 200.
	ErrUnexpectedStatus = zerr.New("unexpected response status")

	// ErrCatalogReadFailed is returned when the persisted catalog cannot be read.
	ErrCatalogReadFailed = zerr.New("failed to read catalog")

	// ErrCatalogWriteFailed is returned when the catalog cannot be persisted.
	ErrCatalogWriteFailed = zerr.New("failed to write catalog")

	// ErrReceiptReadFailed is returned when an install receipt cannot be read.
	ErrReceiptReadFailed = zerr.New("failed to read install receipt")

	// ErrReceiptUnmarshalFailed is returned when an install receipt is not valid JSON.
	ErrReceiptUnmarshalFailed = zerr.New("failed to unmarshal install receipt")

	// ErrReceiptWriteFailed is returned when an install receipt cannot be written.
	ErrReceiptWriteFailed = zerr.New("failed to write install receipt")

	// ErrDownloadFailed is returned when streaming a payload to its temporary file fails.
	ErrDownloadFailed = zerr.New("failed to download package")

	// ErrCommitFailed is returned when a verified payload cannot be moved into place.
	ErrCommitFailed = zerr.New("failed to commit package")

	// ErrRemoveFailed is returned when a package directory cannot be removed.
	ErrRemoveFailed = zerr.New("failed to remove package")

	// ErrInstallFailed is returned by the application layer when one or more installs fail.
	ErrInstallFailed = zerr.New("install failed")

	// ErrNoPackagesSpecified is returned when a command needs package identifiers and got none.
	ErrNoPackagesSpecified = zerr.New("no packages specified")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidOutputMode is returned when the output mode is not auto, interactive or linear.
	ErrInvalidOutputMode = zerr.New("invalid output mode")

	// ErrInvalidHeader is returned when a header override is not in key=value form.
	ErrInvalidHeader = zerr.New("invalid header, expected key=value")
)
