package domain

// EventKind identifies a lifecycle notification emitted by the installer.
type EventKind uint8

const (
	// EventBeforeInstall is emitted once a target has been resolved and is not current.
	EventBeforeInstall EventKind = iota
	// EventBeforeDownload is emitted right before the root resource is requested.
	EventBeforeDownload
	// EventProgress carries cumulative bytes written and the expected total.
	EventProgress
	// EventAfterDownload is emitted once the stream has been fully written to the temp file.
	EventAfterDownload
	// EventAfterInstall is emitted after the receipt has been committed.
	EventAfterInstall
	// EventCurrent is the only event emitted for a package that is already installed and current.
	EventCurrent
	// EventInstallFailed is emitted when an install aborts; Err holds the cause.
	EventInstallFailed
	// EventBeforeCleanup is emitted before an unreferenced package directory is removed.
	EventBeforeCleanup
	// EventAfterCleanup is emitted after an unreferenced package directory is removed.
	EventAfterCleanup
)

// String returns the kebab-case name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventBeforeInstall:
		return "before-install"
	case EventBeforeDownload:
		return "before-download"
	case EventProgress:
		return "progress"
	case EventAfterDownload:
		return "after-download"
	case EventAfterInstall:
		return "after-install"
	case EventCurrent:
		return "current"
	case EventInstallFailed:
		return "install-failed"
	case EventBeforeCleanup:
		return "before-cleanup"
	case EventAfterCleanup:
		return "after-cleanup"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification for a single package.
type Event struct {
	Kind    EventKind
	Package string
	Written int64
	Total   int64
	Err     error
}
