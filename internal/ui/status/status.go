// Package status turns installer events and finished spans into the short
// human-readable phrases both renderers print.
package status

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.trai.ch/parcel/internal/core/domain"
)

// Size formats a byte count with binary units, e.g. "1.2 MiB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Line describes an event without its package prefix.
func Line(e domain.Event) string {
	switch e.Kind {
	case domain.EventBeforeInstall:
		return "installing"
	case domain.EventBeforeDownload:
		return "downloading"
	case domain.EventProgress:
		if e.Total > 0 {
			return "downloading " + Size(e.Written) + " / " + Size(e.Total)
		}
		return "downloading " + Size(e.Written)
	case domain.EventAfterDownload:
		return "verifying"
	case domain.EventAfterInstall:
		return "installed"
	case domain.EventCurrent:
		return "already current"
	case domain.EventInstallFailed:
		return "install failed"
	case domain.EventBeforeCleanup:
		return "removing unreferenced package"
	case domain.EventAfterCleanup:
		return "removed"
	default:
		return e.Kind.String()
	}
}

// Final reports whether no further events follow e for its package.
func Final(e domain.Event) bool {
	switch e.Kind {
	case domain.EventAfterInstall, domain.EventCurrent, domain.EventInstallFailed, domain.EventAfterCleanup:
		return true
	default:
		return false
	}
}

// Quarter returns which quarter of the download a progress event reached,
// from 0 to 4, or -1 when the total is unknown.
func Quarter(e domain.Event) int {
	if e.Total <= 0 {
		return -1
	}
	q := int(e.Written * 4 / e.Total)
	return min(q, 4)
}

var pastTense = map[string]string{
	"install": "installed",
	"update":  "updated",
	"remove":  "removed",
	"cleanup": "cleaned up",
}

// Completion describes a finished span, e.g. "installed in 1.3s" or
// "failed after 200ms".
func Completion(spanName string, elapsed time.Duration, err error) string {
	elapsed = elapsed.Round(time.Millisecond)
	if err != nil {
		return "failed after " + elapsed.String()
	}

	verb, _, _ := strings.Cut(spanName, " ")
	done, ok := pastTense[verb]
	if !ok {
		done = "completed"
	}
	return done + " in " + elapsed.String()
}
