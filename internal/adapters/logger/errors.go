package logger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// messager reports a single layer's message without its cause chain.
// zerr.Error implements it.
type messager interface {
	Message() string
}

// metadataer exposes structured metadata attached to an error layer.
type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry is one layer of an error chain as printed to the user.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries flattens err into printable layers. zerr layers
// contribute their own message and metadata; a layer with an empty message
// only carries metadata, which is folded into the next printed layer.
// Joined errors are walked branch by branch and repeated messages are dropped.
// A plain error ends its branch with its full text.
func collectErrorEntries(err error) []ErrorEntry {
	var (
		entries []ErrorEntry
		pending map[string]any
		seen    = make(map[string]bool)
	)

	var walk func(error)
	walk = func(current error) {
		for current != nil {
			if joined, ok := current.(interface{ Unwrap() []error }); ok {
				for _, e := range joined.Unwrap() {
					walk(e)
				}
				return
			}

			m, ok := current.(messager)
			if !ok {
				appendEntry(&entries, &pending, seen, current.Error(), nil)
				return
			}

			var meta map[string]any
			if md, ok := current.(metadataer); ok {
				meta = md.Metadata()
			}

			if m.Message() == "" {
				pending = mergeMetadata(pending, meta)
			} else {
				appendEntry(&entries, &pending, seen, m.Message(), meta)
			}
			current = errors.Unwrap(current)
		}
	}
	walk(err)

	if len(pending) > 0 && len(entries) > 0 {
		last := &entries[len(entries)-1]
		last.Metadata = mergeMetadata(last.Metadata, pending)
	}

	return entries
}

func appendEntry(entries *[]ErrorEntry, pending *map[string]any, seen map[string]bool, msg string, meta map[string]any) {
	if *pending != nil {
		meta = mergeMetadata(*pending, meta)
		*pending = nil
	}

	if seen[msg] {
		if len(meta) > 0 {
			for i := range *entries {
				if (*entries)[i].Message == msg {
					(*entries)[i].Metadata = mergeMetadata((*entries)[i].Metadata, meta)
				}
			}
		}
		return
	}
	seen[msg] = true
	*entries = append(*entries, ErrorEntry{Message: msg, Metadata: meta})
}

func mergeMetadata(dst, src map[string]any) map[string]any {
	if dst == nil {
		return src
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// formatErrorEntries renders entries as
//
//	Error: outer
//	       key: value
//
//	  Caused by:
//	    → inner
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string

	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")

		var head, indent string
		if i == 0 {
			head, indent = "Error: ", "       "
		} else {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			head, indent = "    → ", "      "
		}

		lines = append(lines, head+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}
		for _, k := range sortedKeys(entry.Metadata) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, entry.Metadata[k]))
		}
	}

	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
