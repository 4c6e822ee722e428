package repository

import (
	"strings"

	"github.com/weehan299/poetica/app/database"
)

// Thresholds for the preview classifier. These are the most likely tuning
// point in the whole engine, so they're named rather than inlined.
const (
	previewMaxLength      = 250
	previewTailWindow     = 50
	previewShortMaxLength = 150
	previewShortMaxLines  = 2
)

// IsPreview reports whether a remote-sourced poem looks like a truncated
// excerpt rather than the full text. It ORs several cheap signals and is
// deliberately permissive: a false positive costs one extra remote call,
// a false negative shows truncated text to the reader. Bundled and
// user-added poems are always complete and never classified as previews.
func IsPreview(poem database.Poem) bool {
	if poem.SourceType != database.SourceRemote {
		return false
	}

	content := strings.TrimSpace(poem.Content)

	if len(content) <= previewMaxLength {
		return true
	}

	if strings.HasPrefix(content, "...") || strings.HasPrefix(content, "…") {
		return true
	}

	if strings.Contains(content, "...") || strings.Contains(content, "…") {
		return true
	}

	tail := content
	if len(tail) > previewTailWindow {
		tail = tail[len(tail)-previewTailWindow:]
	}
	if !strings.ContainsAny(tail, ".!?") {
		return true
	}

	lines := strings.Count(content, "\n") + 1
	if lines <= previewShortMaxLines && len(content) < previewShortMaxLength {
		return true
	}

	return false
}
