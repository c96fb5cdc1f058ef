package embedder

import "strings"

// maxDiffChars bounds how much diff text is ever submitted to an
// embedder after preprocessing.
const maxDiffChars = 8000

// PrepareDiff reduces a unified diff to its change-carrying content:
// added/removed lines and ordinary context lines, with hunk headers
// and file metadata stripped, truncated to maxChars. The diff embedders
// call it themselves (see the Embedder.EmbedDiff implementations); the
// detector core does not.
func PrepareDiff(diff string, maxChars int) string {
	if diff == "" {
		return ""
	}

	lines := strings.Split(diff, "\n")
	var kept []string
	for _, line := range lines {
		if isDiffMetadata(line) {
			continue
		}
		kept = append(kept, line)
	}

	result := strings.Join(kept, "\n")
	if maxChars > 0 && len(result) > maxChars {
		result = result[:maxChars]
	}
	return result
}

// isDiffMetadata reports whether a line is diff plumbing rather than
// content: hunk headers (@@ ... @@), "diff --git" headers, "index ..."
// lines, and the "+++"/"---" file markers.
func isDiffMetadata(line string) bool {
	switch {
	case strings.HasPrefix(line, "@@"):
		return true
	case strings.HasPrefix(line, "diff "):
		return true
	case strings.HasPrefix(line, "index "):
		return true
	case strings.HasPrefix(line, "+++ "):
		return true
	case strings.HasPrefix(line, "--- "):
		return true
	default:
		return false
	}
}
