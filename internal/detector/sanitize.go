package detector

import "strings"

// isControlByte reports whether b is one of the control bytes
// sanitization strips from free-text fields: the C0 range excluding
// tab/LF/CR, plus DEL.
func isControlByte(b byte) bool {
	switch {
	case b <= 0x08:
		return true
	case b == 0x0B || b == 0x0C:
		return true
	case b >= 0x0E && b <= 0x1F:
		return true
	case b == 0x7F:
		return true
	default:
		return false
	}
}

func stripControlBytes(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r < 0x80 && isControlByte(byte(r)) }) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 && isControlByte(c) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// normalizeFilePath removes leading slashes, replaces backslashes with
// forward slashes, and erases ".." segments to prevent path traversal
// in persisted file lists.
func normalizeFilePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")

	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}

// sanitize applies stripControlBytes to the descriptor's free-text
// fields and normalizeFilePath to each file path, returning a new
// Descriptor; the input is left untouched.
func sanitize(d Descriptor) Descriptor {
	out := Descriptor{
		ID:          d.ID,
		Title:       stripControlBytes(d.Title),
		Description: stripControlBytes(d.Description),
		Diff:        stripControlBytes(d.Diff),
	}
	if d.Files != nil {
		out.Files = make([]string, len(d.Files))
		for i, f := range d.Files {
			out.Files[i] = normalizeFilePath(f)
		}
	}
	return out
}
