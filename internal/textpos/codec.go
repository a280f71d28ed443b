// Package textpos converts between editor positions (zero-based line plus
// UTF-16 code-unit column) and zero-based UTF-8 byte offsets in a text buffer.
// The conversion is stateless: every call derives what it needs from the
// buffer it is given.
package textpos

import (
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"
)

const maxUint32 = ^uint32(0)

// Position is an editor-protocol position: zero-based line, zero-based
// column counted in UTF-16 code units.
type Position struct {
	Line      int
	Character int
}

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// newlineIndex returns the byte offsets of every '\n' in content.
func newlineIndex(content []byte) []uint32 {
	var out []uint32
	for i, b := range content {
		if b == '\n' {
			out = append(out, safeUint32(i))
		}
	}
	return out
}

// OffsetForPosition converts pos into a byte offset in content. A line past
// the end of the buffer saturates to the content length; a column past the
// end of its line saturates to the line end. A column landing between the
// two UTF-16 units of a surrogate-pair character consumes the whole
// character and resolves to the offset just past it.
func OffsetForPosition(content []byte, pos Position) uint32 {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	if len(content) == 0 {
		return 0
	}
	lineIdx := newlineIndex(content)
	lineCount := len(lineIdx) + 1
	contentLen := safeUint32(len(content))
	if pos.Line >= lineCount {
		return contentLen
	}
	var lineStart uint32
	if pos.Line > 0 {
		lineStart = lineIdx[pos.Line-1] + 1
	}
	lineEnd := contentLen
	if pos.Line < len(lineIdx) {
		lineEnd = lineIdx[pos.Line]
	}
	if lineStart > lineEnd {
		return lineEnd
	}
	units := 0
	off := lineStart
	for off < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRune(content[off:lineEnd])
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		off += safeUint32(size)
	}
	return off
}

// PositionForOffset converts a byte offset in content into a Position. An
// offset at or past the end of content maps to the last line and its full
// UTF-16 length. The offset is assumed to land on a UTF-8 boundary; offsets
// inside a multi-byte sequence round down to the sequence start.
func PositionForOffset(content []byte, offset uint32) Position {
	contentLen := safeUint32(len(content))
	if offset > contentLen {
		offset = contentLen
	}
	lineIdx := newlineIndex(content)
	idx := sort.Search(len(lineIdx), func(i int) bool { return lineIdx[i] >= offset })
	line := idx
	var lineStart uint32
	if idx > 0 {
		lineStart = lineIdx[idx-1] + 1
	}
	if lineStart > offset {
		lineStart = offset
	}
	units := 0
	for off := lineStart; off < offset; {
		r, size := utf8.DecodeRune(content[off:offset])
		if off+safeUint32(size) > offset {
			break
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		off += safeUint32(size)
	}
	return Position{Line: line, Character: units}
}
