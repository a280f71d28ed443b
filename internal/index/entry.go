// Package index builds and queries a flat spatial index over the AST nodes
// of a build artifact. Entries are produced by Walker, aggregated per file
// by PositionIndex, and queried by byte offset.
package index

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Entry is one indexed AST node: a byte range in its file, the node's type
// tag, its nesting depth (root = 0), and the node's full payload kept opaque
// so declaration resolution can probe arbitrary fields.
type Entry struct {
	NodeID    int64
	FileID    int64
	StartByte uint32
	EndByte   uint32
	TypeTag   string
	Depth     int
	Raw       map[string]any
}

// Span returns the entry's half-open byte range as a string, for logs.
func (e *Entry) Span() string {
	return fmt.Sprintf("%d:%d-%d", e.FileID, e.StartByte, e.EndByte)
}

// Contains reports whether the half-open range [StartByte, EndByte)
// contains offset.
func (e *Entry) Contains(offset uint32) bool {
	return e.StartByte <= offset && offset < e.EndByte
}

// SrcRange is a decoded AST "src" attribute.
type SrcRange struct {
	Start  uint32
	Length uint32
	FileID int64
}

// End returns the exclusive end offset of the range.
func (r SrcRange) End() uint32 {
	return r.Start + r.Length
}

// ParseSrc decodes the artifact's "start:length:fileId" source attribute.
// Start and length must be non-negative integers; the file id may be
// negative (the compiler uses -1 for synthesized nodes).
func ParseSrc(src string) (SrcRange, bool) {
	parts := strings.Split(src, ":")
	if len(parts) != 3 {
		return SrcRange{}, false
	}
	rawStart, err := strconv.Atoi(parts[0])
	if err != nil {
		return SrcRange{}, false
	}
	rawLength, err := strconv.Atoi(parts[1])
	if err != nil {
		return SrcRange{}, false
	}
	fileID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return SrcRange{}, false
	}
	start, err := safecast.Conv[uint32](rawStart)
	if err != nil {
		return SrcRange{}, false
	}
	length, err := safecast.Conv[uint32](rawLength)
	if err != nil {
		return SrcRange{}, false
	}
	if start+length < start {
		return SrcRange{}, false
	}
	return SrcRange{Start: start, Length: length, FileID: fileID}, true
}

// IntField reads an integer-valued attribute from a raw node. JSON decoding
// yields float64, the msgpack cache yields sized ints; both are accepted as
// long as the value is integral.
func IntField(node map[string]any, key string) (int64, bool) {
	value, ok := node[key]
	if !ok {
		return 0, false
	}
	return asInt64(value)
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// StringField reads a string-valued attribute from a raw node.
func StringField(node map[string]any, key string) (string, bool) {
	value, ok := node[key]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
