// Package artifact loads a compiler build artifact (the JSON document a
// solc build step emits) into a typed in-memory model: compiled sources with
// their raw ASTs, build diagnostics, and build metadata.
package artifact

import "strings"

// Severity defines the importance of an artifact diagnostic.
type Severity uint8

const (
	SevWarning Severity = iota
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity maps the artifact's severity strings onto Severity.
// Matching is case-insensitive; unknown strings report false.
func ParseSeverity(value string) (Severity, bool) {
	switch strings.ToLower(value) {
	case "warning":
		return SevWarning, true
	case "error":
		return SevError, true
	}
	return 0, false
}

// SourceLocation is a byte range in a named file.
type SourceLocation struct {
	File  string
	Start int
	End   int
}

// Diagnostic is one compiler diagnostic from the artifact. Kind is the
// artifact's "type" field, Severity its "severity" field; they usually agree
// but are recorded separately.
type Diagnostic struct {
	Location SourceLocation
	Kind     Severity
	Code     string
	Severity Severity
	Message  string
}

// BuildInfo is one build-unit record. SourceIDToPath keeps the artifact's
// string keys; the index build converts them to numeric file ids.
type BuildInfo struct {
	ID             string
	SourceIDToPath map[string]string
	Language       string
}

// CompiledFile is one compiled source: its numeric file id, the raw AST as
// an opaque string-keyed tree, and build provenance.
type CompiledFile struct {
	SourceID int
	AST      map[string]any
	Version  string
	BuildID  string
	Profile  string
}

// Root aggregates everything loaded from one artifact. It is constructed
// once and never mutated afterward.
type Root struct {
	Sources     map[string][]CompiledFile
	Diagnostics []Diagnostic
	BuildInfos  []BuildInfo
}

// LoadStats counts records that were present in the artifact but excluded
// from Root because a required subfield was missing or malformed.
type LoadStats struct {
	SourcesDropped     int
	DiagnosticsDropped int
	BuildInfosDropped  int
}

// Total returns the number of dropped records across all categories.
func (s LoadStats) Total() int {
	return s.SourcesDropped + s.DiagnosticsDropped + s.BuildInfosDropped
}
