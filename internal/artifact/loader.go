package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Raw decode targets. The top-level document keeps each record as raw bytes
// so a single bad record cannot fail the whole decode; optional pointers in
// the per-record shapes let validation distinguish "absent" from zero values
// before anything reaches the model.

type rawArtifact struct {
	Sources    map[string][]json.RawMessage `json:"sources"`
	Errors     []json.RawMessage            `json:"errors"`
	BuildInfos []json.RawMessage            `json:"build_infos"`
}

type rawCompiledFile struct {
	Version    *string        `json:"version"`
	BuildID    *string        `json:"build_id"`
	Profile    *string        `json:"profile"`
	SourceFile *rawSourceFile `json:"source_file"`
}

type rawSourceFile struct {
	ID  *int           `json:"id"`
	AST map[string]any `json:"ast"`
}

type rawError struct {
	SourceLocation *rawSourceLocation `json:"sourceLocation"`
	Type           *string            `json:"type"`
	ErrorCode      any                `json:"errorCode"`
	Severity       *string            `json:"severity"`
	Message        *string            `json:"message"`
}

type rawSourceLocation struct {
	File  *string `json:"file"`
	Start *int    `json:"start"`
	End   *int    `json:"end"`
}

type rawBuildInfo struct {
	ID             *string           `json:"id"`
	SourceIDToPath map[string]string `json:"source_id_to_path"`
	Language       *string           `json:"language"`
}

// Load reads and decodes an artifact file into a Root. A record whose
// required subfields are missing or wrongly typed is excluded and counted in
// LoadStats; only an unreadable file or an undecodable top-level document
// fails the whole load.
func Load(path string) (*Root, LoadStats, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return Decode(data)
}

// Decode builds a Root from raw artifact JSON bytes.
func Decode(data []byte) (*Root, LoadStats, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, LoadStats{}, fmt.Errorf("malformed artifact: %w", err)
	}

	root := &Root{Sources: make(map[string][]CompiledFile)}
	var stats LoadStats

	for filename, files := range raw.Sources {
		kept := make([]CompiledFile, 0, len(files))
		for _, rec := range files {
			var file rawCompiledFile
			if err := json.Unmarshal(rec, &file); err != nil {
				stats.SourcesDropped++
				continue
			}
			cf, ok := compiledFileFromRaw(file)
			if !ok {
				stats.SourcesDropped++
				continue
			}
			kept = append(kept, cf)
		}
		root.Sources[filename] = kept
	}

	for _, rec := range raw.Errors {
		var e rawError
		if err := json.Unmarshal(rec, &e); err != nil {
			stats.DiagnosticsDropped++
			continue
		}
		d, ok := diagnosticFromRaw(e)
		if !ok {
			stats.DiagnosticsDropped++
			continue
		}
		root.Diagnostics = append(root.Diagnostics, d)
	}

	for _, rec := range raw.BuildInfos {
		var info rawBuildInfo
		if err := json.Unmarshal(rec, &info); err != nil {
			stats.BuildInfosDropped++
			continue
		}
		if info.ID == nil || *info.ID == "" || len(info.SourceIDToPath) == 0 || info.Language == nil || *info.Language == "" {
			stats.BuildInfosDropped++
			continue
		}
		root.BuildInfos = append(root.BuildInfos, BuildInfo{
			ID:             *info.ID,
			SourceIDToPath: info.SourceIDToPath,
			Language:       *info.Language,
		})
	}

	return root, stats, nil
}

func compiledFileFromRaw(file rawCompiledFile) (CompiledFile, bool) {
	if file.SourceFile == nil || file.SourceFile.ID == nil || len(file.SourceFile.AST) == 0 {
		return CompiledFile{}, false
	}
	if file.Version == nil || *file.Version == "" ||
		file.BuildID == nil || *file.BuildID == "" ||
		file.Profile == nil || *file.Profile == "" {
		return CompiledFile{}, false
	}
	return CompiledFile{
		SourceID: *file.SourceFile.ID,
		AST:      file.SourceFile.AST,
		Version:  *file.Version,
		BuildID:  *file.BuildID,
		Profile:  *file.Profile,
	}, true
}

func diagnosticFromRaw(e rawError) (Diagnostic, bool) {
	if e.SourceLocation == nil || e.Type == nil || e.ErrorCode == nil || e.Severity == nil || e.Message == nil {
		return Diagnostic{}, false
	}
	loc := e.SourceLocation
	if loc.File == nil || loc.Start == nil || loc.End == nil {
		return Diagnostic{}, false
	}
	kind, ok := ParseSeverity(*e.Type)
	if !ok {
		return Diagnostic{}, false
	}
	sev, ok := ParseSeverity(*e.Severity)
	if !ok {
		return Diagnostic{}, false
	}
	code, ok := errorCodeString(e.ErrorCode)
	if !ok {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Location: SourceLocation{File: *loc.File, Start: *loc.Start, End: *loc.End},
		Kind:     kind,
		Code:     code,
		Severity: sev,
		Message:  *e.Message,
	}, true
}

// errorCodeString normalizes the artifact's errorCode field, which appears
// as either a JSON string or a JSON number depending on producer version.
func errorCodeString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}
