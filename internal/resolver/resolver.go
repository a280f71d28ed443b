// Package resolver answers the two query-facing operations over a sealed
// position index: find the AST node at an editor position, and map a node
// to the location of the declaration it references.
package resolver

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"soldef/internal/index"
	"soldef/internal/textpos"
)

// typeIDRef matches compiler type identifiers such as
// "t_struct$_Foo_$77_storage"; the first captured integer is the id of the
// declaring node.
var typeIDRef = regexp.MustCompile(`\$(\d+)`)

// Location is a resolved declaration site in editor coordinates.
type Location struct {
	URI      string
	Position textpos.Position
}

// Resolver composes a sealed PositionIndex with the position codec. Source
// content is re-read from disk on every query; nothing is cached, so all
// methods are safe for concurrent use.
type Resolver struct {
	index *index.PositionIndex
}

// New returns a Resolver over a sealed index.
func New(ix *index.PositionIndex) *Resolver {
	return &Resolver{index: ix}
}

// Locate returns the innermost indexed node at the given document position.
// A uri that matches no known file, or a position inside no node, yields
// (nil, nil); failure to read the matched file is a real error.
func (r *Resolver) Locate(uri string, pos textpos.Position) (*index.Entry, error) {
	fileID, path, ok := r.matchURI(uri)
	if !ok {
		return nil, nil
	}
	// #nosec G304 -- path comes from the loaded artifact's file table
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	offset := textpos.OffsetForPosition(content, pos)
	return r.index.FindInnermost(fileID, offset), nil
}

// matchURI resolves a document uri against the file table. A table row
// matches when the uri ends with the stored path, or the stored path ends
// with the uri stripped of its file scheme. Among matches the longest
// stored path wins; ties go to the smallest file id.
func (r *Resolver) matchURI(uri string) (int64, string, bool) {
	stripped := strings.TrimPrefix(uri, "file://")
	var (
		bestID   int64
		bestPath string
		found    bool
	)
	for _, row := range r.index.FileTable() {
		if !strings.HasSuffix(uri, row.Path) && !strings.HasSuffix(row.Path, stripped) {
			continue
		}
		if !found || len(row.Path) > len(bestPath) {
			bestID, bestPath, found = row.FileID, row.Path, true
		}
	}
	return bestID, bestPath, found
}

// ResolveDeclaration maps a node to the location of the declaration it
// references. Resolution tries the node's referencedDeclaration id first,
// then the first $<id> marker of its type identifier. An unresolvable node
// yields (nil, nil); failure to read the target's file is a real error.
func (r *Resolver) ResolveDeclaration(entry *index.Entry) (*Location, error) {
	if entry == nil {
		return nil, nil
	}
	target := r.declarationTarget(entry)
	if target == nil {
		return nil, nil
	}
	return r.nodeLocation(target)
}

func (r *Resolver) declarationTarget(entry *index.Entry) *index.Entry {
	if refID, ok := index.IntField(entry.Raw, "referencedDeclaration"); ok {
		if target, ok := r.index.NodeByID(refID); ok {
			return target
		}
	}
	typeID := typeIdentifier(entry.Raw)
	if typeID == "" {
		return nil
	}
	match := typeIDRef.FindStringSubmatch(typeID)
	if match == nil {
		return nil
	}
	refID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil
	}
	target, ok := r.index.NodeByID(refID)
	if !ok {
		return nil
	}
	return target
}

func typeIdentifier(node map[string]any) string {
	descriptions, ok := node["typeDescriptions"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := index.StringField(descriptions, "typeIdentifier")
	return id
}

func (r *Resolver) nodeLocation(target *index.Entry) (*Location, error) {
	path, ok := r.index.FilePath(target.FileID)
	if !ok {
		return nil, nil
	}
	// #nosec G304 -- path comes from the loaded artifact's file table
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	return &Location{
		URI:      "file://" + path,
		Position: textpos.PositionForOffset(content, target.StartByte),
	}, nil
}
