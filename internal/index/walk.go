package index

// The AST is an externally-owned, evolving schema. Rather than typing every
// node kind, the walk dispatches on two small key allowlists plus a tagged
// catch-all; revisit these sets whenever the upstream schema changes.

// childListKeys hold ordered lists of child nodes.
var childListKeys = map[string]struct{}{
	"nodes":         {},
	"body":          {},
	"statements":    {},
	"members":       {},
	"parameters":    {},
	"declarations":  {},
	"symbolAliases": {},
	"arguments":     {},
	"assignments":   {},
	"baseContracts": {},
	"modifiers":     {},
}

// childNodeKeys hold a single child node.
var childNodeKeys = map[string]struct{}{
	"expression":           {},
	"leftExpression":       {},
	"leftHandSide":         {},
	"rightExpression":      {},
	"rightHandSide":        {},
	"value":                {},
	"typeName":             {},
	"baseExpression":       {},
	"parameters":           {},
	"baseName":             {},
	"parameterTypes":       {},
	"returnParameterTypes": {},
}

// Walker recursively indexes an AST into a PositionIndex.
type Walker struct {
	index *PositionIndex
}

// NewWalker returns a Walker that emits into ix.
func NewWalker(ix *PositionIndex) *Walker {
	return &Walker{index: ix}
}

// Walk indexes one AST starting at depth 0. Every visited node carrying
// both an "id" and a parsable "src" attribute becomes an Entry; the file id
// is the one declared by the node's own src attribute.
func (w *Walker) Walk(root map[string]any) {
	w.walk(root, 0)
}

func (w *Walker) walk(node map[string]any, depth int) {
	if node == nil {
		return
	}

	nodeID, hasID := IntField(node, "id")
	src, hasSrc := StringField(node, "src")
	if hasID && hasSrc {
		if r, ok := ParseSrc(src); ok {
			typeTag, ok := StringField(node, "nodeType")
			if !ok {
				typeTag = "Unknown"
			}
			w.index.Add(Entry{
				NodeID:    nodeID,
				FileID:    r.FileID,
				StartByte: r.Start,
				EndByte:   r.End(),
				TypeTag:   typeTag,
				Depth:     depth,
				Raw:       node,
			})
		}
	}

	// First match wins: a key claimed by an allowlist is consumed even when
	// its value has an unexpected shape.
	for key, value := range node {
		if _, ok := childListKeys[key]; ok {
			if list, ok := value.([]any); ok {
				for _, item := range list {
					if child, ok := item.(map[string]any); ok {
						w.walk(child, depth+1)
					}
				}
			}
			continue
		}
		if _, ok := childNodeKeys[key]; ok {
			if child, ok := value.(map[string]any); ok {
				w.walk(child, depth+1)
			}
			continue
		}
		if child, ok := value.(map[string]any); ok {
			if _, tagged := child["nodeType"]; tagged {
				w.walk(child, depth+1)
			}
		}
	}
}
