package analyzer

import (
	"sync"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/reposcope/repomap/internal/obslog"
)

// parserLocks maps each *tree_sitter.Parser to the *sync.Mutex that
// serializes SafeParse calls on it.
var parserLocks sync.Map

// ContentHash is the fast, non-cryptographic 64-bit digest used to detect an
// unchanged re-parse.
func ContentHash(text []byte) uint64 {
	return xxhash.Sum64(text)
}

// SafeText extracts content[start:end] with UTF-8-safe, bounds-checked
// semantics: any out-of-range or mid-rune request yields the empty string
// rather than panicking.
func SafeText(content []byte, start, end int) string {
	if start < 0 || end < start || end > len(content) {
		return ""
	}
	if !utf8.Valid(content[start:end]) {
		return ""
	}
	return string(content[start:end])
}

// NodeText extracts the verbatim source text spanned by a tree-sitter node.
func NodeText(node *tree_sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return SafeText(content, int(node.StartByte()), int(node.EndByte()))
}

// NodeLine returns the 1-based source line a node starts on.
func NodeLine(node *tree_sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

// NodeColumn returns the 1-based source column a node starts on.
func NodeColumn(node *tree_sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Column) + 1
}

// NodeEndLine returns the 1-based source line a node ends on.
func NodeEndLine(node *tree_sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.EndPosition().Row) + 1
}

// SafeParse wraps parser.Parse so that a panic unwinding out of the native
// tree-sitter runtime becomes a recoverable nil-tree result rather than a
// process abort.
//
// Tree-sitter's C library can mutate the buffer it is handed via CGO, so a
// defensive copy is made before parsing; callers keep their own content
// slice untouched.
//
// A tree-sitter parser is not safe for concurrent use, so calls on the same
// parser are serialized through a per-parser mutex; different parsers still
// parse in parallel.
func SafeParse(component, path string, parser *tree_sitter.Parser, content []byte) (tree *tree_sitter.Tree, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Warnf(component, "tree-sitter panic recovered", "path", path, "panic", r)
			tree, ok = nil, false
		}
	}()

	lock, _ := parserLocks.LoadOrStore(parser, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
	defer lock.(*sync.Mutex).Unlock()

	buf := make([]byte, len(content))
	copy(buf, content)

	t := parser.Parse(buf, nil)
	if t == nil {
		return nil, false
	}
	return t, true
}

// Children returns the immediate children of a node as a slice, for
// range-friendly iteration.
func Children(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.ChildCount())
	out := make([]*tree_sitter.Node, 0, n)
	for i := uint(0); i < uint(n); i++ {
		c := node.Child(i)
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
