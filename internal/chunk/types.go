// Package chunk implements the Chunker component (spec §4.3): a
// tree-sitter-backed splitter that turns a file's source into a sequence of
// Chunks bounded by function, class, and method AST nodes. Grounded on the
// teacher's internal/chunk package (Tree/Node wrapper around smacker's
// tree-sitter bindings, LanguageRegistry node-type tables), generalized to
// the spec's Chunk data model and Grammar Registration contract.
package chunk

// SymbolType classifies the AST construct a Chunk was captured from, per
// spec §3.
type SymbolType string

const (
	SymbolFunction SymbolType = "function"
	SymbolClass    SymbolType = "class"
	SymbolMethod   SymbolType = "method"
	SymbolUnknown  SymbolType = "unknown"
)

// Chunk is the fundamental retrieval unit (spec §3). ID is left zero here;
// the Chunk Store assigns it on insert, in traversal order.
type Chunk struct {
	ID          int64
	FilePath    string
	SymbolName  string // empty if absent
	SymbolType  SymbolType
	Content     string
	ContentHash string
	StartLine   int // 1-indexed, inclusive
	EndLine     int // 1-indexed, inclusive
	Language    string
	IndexedAt   int64 // seconds since epoch, set by the Chunk Store on insert
}

// Registration is a Grammar Registration (spec §4.3): the bundle binding a
// language name and its file extensions to a tree-sitter grammar and the
// node-type tables used to recognize function/class/method definitions. A
// Grammar Registration's query_script is a tree-sitter Query with @captures;
// this core follows the teacher's actual implementation instead,
// which walks the tree and matches node types directly against per-language
// tables — functionally equivalent capture semantics without the Query API.
type Registration struct {
	Language   string
	Extensions []string

	FunctionTypes []string
	ClassTypes    []string
	MethodTypes   []string

	// NameField is the tree-sitter field name used to locate a definition's
	// identifier child (e.g. "name").
	NameField string
}
