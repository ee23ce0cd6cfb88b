package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oracle-rag/oracle/internal/hash"
)

// DefaultMaxChunkTokens bounds a single chunk's size; symbols estimated
// larger than this are split by splitLargeSymbol, per SPEC_FULL.md §12
// ("Large-symbol splitting").
const DefaultMaxChunkTokens = 512

// DefaultOverlapTokens is the overlap carried between adjacent sub-chunks
// when a large symbol is split, so a query matching content near a split
// boundary still surfaces the right chunk.
const DefaultOverlapTokens = 64

// tokensPerChar is the char-per-token estimate used to convert a token
// budget into a line budget (SPEC_FULL.md §12, grounded on the teacher's
// estimateTokens).
const tokensPerChar = 4

// Chunker splits file content into Chunks per a Registration, per spec §4.3.
type Chunker struct {
	parser *Parser
	logger *slog.Logger
}

// New builds a Chunker over the given Parser.
func New(parser *Parser, logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{parser: parser, logger: logger}
}

// Chunk parses content and emits one Chunk per matched function, class, or
// method node. Partial parse errors are logged and extraction proceeds on
// whatever tree tree-sitter managed to recover, per spec §4.3 step 1. A
// node's immediately preceding doc-comment block is folded into its span
// (SPEC_FULL.md §12), and symbols that estimate larger than
// DefaultMaxChunkTokens are split into overlapping, numbered sub-chunks.
func (c *Chunker) Chunk(ctx context.Context, filePath string, content []byte, reg Registration) ([]Chunk, error) {
	if len(content) == 0 {
		return nil, nil
	}

	tree, hasErr, err := c.parser.parse(ctx, content, reg.Language)
	if err != nil {
		return nil, err
	}
	if hasErr {
		c.logger.Warn("partial parse errors, proceeding with recovered tree", "file", filePath, "language", reg.Language)
	}

	var chunks []Chunk
	walk(tree.RootNode(), func(n *sitter.Node) {
		symbolType, ok := classify(n.Type(), reg)
		if !ok {
			return
		}

		name := findName(n, content, reg.NameField)
		startByte := docCommentStart(n, content, reg.Language)
		text := string(content[startByte:n.EndByte()])
		startLine := int(n.StartPoint().Row) + 1
		if startByte < n.StartByte() {
			startLine = lineNumber(content, startByte)
		}

		chunks = append(chunks, c.buildChunks(filePath, name, symbolType, reg.Language, text, startLine, int(n.EndPoint().Row)+1)...)
	})

	return chunks, nil
}

// buildChunks emits a single Chunk for text within DefaultMaxChunkTokens, or
// splits it into overlapping line-based sub-chunks otherwise.
func (c *Chunker) buildChunks(filePath, name string, symbolType SymbolType, language, text string, startLine, endLine int) []Chunk {
	if estimateTokens(text) <= DefaultMaxChunkTokens {
		return []Chunk{newChunk(filePath, name, symbolType, language, text, startLine, endLine)}
	}
	return c.splitLargeSymbol(filePath, name, symbolType, language, text, startLine)
}

// splitLargeSymbol breaks an oversized symbol into overlapping line-based
// sub-chunks, per SPEC_FULL.md §12 ("Large-symbol splitting"). Each
// sub-chunk's symbol name is suffixed "_part<N>"; symbol_type is preserved.
func (c *Chunker) splitLargeSymbol(filePath, name string, symbolType SymbolType, language, text string, startLine int) []Chunk {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil
	}

	maxLinesPerChunk := (DefaultMaxChunkTokens * tokensPerChar) / 80
	if maxLinesPerChunk < 20 {
		maxLinesPerChunk = 20
	}
	overlapLines := (DefaultOverlapTokens * tokensPerChar) / 80
	if overlapLines < 2 {
		overlapLines = 2
	}

	var chunks []Chunk
	for i := 0; i < len(lines); {
		end := i + maxLinesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		partName := name
		if partName != "" {
			partName = fmt.Sprintf("%s_part%d", name, len(chunks)+1)
		}

		chunkContent := strings.Join(lines[i:end], "\n")
		chunkStartLine := startLine + i
		chunkEndLine := startLine + end - 1
		chunks = append(chunks, newChunk(filePath, partName, symbolType, language, chunkContent, chunkStartLine, chunkEndLine))

		if end >= len(lines) {
			break
		}
		i = end - overlapLines
		if i <= 0 {
			i = end
		}
	}

	return chunks
}

func newChunk(filePath, name string, symbolType SymbolType, language, text string, startLine, endLine int) Chunk {
	return Chunk{
		FilePath:    filePath,
		SymbolName:  name,
		SymbolType:  symbolType,
		Content:     text,
		ContentHash: hash.DigestString(text),
		StartLine:   startLine,
		EndLine:     endLine,
		Language:    language,
	}
}

// estimateTokens approximates a token count from content length, grounded
// on the teacher's estimateTokens (4 chars per token).
func estimateTokens(content string) int {
	return len(content) / tokensPerChar
}

// docCommentStart walks backward from n's line start over contiguous
// single-line comments in the language's comment syntax, returning the byte
// offset where the doc-comment block (or, absent one, the node itself)
// begins. Extending the node's captured span this way keeps invariant 1
// (hash(content) == content_hash) intact: the span is still a deterministic
// function of the source, per SPEC_FULL.md §12 ("Doc-comment capture").
func docCommentStart(n *sitter.Node, source []byte, language string) uint32 {
	marker, ok := lineCommentMarker(language)
	if !ok {
		return n.StartByte()
	}

	lineStart := int(n.StartByte())
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart == 0 {
		return n.StartByte()
	}

	pos := lineStart - 1
	commentStart := n.StartByte()
	for pos > 0 {
		prevLineEnd := pos
		pos--
		for pos > 0 && source[pos] != '\n' {
			pos--
		}
		prevLineStart := pos
		if source[prevLineStart] == '\n' {
			prevLineStart++
		}

		prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))
		if prevLine == "" {
			break
		}
		if !strings.HasPrefix(prevLine, marker) {
			break
		}
		commentStart = uint32(prevLineStart)
		if prevLineStart == 0 {
			break
		}
	}

	return commentStart
}

// lineCommentMarker returns the single-line comment prefix used to detect a
// preceding doc comment for the given language. Python is excluded: its doc
// comments are docstrings inside the body, not preceding line comments.
func lineCommentMarker(language string) (string, bool) {
	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		return "//", true
	default:
		return "", false
	}
}

// lineNumber returns the 1-indexed line number of the given byte offset.
func lineNumber(source []byte, offset uint32) int {
	line := 1
	for i := uint32(0); i < offset && int(i) < len(source); i++ {
		if source[i] == '\n' {
			line++
		}
	}
	return line
}

// classify maps a primary capture's node type to a SymbolType, per spec
// §4.3 step 4: function → function, class → class, method → method.
// Nodes matching none of the registration's tables are not chunked (the
// "ignore matches without one" rule in step 2 — only these three kinds are
// primary captures in this core's Chunk data model).
func classify(nodeType string, reg Registration) (SymbolType, bool) {
	for _, t := range reg.MethodTypes {
		if nodeType == t {
			return SymbolMethod, true
		}
	}
	for _, t := range reg.ClassTypes {
		if nodeType == t {
			return SymbolClass, true
		}
	}
	for _, t := range reg.FunctionTypes {
		if nodeType == t {
			return SymbolFunction, true
		}
	}
	return "", false
}

// findName locates the identifier child (the field named by nameField) and
// returns its source text, or "" if absent, per spec §4.3 step 3.
func findName(n *sitter.Node, source []byte, nameField string) string {
	if nameField == "" {
		return ""
	}
	child := n.ChildByFieldName(nameField)
	if child == nil {
		return ""
	}
	return child.Content(source)
}

// walk visits every node in the tree depth-first, calling fn for each.
func walk(n *sitter.Node, fn func(*sitter.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}
