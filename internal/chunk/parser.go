package chunk

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps a tree-sitter parser bound to a Registry, grounded on the
// teacher's internal/chunk/parser.go. One Parser instance is reused across
// files for a given language, per spec §5's "initialized once and reused"
// pattern applied by analogy from the Embedder contract.
type Parser struct {
	ts       *sitter.Parser
	registry *Registry
}

// NewParser builds a Parser over registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{ts: sitter.NewParser(), registry: registry}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

// parse parses source as the given language. A parse failure that still
// yields a tree (tree-sitter's error-tolerant recovery) is returned with a
// nil error and the second result set to the tree's HasError flag; an
// unsupported language, a parser error, or a nil tree returns an error.
func (p *Parser) parse(ctx context.Context, source []byte, language string) (*sitter.Tree, bool, error) {
	lang, ok := p.registry.TreeSitterLanguage(language)
	if !ok {
		return nil, false, fmt.Errorf("chunk: unsupported language %q", language)
	}
	p.ts.SetLanguage(lang)

	tree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, false, fmt.Errorf("chunk: parse %q: %w", language, err)
	}
	if tree == nil {
		return nil, false, fmt.Errorf("chunk: parse %q: nil tree", language)
	}
	return tree, tree.RootNode().HasError(), nil
}
