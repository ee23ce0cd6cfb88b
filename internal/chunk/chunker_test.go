package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunker(t *testing.T) (*Chunker, Registration) {
	t.Helper()
	registry := NewRegistry()
	reg, ok := registry.ByExtension(".go")
	require.True(t, ok)
	parser := NewParser(registry)
	t.Cleanup(parser.Close)
	return New(parser, nil), reg
}

func TestChunkGoFunctionsAndMethods(t *testing.T) {
	c, reg := newTestChunker(t)
	src := []byte(`package sample

func Add(a, b int) int {
	return a + b
}

type Greeter struct{}

func (g Greeter) Hello() string {
	return "hi"
}
`)

	chunks, err := c.Chunk(context.Background(), "sample.go", src, reg)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	var fn, method *Chunk
	for i := range chunks {
		switch chunks[i].SymbolType {
		case SymbolFunction:
			fn = &chunks[i]
		case SymbolMethod:
			method = &chunks[i]
		}
	}
	require.NotNil(t, fn)
	require.NotNil(t, method)

	assert.Equal(t, "Add", fn.SymbolName)
	assert.Equal(t, "go", fn.Language)
	assert.Equal(t, "sample.go", fn.FilePath)
	assert.True(t, fn.StartLine <= fn.EndLine)
	assert.NotEmpty(t, fn.ContentHash)
	assert.Contains(t, fn.Content, "func Add")

	assert.Equal(t, "Hello", method.SymbolName)
}

func TestChunkEmptyFileYieldsNoChunks(t *testing.T) {
	c, reg := newTestChunker(t)
	chunks, err := c.Chunk(context.Background(), "empty.go", nil, reg)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkUnparseableContentYieldsNoChunksButNoError(t *testing.T) {
	c, reg := newTestChunker(t)
	chunks, err := c.Chunk(context.Background(), "garbage.go", []byte("{{{ not go code at all ]]]"), reg)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkContentHashIsDeterministic(t *testing.T) {
	c, reg := newTestChunker(t)
	src := []byte("package sample\n\nfunc F() {}\n")

	a, err := c.Chunk(context.Background(), "a.go", src, reg)
	require.NoError(t, err)
	b, err := c.Chunk(context.Background(), "b.go", src, reg)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ContentHash, b[0].ContentHash)
}

func TestChunkCapturesPrecedingDocComment(t *testing.T) {
	c, reg := newTestChunker(t)
	src := []byte(`package sample

// Add returns the sum of a and b.
// It never overflows for small inputs.
func Add(a, b int) int {
	return a + b
}
`)

	chunks, err := c.Chunk(context.Background(), "sample.go", src, reg)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Contains(t, chunks[0].Content, "// Add returns the sum")
	assert.Contains(t, chunks[0].Content, "func Add")
	assert.Equal(t, 3, chunks[0].StartLine)
}

func TestChunkStopsDocCommentAtBlankLine(t *testing.T) {
	c, reg := newTestChunker(t)
	src := []byte(`package sample

// unrelated comment

func Add(a, b int) int {
	return a + b
}
`)

	chunks, err := c.Chunk(context.Background(), "sample.go", src, reg)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "unrelated comment")
}

func TestChunkSplitsOversizedSymbol(t *testing.T) {
	c, reg := newTestChunker(t)

	var body strings.Builder
	body.WriteString("package sample\n\nfunc Big() int {\n")
	for i := 0; i < 400; i++ {
		body.WriteString("\tx := 1 // padding to exceed the chunk token budget\n")
	}
	body.WriteString("\treturn 0\n}\n")

	chunks, err := c.Chunk(context.Background(), "big.go", []byte(body.String()), reg)
	require.NoError(t, err)
	require.True(t, len(chunks) > 1, "expected the oversized function to split into multiple chunks")

	assert.Equal(t, "Big_part1", chunks[0].SymbolName)
	assert.Equal(t, "Big_part2", chunks[1].SymbolName)
	for _, ch := range chunks {
		assert.Equal(t, SymbolFunction, ch.SymbolType)
	}
}

func TestChunkUnsupportedLanguageErrors(t *testing.T) {
	registry := NewRegistry()
	parser := NewParser(registry)
	t.Cleanup(parser.Close)
	c := New(parser, nil)

	_, err := c.Chunk(context.Background(), "x.rb", []byte("def f; end"), Registration{Language: "ruby"})
	assert.Error(t, err)
}
