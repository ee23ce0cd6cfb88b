// Package lexical implements the Lexical Index (spec §4.5): a BM25 index
// over the Lexical Document projection of Chunks, built on Bleve with a
// code-aware analyzer. Grounded on the teacher's internal/store/bm25.go
// (Bleve index construction, custom analyzer registration) and
// internal/store/tokenizer.go (camelCase/snake_case token splitting).
package lexical

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	tokenizerName  = "oracle_code_tokenizer"
	stopFilterName = "oracle_code_stop"
	analyzerName   = "oracle_code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(tokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(stopFilterName, stopFilterConstructor)
}

// codeStopWords are programming keywords and generic identifiers dropped
// from the index so a query term like "for" or "result" doesn't match
// nearly every chunk, the curated list SPEC_FULL.md §12 names, grounded on
// the teacher's DefaultCodeStopWords.
var codeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

func buildStopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

var codeStopWordSet = buildStopWordSet(codeStopWords)

// codeStopFilter implements analysis.TokenFilter, dropping tokens present
// in codeStopWordSet after lowercasing.
type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.stopWords[string(tok.Term)]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func stopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: codeStopWordSet}, nil
}

var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// codeTokenizer implements analysis.Tokenizer, splitting on non-identifier
// runes and then further splitting each identifier on camelCase/snake_case
// boundaries, so a query for "get user" matches a chunk defining
// "getUserById" — the supplemented code-aware BM25 analyzer named in
// SPEC_FULL §12.
type codeTokenizer struct{}

func (codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var stream analysis.TokenStream
	pos := 1

	words := wordRegex.FindAll(input, -1)
	for _, word := range words {
		for _, sub := range splitCodeToken(string(word)) {
			if len(sub) < 2 {
				continue
			}
			stream = append(stream, &analysis.Token{
				Term:     []byte(strings.ToLower(sub)),
				Start:    0,
				End:      len(sub),
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
		}
	}
	return stream
}

func tokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return codeTokenizer{}, nil
}

// splitCodeToken splits snake_case first, then camelCase within each part.
func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase/PascalCase identifiers, keeping acronym
// runs together: "parseHTTPRequest" -> ["parse", "HTTP", "Request"].
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
