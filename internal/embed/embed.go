// Package embed implements the Embedder (spec §4.6): a fixed-dimension,
// unit-normalized text-to-vector model accessed over Ollama's HTTP API.
// Grounded on the teacher's internal/embed/ollama.go (HTTP client with
// connection pooling, /api/embed request shape, L2 normalization) and
// internal/embed/cached.go (LRU result cache), trimmed of the teacher's
// thermal-timeout-progression and multi-model-fallback logic, which are
// Apple-Silicon-specific operational concerns outside this spec's scope.
package embed

import (
	"context"
	"math"
	"strings"
)

// Dimensions is the fixed compile-time output width, per spec §4.6: "D is a
// fixed compile-time constant matching the registered model."
const Dimensions = 384

// Embedder generates a unit-normalized, fixed-dimension vector for a text.
// Implementations are initialized once and reused, per spec §5.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	mag := float32(1.0 / math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * mag
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
