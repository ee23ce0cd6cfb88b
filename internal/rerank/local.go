package rerank

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/oracle-rag/oracle/internal/ocerrors"
)

// maxSeqTokens is the per-pair token ceiling, per spec §4.9.
const maxSeqTokens = 512

// LocalMode runs an ONNX-executed cross-encoder model with a paired
// tokenizer, one forward pass per candidate, grounded on the example repo
// Tejas242-sift's internal/embed/embedder.go ONNX session setup (dynamic
// advanced session, input_ids/attention_mask/token_type_ids tensors) —
// adapted here from a pooled sentence embedding into a single-logit
// classification head, since a cross-encoder scores a (query, candidate)
// pair rather than embedding a standalone text.
type LocalMode struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
}

var _ Mode = (*LocalMode)(nil)

// NewLocalMode loads a cross-encoder ONNX model and tokenizer from modelDir
// (expects model.onnx and tokenizer.json), mirroring Tejas242-sift's
// Embedder loading convention.
func NewLocalMode(modelDir, ortLibPath string, numThreads int) (*LocalMode, error) {
	modelPath := filepath.Join(modelDir, "model.onnx")
	tokenPath := filepath.Join(modelDir, "tokenizer.json")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, ocerrors.ModelUnavailable("cross-encoder model not found at "+modelPath, err)
	}
	if _, err := os.Stat(tokenPath); err != nil {
		return nil, ocerrors.ModelUnavailable("cross-encoder tokenizer not found at "+tokenPath, err)
	}

	if ortLibPath != "" {
		ort.SetSharedLibraryPath(ortLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, ocerrors.Internal("initialize onnx runtime", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, ocerrors.Internal("build onnx session options", err)
	}
	defer opts.Destroy()

	if numThreads <= 0 {
		numThreads = 1
	}
	if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
		return nil, ocerrors.Internal("set intra-op threads", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, ocerrors.Internal("set inter-op threads", err)
	}

	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	outputNames := []string{"logits"}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, ocerrors.Internal("create onnx session", err)
	}

	tk, err := tokenizers.FromFile(tokenPath)
	if err != nil {
		session.Destroy()
		return nil, ocerrors.Internal("load tokenizer", err)
	}

	return &LocalMode{session: session, tokenizer: tk}, nil
}

// Close releases the ONNX session and tokenizer.
func (m *LocalMode) Close() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.tokenizer != nil {
		m.tokenizer.Close()
	}
}

// Rerank scores each candidate in its own forward pass, per spec §4.9: the
// per-pair input is "<query> [SEP] <candidate_content[:truncated]>" capped
// at 512 tokens; the first logit is the relevance score.
func (m *LocalMode) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Scored, error) {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, ocerrors.Transient("cross-encoder cancelled", err)
		}

		score, err := m.scorePair(query, c.Content)
		if err != nil {
			return nil, err
		}
		scored = append(scored, Scored{ID: c.ID, Score: score})
	}
	return scored, nil
}

func (m *LocalMode) scorePair(query, content string) (float64, error) {
	pairText := fmt.Sprintf("%s [SEP] %s", query, content)

	enc := m.tokenizer.EncodeWithOptions(pairText, true, tokenizers.WithReturnAttentionMask())
	ids := enc.IDs
	if len(ids) > maxSeqTokens {
		ids = ids[:maxSeqTokens]
	}
	if len(ids) == 0 {
		return 0, ocerrors.Parse("cross-encoder input tokenized to zero length", nil)
	}

	seqLen := int64(len(ids))
	flatIDs := make([]int64, seqLen)
	flatMask := make([]int64, seqLen)
	flatType := make([]int64, seqLen)
	for i, id := range ids {
		flatIDs[i] = int64(id)
		flatMask[i] = 1
		if i < len(enc.AttentionMask) {
			flatMask[i] = int64(enc.AttentionMask[i])
		}
	}

	shape := ort.NewShape(1, seqLen)
	inputIDs, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return 0, ocerrors.Internal("build input_ids tensor", err)
	}
	defer inputIDs.Destroy()

	attnMask, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return 0, ocerrors.Internal("build attention_mask tensor", err)
	}
	defer attnMask.Destroy()

	typeIDs, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return 0, ocerrors.Internal("build token_type_ids tensor", err)
	}
	defer typeIDs.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{inputIDs, attnMask, typeIDs}, outputs); err != nil {
		return 0, ocerrors.Internal("run cross-encoder inference", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, ocerrors.Internal("unexpected cross-encoder output type", nil)
	}
	logits := logitsTensor.GetData()
	if len(logits) == 0 {
		return 0, ocerrors.Internal("cross-encoder returned no logits", nil)
	}

	return float64(logits[0]), nil
}
