package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/pkg/types"
)

type fakeInvokeClient struct {
	out     *bedrockruntime.InvokeModelOutput
	err     error
	lastIn  *bedrockruntime.InvokeModelInput
	capture bool
}

func (f *fakeInvokeClient) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.capture {
		f.lastIn = in
	}
	return f.out, f.err
}

type fakeAPIError struct{ code string }

func (e fakeAPIError) Error() string     { return e.code }
func (e fakeAPIError) ErrorCode() string { return e.code }

func TestEmbedderParsesEmbedding(t *testing.T) {
	client := &fakeInvokeClient{
		out:     &bedrockruntime.InvokeModelOutput{Body: []byte(`{"embedding":[0.1,0.2,0.3]}`)},
		capture: true,
	}
	e := NewEmbedder(client, "")

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vec))
	}
	if *client.lastIn.ModelId != DefaultEmbedModelID {
		t.Fatalf("expected default model id, got %s", *client.lastIn.ModelId)
	}
	var req titanEmbedRequest
	if err := json.Unmarshal(client.lastIn.Body, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.InputText != "hello" {
		t.Fatalf("expected input text, got %q", req.InputText)
	}
}

func TestEmbedderMapsFailures(t *testing.T) {
	client := &fakeInvokeClient{err: errors.New("boom")}
	e := NewEmbedder(client, "custom-model")
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, backend.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}

	client = &fakeInvokeClient{out: &bedrockruntime.InvokeModelOutput{Body: []byte(`{"embedding":[]}`)}}
	e = NewEmbedder(client, "custom-model")
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, backend.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable for empty embedding, got %v", err)
	}
}

func TestGeneratorComposesPromptAndParsesText(t *testing.T) {
	client := &fakeInvokeClient{
		out:     &bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`)},
		capture: true,
	}
	g := NewGenerator(client, "", 0)

	evidence := []types.ScoredChunk{{Chunk: types.KnowledgeChunk{SourceID: "faq_1", Text: "hotels earn points"}}}
	out, err := g.Generate(context.Background(), types.Query{Text: "do hotels earn points"}, evidence)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("expected concatenated text blocks, got %q", out)
	}

	var req claudeRequest
	if err := json.Unmarshal(client.lastIn.Body, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.AnthropicVersion != "bedrock-2023-05-31" {
		t.Fatalf("unexpected version %q", req.AnthropicVersion)
	}
	if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "faq_1") {
		t.Fatalf("evidence missing from prompt: %+v", req.Messages)
	}
}

func TestGeneratorErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"throttled", fakeAPIError{code: "ThrottlingException"}, backend.ErrGenerationRateLimited},
		{"quota", fakeAPIError{code: "ServiceQuotaExceededException"}, backend.ErrGenerationRateLimited},
		{"model timeout", fakeAPIError{code: "ModelTimeoutException"}, backend.ErrGenerationTimeout},
		{"deadline", context.DeadlineExceeded, backend.ErrGenerationTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(&fakeInvokeClient{err: tc.err}, "", 0)
			_, err := g.Generate(context.Background(), types.Query{Text: "q"}, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Unknown errors pass through unclassified.
	g := NewGenerator(&fakeInvokeClient{err: fakeAPIError{code: "ValidationException"}}, "", 0)
	_, err := g.Generate(context.Background(), types.Query{Text: "q"}, nil)
	if errors.Is(err, backend.ErrGenerationRateLimited) || errors.Is(err, backend.ErrGenerationTimeout) {
		t.Fatalf("validation errors must not be classified transient: %v", err)
	}
}

func TestGeneratorRejectsEmptyContent(t *testing.T) {
	g := NewGenerator(&fakeInvokeClient{out: &bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[]}`)}}, "", 0)
	if _, err := g.Generate(context.Background(), types.Query{Text: "q"}, nil); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestNewClientRequiresRegion(t *testing.T) {
	if _, err := NewClient(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank region")
	}
}
