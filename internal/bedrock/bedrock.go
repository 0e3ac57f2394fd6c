// Package bedrock adapts Amazon Bedrock hosted models to the backend
// contracts: a Titan embedder and a Claude messages generator.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/pkg/types"
)

const (
	DefaultEmbedModelID    = "amazon.titan-embed-text-v2:0"
	DefaultGenerateModelID = "anthropic.claude-3-haiku-20240307-v1:0"
)

// InvokeModelAPI is the slice of the Bedrock runtime client the adapters
// need. Tests substitute a fake.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// NewClient builds the real runtime client from ambient AWS configuration.
func NewClient(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	if strings.TrimSpace(region) == "" {
		return nil, errors.New("bedrock: region is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// Embedder calls a Titan text-embedding model.
type Embedder struct {
	client  InvokeModelAPI
	modelID string
}

func NewEmbedder(client InvokeModelAPI, modelID string) *Embedder {
	if modelID == "" {
		modelID = DefaultEmbedModelID
	}
	return &Embedder{client: client, modelID: modelID}
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", backend.ErrEmbeddingUnavailable, err)
	}
	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrEmbeddingUnavailable, err)
	}
	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", backend.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", backend.ErrEmbeddingUnavailable)
	}
	return resp.Embedding, nil
}

// Generator calls a Claude model through the Bedrock messages API.
type Generator struct {
	client    InvokeModelAPI
	modelID   string
	maxTokens int
}

func NewGenerator(client InvokeModelAPI, modelID string, maxTokens int) *Generator {
	if modelID == "" {
		modelID = DefaultGenerateModelID
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{client: client, modelID: modelID, maxTokens: maxTokens}
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = "You are a card-services assistant. Answer only from the " +
	"provided evidence excerpts. If the evidence does not cover the question, " +
	"say so plainly. Never reveal internal procedures to external customers " +
	"and never echo payment card numbers or other personal data."

func (g *Generator) Generate(ctx context.Context, query types.Query, evidence []types.ScoredChunk) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Question: " + query.Text + "\n\nEvidence:\n")
	if len(evidence) == 0 {
		prompt.WriteString("(none)\n")
	}
	for i, sc := range evidence {
		fmt.Fprintf(&prompt, "%d. [%s] %s\n", i+1, sc.Chunk.SourceID, sc.Chunk.Text)
	}

	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        g.maxTokens,
		System:           systemPrompt,
		Messages:         []claudeMessage{{Role: "user", Content: prompt.String()}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", classifyInvokeError(err)
	}

	var resp claudeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("bedrock: response contained no text blocks")
	}
	return text.String(), nil
}

// classifyInvokeError maps transport failures onto the backend error
// taxonomy so the orchestrator's retry policy can act on them.
func classifyInvokeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", backend.ErrGenerationTimeout, err)
	}
	var throttled interface{ ErrorCode() string }
	if errors.As(err, &throttled) {
		switch throttled.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return fmt.Errorf("%w: %v", backend.ErrGenerationRateLimited, err)
		case "ModelTimeoutException":
			return fmt.Errorf("%w: %v", backend.ErrGenerationTimeout, err)
		}
	}
	return fmt.Errorf("bedrock: invoke model: %w", err)
}
