package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
	"github.com/kirillkom/retrieval-fusion/internal/infrastructure/resilience"
)

// maxEmbedChars is a character-based proxy for the embedding model's token
// limit; the core does not know tokenizer internals.
const maxEmbedChars = 2048

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, genModel, embedModel string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		exec:       exec,
	}
}

// Embedder adapts the Ollama embed endpoint to ports.EmbeddingProvider.
// Calls run under the retry schedule and the per-operation circuit breaker.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	var vector []float32
	err := e.client.exec.Execute(ctx, "ollama_embed", func(ctx context.Context) error {
		request := map[string]any{
			"model": e.client.embedModel,
			"input": []string{text},
		}
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
			return err
		}
		if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
			return fmt.Errorf("empty embedding result")
		}
		vector = response.Embeddings[0]
		return nil
	}, classifyProviderError)
	if err != nil {
		if domain.IsCircuitOpen(err) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrProvider, "embed", err)
	}
	return vector, nil
}

// Completer adapts the Ollama generate endpoint to ports.CompletionProvider.
// Completions are never retried: HyDE is an enhancement, so callers fail
// open; the circuit breaker still records failures.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	request := map[string]any{
		"model":  c.client.genModel,
		"prompt": prompt,
		"stream": false,
	}
	options := map[string]any{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		request["options"] = options
	}

	var answer string
	err := c.client.exec.Execute(ctx, "ollama_complete", func(ctx context.Context) error {
		var response struct {
			Response string `json:"response"`
		}
		if err := c.client.postJSON(ctx, "/api/generate", request, &response, "generate"); err != nil {
			return err
		}
		answer = strings.TrimSpace(response.Response)
		return nil
	}, classifyCompletionError)
	if err != nil {
		if domain.IsCircuitOpen(err) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrProvider, "complete", err)
	}
	return answer, nil
}
