// Package ollama provides a model wrapper for a locally hosted Ollama server.
//
// The adapter uses the prompt-based generate API, flattening instructions and
// conversation history into a single prompt. Tool declarations are not
// forwarded; Info reports SupportsTools false so agents fall back to plain
// text turns.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/santis84/agents/core"
	"github.com/santis84/agents/model"
)

// Options configures the Ollama model adapter.
type Options struct {
	Model   string
	Host    string // defaults to OLLAMA_HOST or http://localhost:11434
	Timeout time.Duration
}

// Model wraps the Ollama generate API behind the generic model.Model interface.
type Model struct {
	client *ollama.Client
	opts   Options
}

// NewModel creates a new Ollama model. The host is taken from options, the
// OLLAMA_HOST environment variable, or the local default, in that order.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:   "llama3.2",
		Timeout: 60 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	host := opts.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	client := ollama.NewClient(u, &http.Client{Timeout: opts.Timeout})

	return &Model{client: client, opts: opts}, nil
}

// Generate implements model.Model using callback-based streaming from the
// Ollama client. Partial chunks are forwarded when req.Stream is set; the
// accumulated text always closes the stream as a final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		genReq := &ollama.GenerateRequest{
			Model:  m.opts.Model,
			Prompt: buildPrompt(req),
		}

		var text strings.Builder
		err := m.client.Generate(ctx, genReq, func(gr ollama.GenerateResponse) error {
			if gr.Response == "" {
				return nil
			}
			text.WriteString(gr.Response)
			if req.Stream {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case out <- model.Response{
					Partial: true,
					Content: core.Content{
						Role:  "assistant",
						Parts: []core.Part{core.TextPart{Text: gr.Response}},
					},
				}:
				}
			}
			return nil
		})
		if err != nil {
			errCh <- fmt.Errorf("ollama api error: %w", err)
			return
		}

		out <- model.Response{
			Partial: false,
			Content: core.Content{
				Role:  "assistant",
				Parts: []core.Part{core.TextPart{Text: text.String()}},
			},
			FinishReason: "stop",
		}
	}()

	return out, errCh
}

// buildPrompt flattens instructions and conversation contents into a single
// prompt with role prefixes, the shape local models handle best.
func buildPrompt(req model.Request) string {
	var sb strings.Builder

	if req.Instructions != "" {
		sb.WriteString(req.Instructions)
		sb.WriteString("\n\n")
	}

	for _, c := range req.Contents {
		text := c.Text()
		if text == "" {
			continue
		}
		switch c.Role {
		case "user":
			sb.WriteString("User: ")
		case "assistant":
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	sb.WriteString("Assistant:")

	return sb.String()
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "ollama",
		SupportsTools: false,
	}
}
