package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

// MsgUnexpectedFormat is the message used when a provider answers with a
// well-formed response that lacks the generated text.
const MsgUnexpectedFormat = "unexpected response format"

// ErrNoLocalModel is returned when the local provider is selected but no
// helper is wired in.
var ErrNoLocalModel = errors.New("local model helper not configured")

// ProviderError is a provider-side failure: a non-success status or a
// response without generated text.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return e.Message
}

func newStatusError(p Provider, status int, message string) *ProviderError {
	if message == "" {
		message = fmt.Sprintf("%s API error: %d", p.Name, status)
	}
	return &ProviderError{Provider: p.ID, Status: status, Message: message}
}

func newFormatError(p Provider, status int) *ProviderError {
	return &ProviderError{Provider: p.ID, Status: status, Message: MsgUnexpectedFormat}
}

// LocalModel runs a prompt on an offline model through the native helper.
type LocalModel interface {
	CallLocalModel(ctx context.Context, prompt Prompt, model string) (string, error)
}

// CallRequest is everything needed for one provider call. Endpoint must
// already be resolved and authorized.
type CallRequest struct {
	ProviderID string
	APIKey     string
	Endpoint   string
	Model      string
	Prompt     Prompt
}

// Gateway calls LLM providers through a uniform contract. It never retries.
type Gateway struct {
	httpClient *http.Client
	local      LocalModel
}

type GatewayOption func(*Gateway)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithLocalModel wires the offline provider.
func WithLocalModel(m LocalModel) GatewayOption {
	return func(g *Gateway) {
		g.local = m
	}
}

func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{httpClient: cleanhttp.DefaultPooledClient()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Call sends the prompt to the provider and returns the generated text.
// Transport errors are returned as they are; provider-side failures are
// *ProviderError.
func (g *Gateway) Call(ctx context.Context, req CallRequest) (string, error) {
	p, err := Lookup(req.ProviderID)
	if err != nil {
		return "", err
	}

	model := req.Model
	if model == "" {
		model = p.Model
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = p.Endpoint
	}

	slog.Debug("calling provider", "provider", p.ID, "endpoint", endpoint, "model", model,
		"max_tokens", req.Prompt.MaxOutputTokens)

	switch p.Dialect {
	case DialectOpenAI:
		return g.callOpenAI(ctx, p, req.APIKey, endpoint, model, req.Prompt)
	case DialectAnthropic:
		return g.callAnthropic(ctx, p, req.APIKey, endpoint, model, req.Prompt)
	case DialectLocal:
		if g.local == nil {
			return "", ErrNoLocalModel
		}
		return g.local.CallLocalModel(ctx, req.Prompt, model)
	default:
		return "", fmt.Errorf("provider %s has unsupported dialect %q", p.ID, p.Dialect)
	}
}
