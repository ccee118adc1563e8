package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

const chatCompletionsRoute = "chat/completions"

// errorMessage pulls the provider's own message out of an error body.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"error.message", "error", "message"} {
		v := gjson.GetBytes(body, path)
		if v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

// statusMiddleware turns non-2xx responses into a *ProviderError before the
// SDK sees them, so the provider's own message survives.
func statusMiddleware(p Provider) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		resp, err := next(req)
		if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
			return resp, err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		return nil, newStatusError(p, resp.StatusCode, errorMessage(body))
	}
}

// openAIBaseURL converts a resolved endpoint into the SDK's base URL; the SDK
// appends the route itself.
func openAIBaseURL(endpoint string) string {
	if base, ok := strings.CutSuffix(endpoint, chatCompletionsRoute); ok {
		return base
	}
	return strings.TrimRight(endpoint, "/") + "/"
}

func (g *Gateway) callOpenAI(ctx context.Context, p Provider, apiKey, endpoint, model string, prompt Prompt) (string, error) {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(openAIBaseURL(endpoint)),
		option.WithHTTPClient(g.httpClient),
		option.WithMaxRetries(0),
		option.WithMiddleware(statusMiddleware(p)),
	)

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		}),
		Model: openai.F(model),
	}
	if prompt.MaxOutputTokens > 0 {
		params.MaxTokens = openai.F(int64(prompt.MaxOutputTokens))
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return "", perr
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", newStatusError(p, apiErr.StatusCode, "")
		}
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", newFormatError(p, http.StatusOK)
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", newFormatError(p, http.StatusOK)
	}
	return text, nil
}
