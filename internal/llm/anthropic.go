package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

func (g *Gateway) callAnthropic(ctx context.Context, p Provider, apiKey, endpoint, model string, prompt Prompt) (string, error) {
	maxTokens := prompt.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = PostTokenBudget
	}

	payload, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    prompt.System,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt.User}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newStatusError(p, resp.StatusCode, errorMessage(body))
	}

	if !gjson.ValidBytes(body) {
		return "", newFormatError(p, resp.StatusCode)
	}
	text := gjson.GetBytes(body, `content.#(type=="text").text`)
	if text.Type != gjson.String || strings.TrimSpace(text.Str) == "" {
		return "", newFormatError(p, resp.StatusCode)
	}
	return strings.TrimSpace(text.Str), nil
}
