package llm

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownProvider is returned for provider IDs missing from the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// Dialect identifies a request/response wire shape.
type Dialect string

const (
	DialectOpenAI    Dialect = "openai"
	DialectAnthropic Dialect = "anthropic"
	DialectLocal     Dialect = "local"
)

// Provider describes one selectable LLM backend.
type Provider struct {
	ID       string
	Name     string
	Dialect  Dialect
	Endpoint string
	Model    string
	NeedsKey bool
}

// Providers is the registry of known providers. Adding a provider means
// adding an entry here.
var Providers = map[string]Provider{
	"openai": {
		ID: "openai", Name: "OpenAI", Dialect: DialectOpenAI,
		Endpoint: "https://api.openai.com/v1/chat/completions",
		Model:    "gpt-4o-mini", NeedsKey: true,
	},
	"claude": {
		ID: "claude", Name: "Claude", Dialect: DialectAnthropic,
		Endpoint: "https://api.anthropic.com/v1/messages",
		Model:    "claude-sonnet-4-5-20250929", NeedsKey: true,
	},
	"deepseek": {
		ID: "deepseek", Name: "DeepSeek", Dialect: DialectOpenAI,
		Endpoint: "https://api.deepseek.com/v1/chat/completions",
		Model:    "deepseek-chat", NeedsKey: true,
	},
	"gemini": {
		ID: "gemini", Name: "Gemini", Dialect: DialectOpenAI,
		Endpoint: "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions",
		Model:    "gemini-2.0-flash", NeedsKey: true,
	},
	"kimi": {
		ID: "kimi", Name: "Kimi", Dialect: DialectOpenAI,
		Endpoint: "https://api.moonshot.cn/v1/chat/completions",
		Model:    "moonshot-v1-32k", NeedsKey: true,
	},
	"qwen": {
		ID: "qwen", Name: "Qwen", Dialect: DialectOpenAI,
		Endpoint: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		Model:    "qwen-plus", NeedsKey: true,
	},
	"openrouter": {
		ID: "openrouter", Name: "OpenRouter", Dialect: DialectOpenAI,
		Endpoint: "https://openrouter.ai/api/v1/chat/completions",
		Model:    "openai/gpt-4o-mini", NeedsKey: true,
	},
	"local": {
		ID: "local", Name: "Local model", Dialect: DialectLocal,
		Model: "default",
	},
}

// Lookup returns the registry entry for id.
func Lookup(id string) (Provider, error) {
	p, ok := Providers[id]
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return p, nil
}

// ProviderIDs lists registered provider IDs in sorted order.
func ProviderIDs() []string {
	ids := make([]string, 0, len(Providers))
	for id := range Providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
