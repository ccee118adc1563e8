package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/iamzifei/bookmark-is-learned/internal/post"
	"github.com/iamzifei/bookmark-is-learned/internal/web"
)

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		base     string
		want     string
	}{
		{"default openai", "openai", "", "https://api.openai.com/v1/chat/completions"},
		{"default claude", "claude", "  ", "https://api.anthropic.com/v1/messages"},
		{"version segment", "openai", "https://proxy.example.com/v1", "https://proxy.example.com/v1/chat/completions"},
		{"root for claude", "claude", "https://proxy.example.com", "https://proxy.example.com/v1/messages"},
		{"root slash", "deepseek", "https://proxy.example.com/", "https://proxy.example.com/v1/chat/completions"},
		{"already complete", "openai", "https://proxy.example.com/v1/chat/completions", "https://proxy.example.com/v1/chat/completions"},
		{"already messages", "claude", "https://proxy.example.com/anthropic/v1/messages", "https://proxy.example.com/anthropic/v1/messages"},
		{"custom path", "openrouter", "https://gw.example.com/openai", "https://gw.example.com/openai/chat/completions"},
		{"v2 segment", "claude", "http://localhost:8080/api/v2", "http://localhost:8080/api/v2/messages"},
		{"local ignores base", "local", "https://proxy.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEndpoint(tt.provider, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEndpointRejects(t *testing.T) {
	for _, base := range []string{"ftp://proxy.example.com/v1", "proxy.example.com/v1", "javascript:alert(1)", "http://"} {
		_, err := ResolveEndpoint("openai", base)
		assert.ErrorIs(t, err, ErrInvalidBaseURL, base)
	}

	_, err := ResolveEndpoint("nope", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestAuthorize(t *testing.T) {
	grants := NewOriginGrants([]string{"https://proxy.example.com/v1", "http://LOCALHOST:11434"})

	assert.NoError(t, Authorize(grants, "https://api.openai.com/v1/chat/completions"))
	assert.NoError(t, Authorize(grants, "https://proxy.example.com/v1/chat/completions"))
	assert.NoError(t, Authorize(grants, "http://localhost:11434/v1/messages"))
	assert.NoError(t, Authorize(grants, ""))

	err := Authorize(grants, "https://evil.example.com/v1/chat/completions")
	assert.ErrorIs(t, err, ErrNeedsAuthorization)

	err = Authorize(nil, "https://api.openai.com/v1/chat/completions")
	assert.ErrorIs(t, err, ErrNeedsAuthorization)
}

func TestProviderIDs(t *testing.T) {
	ids := ProviderIDs()
	assert.Len(t, ids, len(Providers))
	assert.Contains(t, ids, "claude")
	assert.Equal(t, "claude", ids[0])
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Simplified Chinese", LanguageName("zh-CN"))
	assert.Equal(t, "Japanese", LanguageName("ja"))
	assert.Equal(t, "tlh", LanguageName("tlh"))
}

func TestBuildPromptPlainPost(t *testing.T) {
	p := BuildPrompt(PromptInput{
		Post: post.Record{
			PrimaryText:    "Hello world",
			CardText:       "A card title",
			Author:         "Jack",
			PermalinkURL:   "https://x.com/jack/status/20",
			ReferencedURLs: []string{"https://example.com/a"},
		},
		Language: "fr",
	})

	assert.Equal(t, PostTokenBudget, p.MaxOutputTokens)
	assert.Contains(t, p.System, "Write your entire answer in French.")
	assert.Contains(t, p.System, "2 to 5 bullet points")
	assert.Contains(t, p.System, "Credibility: X/10")
	assert.Contains(t, p.User, "Post content:\nHello world")
	assert.Contains(t, p.User, "Referenced links:\n- https://example.com/a")
	assert.Contains(t, p.User, "Attached card:\nA card title")
	assert.Contains(t, p.User, "Source: https://x.com/jack/status/20")
}

func TestBuildPromptSourcePriority(t *testing.T) {
	p := BuildPrompt(PromptInput{Post: post.Record{FallbackText: "only fallback"}, Language: "en"})
	assert.Contains(t, p.User, "Post content:\nonly fallback")

	p = BuildPrompt(PromptInput{Post: post.Record{CardText: "card only"}, Language: "en"})
	assert.Contains(t, p.User, "Post content:\ncard only")
	assert.NotContains(t, p.User, "Attached card")
}

func TestBuildPromptArticle(t *testing.T) {
	p := BuildPrompt(PromptInput{
		Post:      post.Record{PrimaryText: "Must read", Author: "Ann"},
		Article:   &web.Content{Title: "Raft explained", Body: "Leader election works like this."},
		Language:  "ja",
		IsArticle: true,
	})

	assert.Equal(t, LongFormTokenBudget, p.MaxOutputTokens)
	assert.Contains(t, p.System, "5 to 8 bullet points")
	assert.Contains(t, p.System, "Japanese")
	assert.Contains(t, p.User, "Article title: Raft explained")
	assert.Contains(t, p.User, "Article content:\nLeader election works like this.")
	assert.Contains(t, p.User, "Post text:\nMust read")
}

func TestBuildPromptQuoted(t *testing.T) {
	in := PromptInput{
		Post: post.Record{
			PrimaryText:  "Strong disagree",
			QuotedText:   "Short preview",
			QuotedAuthor: "@bob",
		},
		Quoted:        &web.Content{Body: "The full quoted thread."},
		HasQuotedFull: true,
	}
	p := BuildPrompt(in)

	assert.Equal(t, LongFormTokenBudget, p.MaxOutputTokens)
	assert.Contains(t, p.System, "Commenter's Take")
	assert.Contains(t, p.System, "English")
	assert.Contains(t, p.User, "Quoted post (full content) by @bob:\nThe full quoted thread.")
	assert.NotContains(t, p.User, "Short preview")

	in.Quoted, in.HasQuotedFull = nil, false
	p = BuildPrompt(in)
	assert.Contains(t, p.User, "Quoted post by @bob:\nShort preview")
	assert.NotContains(t, p.System, "Commenter's Take")
}

func TestBuildPromptIsPure(t *testing.T) {
	in := PromptInput{Post: post.Record{PrimaryText: "same"}, Language: "de"}
	assert.Equal(t, BuildPrompt(in), BuildPrompt(in))
}

var testPrompt = Prompt{System: "be brief", User: "Hello world", MaxOutputTokens: 2048}

func TestGatewayOpenAI(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  **TLDR** — test.  "}}]}`)
	}))
	defer srv.Close()

	g := NewGateway(WithHTTPClient(srv.Client()))
	text, err := g.Call(context.Background(), CallRequest{
		ProviderID: "deepseek",
		APIKey:     "sk-test",
		Endpoint:   srv.URL + "/v1/chat/completions",
		Prompt:     testPrompt,
	})
	require.NoError(t, err)

	assert.Equal(t, "**TLDR** — test.", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "deepseek-chat", gjson.GetBytes(gotBody, "model").String())
	assert.Equal(t, "system", gjson.GetBytes(gotBody, "messages.0.role").String())
	assert.Equal(t, "Hello world", gjson.GetBytes(gotBody, "messages.1.content").String())
	assert.Equal(t, int64(2048), gjson.GetBytes(gotBody, "max_tokens").Int())
}

func TestGatewayOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"provider message", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, "Incorrect API key provided"},
		{"unparseable body", http.StatusBadGateway, `<html>bad gateway</html>`, "OpenAI API error: 502"},
		{"no choices", http.StatusOK, `{"id":"c1","choices":[]}`, MsgUnexpectedFormat},
		{"empty content", http.StatusOK, `{"id":"c1","choices":[{"message":{"role":"assistant","content":""}}]}`, MsgUnexpectedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewGateway(WithHTTPClient(srv.Client()))
			_, err := g.Call(context.Background(), CallRequest{
				ProviderID: "openai",
				APIKey:     "sk-test",
				Endpoint:   srv.URL + "/v1/chat/completions",
				Prompt:     testPrompt,
			})

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.want, perr.Message)
			assert.Equal(t, 1, calls, "gateway must not retry")
		})
	}
}

func TestGatewayAnthropic(t *testing.T) {
	var header http.Header
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"Summary here"}]}`)
	}))
	defer srv.Close()

	g := NewGateway(WithHTTPClient(srv.Client()))
	text, err := g.Call(context.Background(), CallRequest{
		ProviderID: "claude",
		APIKey:     "sk-ant",
		Endpoint:   srv.URL + "/v1/messages",
		Model:      "claude-test",
		Prompt:     testPrompt,
	})
	require.NoError(t, err)

	assert.Equal(t, "Summary here", text)
	assert.Equal(t, "sk-ant", header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, header.Get("anthropic-version"))
	assert.Empty(t, header.Get("Authorization"))
	assert.Equal(t, "claude-test", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "be brief", gjson.GetBytes(body, "system").String())
	assert.Equal(t, "user", gjson.GetBytes(body, "messages.0.role").String())
	assert.Equal(t, int64(2048), gjson.GetBytes(body, "max_tokens").Int())
}

func TestGatewayAnthropicErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"provider message", http.StatusBadRequest, `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`, "max_tokens too large"},
		{"generic", http.StatusInternalServerError, ``, "Claude API error: 500"},
		{"missing text", http.StatusOK, `{"content":[]}`, MsgUnexpectedFormat},
		{"not json", http.StatusOK, `ok`, MsgUnexpectedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewGateway(WithHTTPClient(srv.Client()))
			_, err := g.Call(context.Background(), CallRequest{
				ProviderID: "claude",
				Endpoint:   srv.URL + "/v1/messages",
				Prompt:     testPrompt,
			})

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.want, perr.Message)
			assert.Equal(t, tt.status, perr.Status)
		})
	}
}

func TestGatewayTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/v1/messages"
	srv.Close()

	g := NewGateway()
	_, err := g.Call(context.Background(), CallRequest{ProviderID: "claude", Endpoint: endpoint, Prompt: testPrompt})
	require.Error(t, err)

	var perr *ProviderError
	assert.False(t, errors.As(err, &perr))
}

type fakeLocal struct {
	prompt Prompt
	model  string
	reply  string
	err    error
}

func (f *fakeLocal) CallLocalModel(ctx context.Context, prompt Prompt, model string) (string, error) {
	f.prompt, f.model = prompt, model
	return f.reply, f.err
}

func TestGatewayLocal(t *testing.T) {
	local := &fakeLocal{reply: "offline summary"}
	g := NewGateway(WithLocalModel(local))

	text, err := g.Call(context.Background(), CallRequest{ProviderID: "local", Prompt: testPrompt})
	require.NoError(t, err)
	assert.Equal(t, "offline summary", text)
	assert.Equal(t, testPrompt, local.prompt)
	assert.Equal(t, "default", local.model)

	_, err = NewGateway().Call(context.Background(), CallRequest{ProviderID: "local", Prompt: testPrompt})
	assert.ErrorIs(t, err, ErrNoLocalModel)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "nested", errorMessage([]byte(`{"error":{"message":" nested "}}`)))
	assert.Equal(t, "top", errorMessage([]byte(`{"message":"top"}`)))
	assert.Empty(t, errorMessage([]byte(`{"error":{"code":42}}`)))
	assert.Empty(t, errorMessage([]byte(strings.Repeat("x", 10))))
}
