package llm

import (
	"fmt"
	"strings"

	"github.com/iamzifei/bookmark-is-learned/internal/post"
	"github.com/iamzifei/bookmark-is-learned/internal/web"
)

// Output token budgets passed to providers.
const (
	LongFormTokenBudget = 4096
	PostTokenBudget     = 2048
)

// Prompt is a rendered instruction pair. Providers treat it as opaque.
type Prompt struct {
	System          string
	User            string
	MaxOutputTokens int
}

// PromptInput carries what BuildPrompt needs. Article and Quoted are nil
// when nothing was fetched.
type PromptInput struct {
	Post          post.Record
	Article       *web.Content
	Quoted        *web.Content
	Language      string
	IsArticle     bool
	HasQuotedFull bool
}

var languageNames = map[string]string{
	"zh-CN": "Simplified Chinese",
	"zh-TW": "Traditional Chinese",
	"en":    "English",
	"ja":    "Japanese",
	"ko":    "Korean",
	"fr":    "French",
	"de":    "German",
	"es":    "Spanish",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"it":    "Italian",
	"ar":    "Arabic",
}

// LanguageName maps a language code to its English name. Unknown codes are
// returned unchanged.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

const factCheckBlock = `After the summary, add a fact check section in exactly this format:

**Fact Check**
1. List each factual claim made in the content.
2. Mark each claim as one of: ✅ Verifiable, ⚠️ Partially verifiable, 💭 Opinion, ❓ Unverifiable, with a short reason.
3. End with a single line: "Credibility: X/10 — <one sentence justification>".`

const articleTemplate = `You are an expert reader who distills long-form articles into concise, actionable notes.
Write your entire answer in %s.

Structure your answer as:
**TLDR** — one or two sentences capturing the core message.

**Key Points**
5 to 8 bullet points, each a distinct insight or piece of value from the article.

**Steps** (only if the article describes a process or method)
A numbered list of the concrete steps.

**Why It Matters** — one short paragraph on the significance of the article.

%s`

const quotedTemplate = `You are an expert reader who summarizes social posts that quote or reference another post.
Write your entire answer in %s.

Structure your answer as:
**TLDR** — one or two sentences covering both the post and the quoted content.

**Quoted Content**
2 to 5 bullet points summarizing the full quoted content.

**Commenter's Take** — what the quoting author adds, agrees with, or disputes.

%s`

const postTemplate = `You are an expert reader who summarizes social posts.
Write your entire answer in %s.

Structure your answer as:
**TLDR** — one sentence capturing the point of the post.

**Key Points**
2 to 5 bullet points.

%s`

// BuildPrompt renders the system and user messages for one summarization.
func BuildPrompt(in PromptInput) Prompt {
	language := LanguageName(in.Language)
	if language == "" {
		language = LanguageName("en")
	}

	var system string
	budget := PostTokenBudget
	switch {
	case in.IsArticle:
		system = fmt.Sprintf(articleTemplate, language, factCheckBlock)
		budget = LongFormTokenBudget
	case in.HasQuotedFull:
		system = fmt.Sprintf(quotedTemplate, language, factCheckBlock)
		budget = LongFormTokenBudget
	default:
		system = fmt.Sprintf(postTemplate, language, factCheckBlock)
	}

	return Prompt{
		System:          system,
		User:            buildUser(in),
		MaxOutputTokens: budget,
	}
}

func buildUser(in PromptInput) string {
	p := in.Post
	var b strings.Builder

	if p.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", p.Author)
	}
	if src := firstNonEmpty(p.PermalinkURL, p.OriginURL); src != "" {
		fmt.Fprintf(&b, "Source: %s\n", src)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	main := strings.TrimSpace(p.MainText())
	if in.Article != nil && strings.TrimSpace(in.Article.Body) != "" {
		if in.Article.Title != "" {
			fmt.Fprintf(&b, "Article title: %s\n\n", in.Article.Title)
		}
		b.WriteString("Article content:\n")
		b.WriteString(strings.TrimSpace(in.Article.Body))
		b.WriteString("\n")
		if strings.TrimSpace(p.PrimaryText) != "" {
			fmt.Fprintf(&b, "\nPost text:\n%s\n", strings.TrimSpace(p.PrimaryText))
		}
	} else if main != "" {
		fmt.Fprintf(&b, "Post content:\n%s\n", main)
	}

	if len(p.ReferencedURLs) > 0 {
		b.WriteString("\nReferenced links:\n")
		for _, link := range p.ReferencedURLs {
			fmt.Fprintf(&b, "- %s\n", link)
		}
	}

	switch {
	case in.Quoted != nil && strings.TrimSpace(in.Quoted.Body) != "":
		b.WriteString("\nQuoted post (full content)")
		if p.QuotedAuthor != "" {
			fmt.Fprintf(&b, " by %s", p.QuotedAuthor)
		}
		fmt.Fprintf(&b, ":\n%s\n", strings.TrimSpace(in.Quoted.Body))
	case strings.TrimSpace(p.QuotedText) != "":
		b.WriteString("\nQuoted post")
		if p.QuotedAuthor != "" {
			fmt.Fprintf(&b, " by %s", p.QuotedAuthor)
		}
		fmt.Fprintf(&b, ":\n%s\n", strings.TrimSpace(p.QuotedText))
	}

	card := strings.TrimSpace(p.CardText)
	if card != "" && card != strings.TrimSpace(p.PrimaryText) && card != main {
		fmt.Fprintf(&b, "\nAttached card:\n%s\n", card)
	}

	return strings.TrimSpace(b.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
