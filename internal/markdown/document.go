package markdown

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iamzifei/bookmark-is-learned/internal/post"
	"github.com/iamzifei/bookmark-is-learned/internal/web"
)

// Mode selects which sections a saved note contains.
type Mode string

const (
	ModeSummary  Mode = "summary"
	ModeOriginal Mode = "original"
	ModeRaw      Mode = "raw"
)

// ParseMode maps a settings value to a Mode, defaulting to ModeSummary.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOriginal:
		return ModeOriginal
	case ModeRaw:
		return ModeRaw
	default:
		return ModeSummary
	}
}

const dateLayout = "2006-01-02 15:04"

// DocumentInput is everything a note is built from.
type DocumentInput struct {
	Post        post.Record
	TLDR        string
	Article     *web.Content
	Quoted      *web.Content
	IsArticle   bool
	Mode        Mode
	Now         time.Time
	FrontMatter bool
}

// Title is the article title, else the author.
func (in DocumentInput) Title() string {
	if in.Article != nil && strings.TrimSpace(in.Article.Title) != "" {
		return strings.TrimSpace(in.Article.Title)
	}
	if a := strings.TrimSpace(in.Post.Author); a != "" {
		return a
	}
	return "Untitled"
}

func (in DocumentInput) source() string {
	if in.Post.PermalinkURL != "" {
		return in.Post.PermalinkURL
	}
	return in.Post.OriginURL
}

// mainText is the body of the original content section.
func (in DocumentInput) mainText() string {
	if in.IsArticle && in.Article != nil && strings.TrimSpace(in.Article.Body) != "" {
		return strings.TrimSpace(StripMetadataPrefix(in.Article.Body, in.Article.Title, in.Post.Author))
	}
	return strings.TrimSpace(in.Post.MainText())
}

// NoteMeta is the optional front matter of a saved note.
type NoteMeta struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Source string `yaml:"source"`
	Date   string `yaml:"date"`
	Mode   Mode   `yaml:"mode"`
}

func (m NoteMeta) String() string {
	var sb strings.Builder

	writeKV := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", key, strconv.Quote(value))
		}
	}

	sb.WriteString("---\n")
	writeKV("title", m.Title)
	writeKV("author", m.Author)
	writeKV("source", m.Source)
	writeKV("date", m.Date)
	writeKV("mode", string(m.Mode))
	sb.WriteString("---\n")

	return sb.String()
}

func engagement(m post.Metrics) string {
	if m.Replies == "0" && m.Retweets == "0" && m.Likes == "0" && m.Views == "0" {
		return ""
	}
	return fmt.Sprintf("💬 %s · 🔁 %s · ❤️ %s · 👁 %s", m.Replies, m.Retweets, m.Likes, m.Views)
}

// BuildDocument renders the note for one summarized post.
func BuildDocument(in DocumentInput) string {
	rec := in.Post
	rec.Normalize()
	title := in.Title()
	date := in.Now.Format(dateLayout)

	var b strings.Builder

	if in.FrontMatter {
		b.WriteString(NoteMeta{
			Title:  title,
			Author: rec.Author,
			Source: in.source(),
			Date:   date,
			Mode:   in.Mode,
		}.String())
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "# %s\n\n", title)
	if rec.Author != "" {
		fmt.Fprintf(&b, "> Author: %s\n", rec.Author)
	}
	if src := in.source(); src != "" {
		fmt.Fprintf(&b, "> Source: %s\n", Link(src, src))
	}
	fmt.Fprintf(&b, "> Date: %s\n", date)
	if e := engagement(rec.Metrics); e != "" {
		fmt.Fprintf(&b, "> Engagement: %s\n", e)
	}
	b.WriteString("\n---\n\n")

	if in.Mode != ModeRaw && strings.TrimSpace(in.TLDR) != "" {
		b.WriteString("## TLDR\n\n")
		b.WriteString(strings.TrimSpace(in.TLDR))
		b.WriteString("\n\n---\n\n")
	}

	if in.Mode == ModeOriginal || in.Mode == ModeRaw {
		writeOriginal(&b, in)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeOriginal(b *strings.Builder, in DocumentInput) {
	rec := in.Post
	main := in.mainText()

	b.WriteString("## Original Content\n\n")
	if main != "" {
		b.WriteString(main)
		b.WriteString("\n\n")
	}

	quoted := strings.TrimSpace(rec.QuotedText)
	if in.Quoted != nil && strings.TrimSpace(in.Quoted.Body) != "" {
		quoted = strings.TrimSpace(in.Quoted.Body)
	}
	if quoted != "" {
		b.WriteString("### Quoted Content\n\n")
		if rec.QuotedAuthor != "" {
			fmt.Fprintf(b, "> %s\n>\n", rec.QuotedAuthor)
		}
		for _, line := range strings.Split(quoted, "\n") {
			b.WriteString(strings.TrimRight("> "+line, " "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	card := strings.TrimSpace(rec.CardText)
	if card != "" && card != main {
		b.WriteString("### Attached Card\n\n")
		b.WriteString(card)
		b.WriteString("\n\n")
	}

	if len(rec.ReferencedURLs) > 0 {
		b.WriteString("### Referenced Links\n\n")
		for _, u := range rec.ReferencedURLs {
			fmt.Fprintf(b, "- %s\n", Link(u, u))
		}
		b.WriteString("\n")
	}
}
