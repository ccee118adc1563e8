package markdown

import "strings"

var (
	urlEscaper  = strings.NewReplacer("(", "%28", ")", "%29")
	textEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)
)

// EscapeLinkURL percent-encodes parentheses so a URL cannot close the
// surrounding link early.
func EscapeLinkURL(u string) string {
	return urlEscaper.Replace(u)
}

// EscapeLinkText backslash-escapes square brackets in link text.
func EscapeLinkText(s string) string {
	return textEscaper.Replace(s)
}

// Link renders a markdown link with both parts escaped.
func Link(text, url string) string {
	return "[" + EscapeLinkText(text) + "](" + EscapeLinkURL(url) + ")"
}
