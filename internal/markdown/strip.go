package markdown

import (
	"regexp"
	"strings"
)

const stripWindow = 25

var metadataLine = []*regexp.Regexp{
	regexp.MustCompile(`^@\w{1,30}$`),
	regexp.MustCompile(`(?i)^(follow|following|subscribe|subscribed|关注|已关注)$`),
	regexp.MustCompile(`^[·•|]+$`),
	regexp.MustCompile(`^[\d.,]+\s*[KkMmBb万亿]?$`),
	regexp.MustCompile(`^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}`),
	regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.? \d{1,2}(, \d{4})?$`),
	regexp.MustCompile(`(?i)^\d{1,2} (jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?( \d{4})?$`),
	regexp.MustCompile(`^\d{1,2}[smhd]$`),
	regexp.MustCompile(`^\d{4}年\d{1,2}月\d{1,2}日$`),
	regexp.MustCompile(`(?i)^\d{1,2}:\d{2}(\s?[ap]m)?(\s*·.*)?$`),
}

// StripMetadataPrefix removes leading lines of an article body that repeat
// the title, author, handle, date, follow button or engagement counters.
// Only the first stripWindow lines are considered; when every one of them
// looks like metadata the body is returned unchanged, as is a body with no
// metadata prefix at all.
func StripMetadataPrefix(body, title, author string) string {
	lines := strings.Split(body, "\n")
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	for i, line := range lines {
		if i >= stripWindow {
			return body
		}

		l := strings.TrimSpace(line)
		if l == "" || isMetadataLine(l, title, author) {
			continue
		}
		if i == 0 {
			return body
		}
		return strings.Join(lines[i:], "\n")
	}
	return body
}

func isMetadataLine(l, title, author string) bool {
	if (title != "" && l == title) || (author != "" && l == author) {
		return true
	}
	if author != "" && strings.TrimPrefix(l, "@") == strings.TrimPrefix(author, "@") {
		return true
	}
	for _, re := range metadataLine {
		if re.MatchString(l) {
			return true
		}
	}
	return false
}
