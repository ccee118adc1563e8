package storage

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const previewLen = 120

// HistoryEntry is one past summarization. Entries are never mutated after
// they are appended.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	SourceURL string    `json:"sourceUrl"`
	Preview   string    `json:"preview"`
	TLDR      string    `json:"tldr"`
	IsArticle bool      `json:"isArticle"`
}

// NewHistoryEntry builds an entry with a fresh ID and a preview of text.
func NewHistoryEntry(now time.Time, author, sourceURL, text, tldr string, isArticle bool) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Author:    author,
		SourceURL: sourceURL,
		Preview:   Preview(text),
		TLDR:      tldr,
		IsArticle: isArticle,
	}
}

// Preview cuts text to previewLen runes and marks the cut with an ellipsis.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	return string([]rune(text)[:previewLen]) + "…"
}

type SaveMethod string

const (
	MethodHelper          SaveMethod = "helper"
	MethodPageDownload    SaveMethod = "page-download"
	MethodDownloadManager SaveMethod = "download-manager"
)

// SaveOutcome is the latest persistence attempt, kept for diagnostics only.
type SaveOutcome struct {
	Timestamp time.Time  `json:"timestamp"`
	Success   bool       `json:"success"`
	Method    SaveMethod `json:"method,omitempty"`
	Path      string     `json:"path,omitempty"`
	Error     string     `json:"error,omitempty"`
}
