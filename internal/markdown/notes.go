package markdown

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
)

// Note is a saved note found on disk.
type Note struct {
	Path string
	NoteMeta
}

// ListNotes walks dir for markdown notes, newest file first. Front matter is
// optional; without it the title comes from the first H1.
func ListNotes(dir string) ([]Note, error) {
	slog.Debug("scanning notes", "dir", dir)

	type found struct {
		note    Note
		modUnix int64
	}
	var all []found

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("failed to access file", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		var meta NoteMeta
		rest, err := frontmatter.Parse(bytes.NewReader(content), &meta)
		if err != nil {
			slog.Warn("failed to parse frontmatter", "path", path, "error", err)
			rest = content
		}
		if meta.Title == "" {
			meta.Title = firstHeading(rest)
		}

		var mod int64
		if info, err := d.Info(); err == nil {
			mod = info.ModTime().UnixNano()
		}
		all = append(all, found{note: Note{Path: path, NoteMeta: meta}, modUnix: mod})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning notes: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].modUnix > all[j].modUnix
	})

	notes := make([]Note, 0, len(all))
	for _, f := range all {
		notes = append(notes, f.note)
	}
	return notes, nil
}

func firstHeading(body []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		if title, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}
