package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iamzifei/bookmark-is-learned/internal/nativehost"
)

// FileDownloader is a download manager backed by the local filesystem. Staged
// content lives in a temp file until released.
type FileDownloader struct {
	Dir string
}

func (d *FileDownloader) Stage(content []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "btl-note-*.md")
	if err != nil {
		return "", nil, err
	}
	name := f.Name()

	_, err = f.Write(content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(name)
		return "", nil, err
	}

	return name, func() { os.Remove(name) }, nil
}

// Download copies source to filename under Dir, uniquifying on conflict.
func (d *FileDownloader) Download(ctx context.Context, source, filename string) (<-chan DownloadEvent, error) {
	if d.Dir == "" {
		return nil, fmt.Errorf("no downloads directory")
	}
	target := filepath.Join(d.Dir, filepath.FromSlash(filename))
	if rel, err := filepath.Rel(d.Dir, target); err != nil || !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("invalid download name %q", filename)
	}

	events := make(chan DownloadEvent, 2)
	events <- DownloadEvent{State: DownloadInProgress}

	go func() {
		defer close(events)

		if err := ctx.Err(); err != nil {
			events <- DownloadEvent{State: DownloadInterrupted, Error: err.Error()}
			return
		}

		data, err := os.ReadFile(source)
		if err != nil {
			events <- DownloadEvent{State: DownloadInterrupted, Error: err.Error()}
			return
		}

		final, err := nativehost.WriteUnique(target, data)
		if err != nil {
			events <- DownloadEvent{State: DownloadInterrupted, Error: err.Error()}
			return
		}
		events <- DownloadEvent{State: DownloadComplete, Path: final}
	}()

	return events, nil
}
