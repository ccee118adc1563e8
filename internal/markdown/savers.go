package markdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

// ErrUnavailable marks a save method that cannot run in the current setup.
var ErrUnavailable = errors.New("save method unavailable")

// File is a rendered note ready to be written.
type File struct {
	Name    string
	Content string
}

// Saver is one persistence method.
type Saver interface {
	Method() storage.SaveMethod
	Save(ctx context.Context, f File) (string, error)
}

// OutcomeRecorder stores the latest SaveOutcome.
type OutcomeRecorder interface {
	SetLastSave(storage.SaveOutcome) error
}

// Chain tries savers in order until one succeeds.
type Chain struct {
	savers   []Saver
	recorder OutcomeRecorder
	now      func() time.Time
}

func NewChain(recorder OutcomeRecorder, savers ...Saver) *Chain {
	return &Chain{savers: savers, recorder: recorder, now: time.Now}
}

// Save runs the chain and records the outcome. It never fails; the outcome
// says what happened.
func (c *Chain) Save(ctx context.Context, f File) storage.SaveOutcome {
	var errs []string
	outcome := storage.SaveOutcome{Success: false}

	for _, s := range c.savers {
		p, err := s.Save(ctx, f)
		if err == nil {
			slog.Info("note saved", "method", s.Method(), "path", p)
			outcome = storage.SaveOutcome{Success: true, Method: s.Method(), Path: p}
			break
		}
		if !errors.Is(err, ErrUnavailable) {
			slog.Warn("save method failed", "method", s.Method(), "error", err)
		}
		errs = append(errs, fmt.Sprintf("%s: %v", s.Method(), err))
	}

	if !outcome.Success {
		outcome.Error = "all save methods failed"
		if len(errs) > 0 {
			outcome.Error += ": " + strings.Join(errs, "; ")
		}
		slog.Error("note not saved", "file", f.Name, "error", outcome.Error)
	}
	outcome.Timestamp = c.now()

	if c.recorder != nil {
		if err := c.recorder.SetLastSave(outcome); err != nil {
			slog.Warn("failed to record save outcome", "error", err)
		}
	}
	return outcome
}

// HelperWriter is the native helper's write_file action.
type HelperWriter interface {
	WriteFile(ctx context.Context, path, content string) (string, error)
}

// HelperSaver writes into the configured directory through the native helper.
type HelperSaver struct {
	Helper HelperWriter
	Dir    string
}

func (s *HelperSaver) Method() storage.SaveMethod { return storage.MethodHelper }

func (s *HelperSaver) Save(ctx context.Context, f File) (string, error) {
	if s.Helper == nil || strings.TrimSpace(s.Dir) == "" {
		return "", ErrUnavailable
	}
	return s.Helper.WriteFile(ctx, filepath.Join(s.Dir, f.Name), f.Content)
}

// PageBridge asks the originating page to offer the note as a named download.
// The returned channel yields once the page reports completion.
type PageBridge interface {
	SaveFile(ctx context.Context, name, content string) (<-chan error, error)
}

// PageSaver delegates to the originating page.
type PageSaver struct {
	Bridge  PageBridge
	Timeout time.Duration
}

func (s *PageSaver) Method() storage.SaveMethod { return storage.MethodPageDownload }

func (s *PageSaver) Save(ctx context.Context, f File) (string, error) {
	if s.Bridge == nil {
		return "", ErrUnavailable
	}

	done, err := s.Bridge.SaveFile(ctx, f.Name, f.Content)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return "", err
		}
	case <-timer.C:
		slog.Debug("page save not confirmed in time", "file", f.Name)
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return f.Name, nil
}

// DownloadState mirrors the download manager's item states.
type DownloadState string

const (
	DownloadInProgress  DownloadState = "in_progress"
	DownloadComplete    DownloadState = "complete"
	DownloadInterrupted DownloadState = "interrupted"
)

// DownloadEvent is a state change of one download.
type DownloadEvent struct {
	State DownloadState
	Path  string
	Error string
}

// Downloader is the download manager. Stage makes content addressable as a
// source for Download and returns a release func for it.
type Downloader interface {
	Stage(content []byte) (source string, release func(), err error)
	Download(ctx context.Context, source, filename string) (<-chan DownloadEvent, error)
}

// DownloadSaver saves into a fixed subfolder of the downloads location.
type DownloadSaver struct {
	Downloader   Downloader
	Subfolder    string
	Timeout      time.Duration
	ReleaseDelay time.Duration
}

func (s *DownloadSaver) Method() storage.SaveMethod { return storage.MethodDownloadManager }

func (s *DownloadSaver) Save(ctx context.Context, f File) (string, error) {
	if s.Downloader == nil {
		return "", ErrUnavailable
	}

	source, release, err := s.Downloader.Stage([]byte(f.Content))
	if err != nil {
		return "", fmt.Errorf("staging download: %w", err)
	}
	// Once the download has settled the source is no longer read. Otherwise
	// it may still be in use, so release it later.
	settled := false
	defer func() {
		if settled {
			release()
		} else {
			time.AfterFunc(s.ReleaseDelay, release)
		}
	}()

	name := f.Name
	if s.Subfolder != "" {
		name = path.Join(s.Subfolder, f.Name)
	}

	events, err := s.Downloader.Download(ctx, source, name)
	if err != nil {
		settled = true
		return "", fmt.Errorf("starting download: %w", err)
	}

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	last := name
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				settled = true
				return last, nil
			}
			if ev.Path != "" {
				last = ev.Path
			}
			switch ev.State {
			case DownloadComplete:
				settled = true
				return last, nil
			case DownloadInterrupted:
				settled = true
				return "", fmt.Errorf("download interrupted: %s", ev.Error)
			}
		case <-timer.C:
			slog.Debug("download not confirmed in time", "file", name)
			return last, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
