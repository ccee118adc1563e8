package markdown

import (
	"context"
	"strings"
	"time"

	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

// DefaultSubfolder is where the download manager puts notes.
const DefaultSubfolder = "bookmark-is-learned"

const (
	defaultPageTimeout     = 10 * time.Second
	defaultDownloadTimeout = 30 * time.Second
	defaultReleaseDelay    = 10 * time.Second
)

// Persister turns a result into a note and saves it through the save chain.
// Page and Downloader may be nil.
type Persister struct {
	Helper     HelperWriter
	Page       PageBridge
	Downloader Downloader
	Recorder   OutcomeRecorder

	Subfolder       string
	PageTimeout     time.Duration
	DownloadTimeout time.Duration
	ReleaseDelay    time.Duration
}

// PersistInput adds the per-request save directory to a document.
type PersistInput struct {
	DocumentInput
	SaveDir string
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Persist builds the note and saves it. Failures end up in the returned and
// recorded outcome, never as an error.
func (p *Persister) Persist(ctx context.Context, in PersistInput) storage.SaveOutcome {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	var title string
	if in.Article != nil {
		title = in.Article.Title
	}
	file := File{
		Name:    BuildFilename(in.Post, title, excerpt(in.Post.MainText()), in.Now),
		Content: BuildDocument(in.DocumentInput),
	}

	subfolder := p.Subfolder
	if subfolder == "" {
		subfolder = DefaultSubfolder
	}

	chain := NewChain(p.Recorder,
		&HelperSaver{Helper: p.Helper, Dir: in.SaveDir},
		&PageSaver{Bridge: p.Page, Timeout: orDefault(p.PageTimeout, defaultPageTimeout)},
		&DownloadSaver{
			Downloader:   p.Downloader,
			Subfolder:    subfolder,
			Timeout:      orDefault(p.DownloadTimeout, defaultDownloadTimeout),
			ReleaseDelay: orDefault(p.ReleaseDelay, defaultReleaseDelay),
		},
	)
	return chain.Save(ctx, file)
}

// excerpt is the first non-empty line of text.
func excerpt(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}
