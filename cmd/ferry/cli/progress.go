package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/meigma/ferry"
	"github.com/meigma/ferry/cmd/ferry/cli/config"
)

// shouldShowProgress returns true if progress bars should be displayed.
func shouldShowProgress() bool {
	switch cfg.Progress {
	case config.ProgressPlain:
		return false
	case config.ProgressTTY:
		return true
	default:
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

// newProgressBar creates a new progress bar for byte-based operations.
// A negative total renders a spinner.
func newProgressBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}

// transferProgress renders the progress of one transfer. Its methods are
// called from ferry callbacks, so they all run on the owner goroutine.
type transferProgress struct {
	w           io.Writer
	description string
	enabled     bool

	bar   *progressbar.ProgressBar
	total int64
	done  int64
}

func newTransferProgress(description string) *transferProgress {
	return &transferProgress{
		w:           os.Stderr,
		description: description,
		enabled:     shouldShowProgress(),
		total:       ferry.UnknownSize,
	}
}

// update records a cumulative progress sample.
func (p *transferProgress) update(total, done int64) {
	p.done = done
	if !p.enabled {
		p.total = total
		return
	}
	if p.bar == nil {
		p.bar = newProgressBar(p.w, total, p.description)
	} else if total != p.total {
		p.bar.ChangeMax64(total)
	}
	p.total = total
	//nolint:errcheck // progress bar errors are not critical
	p.bar.Set64(done)
}

// finish completes the bar, if one was drawn.
func (p *transferProgress) finish() {
	if p.bar != nil {
		//nolint:errcheck // progress bar errors are not critical
		p.bar.Finish()
		fmt.Fprintln(p.w)
	}
}

// size formats the bytes moved so far.
func (p *transferProgress) size() string {
	return humanSize(p.done)
}

// humanSize formats a byte count, treating negative counts as unknown.
func humanSize(n int64) string {
	if n < 0 {
		return "unknown size"
	}
	return humanize.IBytes(uint64(n))
}
