package cli

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"ragpipe/internal/vectorstore"
)

// progressEnabled reports whether stderr is a terminal.
func progressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// newEmbedProgress returns a progress callback drawing an embedding bar on w,
// or nil when disabled.
func newEmbedProgress(enabled bool, w io.Writer) vectorstore.ProgressFunc {
	if !enabled {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("embedding"),
				progressbar.OptionSetWidth(32),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		_ = bar.Set(done)
		if done >= total {
			_ = bar.Finish()
		}
	}
}
