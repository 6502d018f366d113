package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/hackdecl/internal/index"
)

// CLIProgressReporter implements index.ProgressReporter with a progress bar.
type CLIProgressReporter struct {
	w       io.Writer
	quiet   bool
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to w.
func NewCLIProgressReporter(w io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{w: w, quiet: quiet}
}

func (c *CLIProgressReporter) OnDiscoveryComplete(totalFiles int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.w, "Found %s source files\n", formatNumber(totalFiles))
}

func (c *CLIProgressReporter) OnExtractStart(changedFiles int) {
	if c.quiet || changedFiles == 0 {
		return
	}
	c.fileBar = progressbar.NewOptions(changedFiles,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Extracting declarations"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.w)
		}),
	)
}

// OnFileExtracted may be called from several goroutines; the bar serializes Add.
func (c *CLIProgressReporter) OnFileExtracted(path string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	_ = c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnComplete(stats *index.Stats) {
	if c.fileBar != nil {
		_ = c.fileBar.Finish()
		c.fileBar = nil
	}
	if c.quiet {
		return
	}

	fmt.Fprintf(c.w, "✓ Index updated in %.1fs\n", stats.Duration.Seconds())
	fmt.Fprintf(c.w, "  Extracted: %s\n", formatNumber(stats.Extracted))
	fmt.Fprintf(c.w, "  Unchanged: %s\n", formatNumber(stats.Unchanged))
	if stats.Failed > 0 {
		fmt.Fprintf(c.w, "  Failed:    %s\n", formatNumber(stats.Failed))
	}
	if stats.Removed > 0 {
		fmt.Fprintf(c.w, "  Removed:   %s\n", formatNumber(stats.Removed))
	}
	if stats.CacheHits > 0 {
		fmt.Fprintf(c.w, "  Cache hits: %s\n", formatNumber(stats.CacheHits))
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
