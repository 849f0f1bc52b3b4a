package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ScanProgressReporter renders scan progress with a progress bar.
type ScanProgressReporter struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

// NewScanProgressReporter creates a progress reporter; quiet disables all
// non-error output.
func NewScanProgressReporter(quiet bool) *ScanProgressReporter {
	return &ScanProgressReporter{quiet: quiet}
}

func (s *ScanProgressReporter) OnScanStart(totalFiles int) {
	if s.quiet {
		return
	}
	s.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (s *ScanProgressReporter) OnFileScanned(processed, total int, fileName string) {
	if s.quiet {
		return
	}
	if s.bar != nil {
		s.bar.Add(1)
	}
}

func (s *ScanProgressReporter) OnScanComplete(files, resolvedEdges, brokenImports int, duration time.Duration) {
	if s.quiet {
		return
	}
	if s.bar != nil {
		s.bar.Finish()
		s.bar = nil
	}
	fmt.Printf("✓ Scanned %d files: %d resolved imports, %d broken (took %.1fs)\n",
		files, resolvedEdges, brokenImports, duration.Seconds())
}
