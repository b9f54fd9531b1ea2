// Package output renders run progress and final summaries on the
// terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/surgekit/surgekit/internal/loadgen"
)

// ColorScheme defines the colors used for the different summary
// elements.
type ColorScheme struct {
	Title     *color.Color
	Label     *color.Color
	Value     *color.Color
	Success   *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Label:     color.New(color.FgYellow),
		Value:     color.New(color.FgWhite),
		Success:   color.New(color.FgGreen),
		Error:     color.New(color.FgRed),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Title.DisableColor()
	scheme.Label.DisableColor()
	scheme.Value.DisableColor()
	scheme.Success.DisableColor()
	scheme.Error.DisableColor()
	scheme.Highlight.DisableColor()
	return scheme
}

// Printer writes human-readable run output.
type Printer struct {
	w      io.Writer
	scheme *ColorScheme
}

// NewPrinter creates a printer for w. Colors are dropped when w is not
// a terminal or when noColor is set.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	scheme := DefaultColorScheme()
	if noColor || !writerIsTerminal(w) {
		scheme = NoColorScheme()
	}
	return &Printer{w: w, scheme: scheme}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Header announces the run before load starts.
func (p *Printer) Header(name string, cfg *loadgen.RunConfig) {
	p.scheme.Title.Fprintf(p.w, "%s", name)
	fmt.Fprintf(p.w, "  test=%s duration=%s vus=%d target=%s\n",
		cfg.TestID, cfg.Duration, cfg.VUs, cfg.BaseURL)
}

// Progress writes one live status line, overwriting the previous one.
func (p *Printer) Progress(stats loadgen.LiveStats, elapsed, total time.Duration) {
	fmt.Fprintf(p.w, "\r  %s / %s   requests=%d errors=%d p50=%.1fms p95=%.1fms",
		elapsed.Round(time.Second), total,
		stats.Requests, stats.Errors,
		float64(stats.P50)/float64(time.Millisecond),
		float64(stats.P95)/float64(time.Millisecond))
}

// ProgressDone terminates the live status line.
func (p *Printer) ProgressDone() {
	fmt.Fprintln(p.w)
}

// Summary renders the final statistics of a completed run.
func (p *Printer) Summary(testID string, s loadgen.Summary) {
	p.scheme.Title.Fprintf(p.w, "\nResults: %s\n", testID)

	p.line("requests", "%d", s.TotalRequests)
	if s.ErrorCount > 0 {
		p.scheme.Label.Fprintf(p.w, "  %-12s", "errors")
		p.scheme.Error.Fprintf(p.w, "%d (%.2f%%)\n", s.ErrorCount, s.ErrorRate*100)
	} else {
		p.scheme.Label.Fprintf(p.w, "  %-12s", "errors")
		p.scheme.Success.Fprintf(p.w, "0\n")
	}
	p.line("throughput", "%.1f ops/s", s.Throughput)
	p.line("latency", "avg=%.2fms p50=%.2fms p95=%.2fms p99=%.2fms", s.AvgMs, s.P50Ms, s.P95Ms, s.P99Ms)
	p.line("transferred", "%s (%s/s)", formatBytes(s.TotalBytes), formatBytes(int64(s.Bandwidth)))
	p.line("elapsed", "%.2fs", s.ElapsedSeconds)
}

func (p *Printer) line(label, format string, args ...any) {
	p.scheme.Label.Fprintf(p.w, "  %-12s", label)
	p.scheme.Value.Fprintf(p.w, format+"\n", args...)
}

// JSON writes the summary as a single machine-readable object.
func (p *Printer) JSON(s loadgen.Summary) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMG"[exp])
}
