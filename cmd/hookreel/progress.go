package main

import (
	"net/url"
	"os"
	"path"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"hookreel/internal/mediacache"
)

// barObserver draws a transfer bar for each media download.
type barObserver struct {
	out *os.File
	bar *progressbar.ProgressBar
}

// newFetchObserver returns a progress bar observer when out is a terminal,
// and nil otherwise so log-only runs stay clean.
func newFetchObserver(out *os.File) mediacache.Observer {
	if out == nil {
		return nil
	}
	if !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return nil
	}
	return &barObserver{out: out}
}

func (o *barObserver) Begin(rawURL string, total int64) {
	o.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(o.out),
		progressbar.OptionSetDescription(mediaLabel(rawURL)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (o *barObserver) Advance(n int) {
	if o.bar != nil {
		_ = o.bar.Add(n)
	}
}

func (o *barObserver) End(err error) {
	if o.bar == nil {
		return
	}
	if err != nil {
		_ = o.bar.Exit()
	} else {
		_ = o.bar.Finish()
	}
	o.bar = nil
}

func mediaLabel(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return rawURL
	}
	return path.Base(parsed.Path)
}
