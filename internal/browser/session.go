// Package browser provides a chromedp-backed results page for the loader.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrSessionStart means the automation session could not be started. It is
// the only error that aborts a scrape run.
var ErrSessionStart = errors.New("browser session failed to start")

const defaultActionTimeout = 45 * time.Second

// Options configures the browser session.
type Options struct {
	ExecPath         string
	Headless         bool
	UserAgent        string
	LoadMoreSelector string
	ActionTimeout    time.Duration
}

// Session owns one browser tab. It is not safe for concurrent use; the
// loader is its only caller.
type Session struct {
	allocCtx      context.Context
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc

	moreSelector  string
	actionTimeout time.Duration
}

// Start launches the browser. Failures wrap ErrSessionStart.
func Start(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	s := &Session{
		moreSelector:  opts.LoadMoreSelector,
		actionTimeout: opts.ActionTimeout,
	}
	if s.actionTimeout <= 0 {
		s.actionTimeout = defaultActionTimeout
	}

	s.allocCtx, s.cancelAlloc = chromedp.NewExecAllocator(ctx, allocOpts...)
	s.browserCtx, s.cancelBrowser = chromedp.NewContext(s.allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
	}))

	// An empty Run starts the browser process.
	if err := chromedp.Run(s.browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}
	return s, nil
}

// Close shuts the tab and the browser down.
func (s *Session) Close() error {
	if s.cancelBrowser != nil {
		s.cancelBrowser()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
	return nil
}

// Open navigates to rawURL.
func (s *Session) Open(ctx context.Context, rawURL string) error {
	return s.run(ctx, chromedp.Navigate(rawURL))
}

// Snapshot returns the rendered document HTML.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Find reports whether selector matches at least one element.
func (s *Session) Find(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, err
	}
	return found, nil
}

// WaitVisible blocks until selector is visible or timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Control states reported by the load-more script.
const (
	controlClicked  = "clicked"
	controlMissing  = "missing"
	controlDisabled = "disabled"
	controlHidden   = "hidden"
)

const clickMoreScript = `(function(sel) {
	const btn = document.querySelector(sel);
	if (!btn) { return %q; }
	if (btn.disabled || btn.getAttribute("aria-disabled") === "true") { return %q; }
	const rect = btn.getBoundingClientRect();
	if (rect.width === 0 && rect.height === 0) { return %q; }
	btn.scrollIntoView({block: "end"});
	btn.click();
	return %q;
})(%q)`

// RequestMore scrolls the load-more control into view and clicks it.
func (s *Session) RequestMore(ctx context.Context) (bool, error) {
	if s.moreSelector == "" {
		return false, nil
	}
	var state string
	script := fmt.Sprintf(clickMoreScript, controlMissing, controlDisabled, controlHidden, controlClicked, s.moreSelector)
	if err := s.run(ctx, chromedp.Evaluate(script, &state)); err != nil {
		return false, err
	}
	if state != controlClicked {
		slog.Debug("load more control unavailable", "state", state)
		return false, nil
	}
	return true, nil
}

// run executes actions on the tab bounded by ctx and the action timeout.
// Cancelling a derived context stops the actions without closing the tab.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browserCtx, s.actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}
