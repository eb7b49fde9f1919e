// Package navigate loads pages within a timeout budget and captures
// their rendered markup. Popup dismissal and dialog acceptance are
// best-effort side steps that never participate in error propagation.
package navigate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Classified navigation faults. Both are recoverable: the caller moves
// to the next candidate or strategy.
var (
	// ErrTimeout means the page did not reach DOM-ready within budget.
	ErrTimeout = errors.New("navigate: timeout")
	// ErrFailed covers network and protocol failures.
	ErrFailed = errors.New("navigate: failed")
)

// popupSelectors are common interstitial close buttons on the target site.
var popupSelectors = []string{
	".popup-close",
	".modal-close",
	".close-button",
	`[aria-label="Close"]`,
	".overlay-close",
	".ad-close",
}

// Options bounds one page load.
type Options struct {
	// Timeout is the hard deadline for navigation, settle and capture.
	Timeout time.Duration

	// SettleDelay is a fixed post-load pause for late-rendered content.
	// Bounded, not adaptive.
	SettleDelay time.Duration

	// DismissPopups clicks known close selectors after load.
	DismissPopups bool

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Load navigates the page to pageURL, waits for DOM construction plus
// the settle delay, dismisses popups, and returns the rendered markup.
// Native dialogs are auto-accepted for the lifetime of the page so
// navigation can never hang on an alert.
func Load(ctx context.Context, page *rod.Page, pageURL string, opts Options) (string, error) {
	opts.defaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	acceptDialogs(page)

	// The context-bound clone aborts every subsequent operation once
	// the deadline fires. The original page stays usable for cleanup.
	p := page.Context(ctx)

	if err := p.Navigate(pageURL); err != nil {
		return "", classify("navigate "+pageURL, err)
	}

	// Initial DOM construction only; full network idle is unbounded on
	// ad-heavy pages. A WaitLoad failure without an expired deadline
	// means the load event never fired but the DOM may still be usable.
	if err := p.WaitLoad(); err != nil {
		if expired(err) {
			return "", classify("wait load "+pageURL, err)
		}
		opts.Logger.Debug("navigate: wait load", "url", pageURL, "error", err)
	}

	if opts.SettleDelay > 0 {
		select {
		case <-time.After(opts.SettleDelay):
		case <-ctx.Done():
			return "", classify("settle "+pageURL, ctx.Err())
		}
	}

	if opts.DismissPopups {
		dismissPopups(p, opts.Logger)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return "", classify("capture "+pageURL, err)
	}
	return rawHTML, nil
}

// acceptDialogs auto-accepts alert/confirm dialogs. Fire-and-forget.
func acceptDialogs(page *rod.Page) {
	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
	})()
}

// dismissPopups clicks each known close selector once, ignoring every
// failure. Popups are best-effort and never block progress.
func dismissPopups(p *rod.Page, log *slog.Logger) {
	for _, sel := range popupSelectors {
		has, el, err := p.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.Debug("navigate: popup close failed", "selector", sel, "error", err)
		}
	}
}

func classify(op string, err error) error {
	if expired(err) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrFailed, op, err)
}

func expired(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
