package discovery

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserOptions configures the headless browser session.
type BrowserOptions struct {
	Headless bool
	// UserAgent overrides the browser's own user agent when set
	UserAgent string
	// ExecPath points at a specific Chrome binary; empty uses the default
	// lookup
	ExecPath string
	// SettleDelay is how long NavigateSettled waits after the DOM is ready
	// before reading it, for pages that fill in content with scripts
	SettleDelay time.Duration
}

// BrowserSession drives one Chrome tab. Navigations are sequential; the tab
// is reused for the listing and every article.
type BrowserSession struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	settleDelay time.Duration
}

var _ SettlingNavigator = (*BrowserSession)(nil)

// LaunchBrowser starts Chrome and opens the tab used for the whole run.
func LaunchBrowser(ctx context.Context, opts BrowserOptions) (*BrowserSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...any) {
		log.Printf("WARN: browser: "+format, args...)
	}))

	// The first Run starts the browser process and opens the tab
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &BrowserSession{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		settleDelay: opts.SettleDelay,
	}, nil
}

// Navigate loads pageURL in the tab and returns a snapshot of the rendered
// document. It waits for the DOM, not for every subresource. The deadline
// and cancellation of ctx apply to this navigation only; the tab stays open.
func (b *BrowserSession) Navigate(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := b.load(ctx, pageURL); err != nil {
		return nil, err
	}
	return b.read(ctx)
}

// NavigateSettled loads pageURL under loadCtx, then waits SettleDelay for
// scripts to fill in content before reading the page under settleCtx. The
// wait is not charged to the load deadline.
func (b *BrowserSession) NavigateSettled(loadCtx, settleCtx context.Context, pageURL string) (*goquery.Document, error) {
	if err := b.load(loadCtx, pageURL); err != nil {
		return nil, err
	}

	if b.settleDelay > 0 {
		runCtx, cancel := b.runContext(settleCtx)
		defer cancel()
		if err := chromedp.Run(runCtx, chromedp.Sleep(b.settleDelay)); err != nil {
			return nil, fmt.Errorf("failed to wait for %s: %w", pageURL, err)
		}
	}

	return b.read(settleCtx)
}

// load navigates and waits for the body. Unlike chromedp.Navigate it does
// not wait for the load event.
func (b *BrowserSession) load(ctx context.Context, pageURL string) error {
	runCtx, cancel := b.runContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errorText, err := page.Navigate(pageURL).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			return nil
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", pageURL, err)
	}
	return nil
}

// read snapshots the current document.
func (b *BrowserSession) read(ctx context.Context) (*goquery.Document, error) {
	runCtx, cancel := b.runContext(ctx)
	defer cancel()

	var html, location string
	err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Url, _ = url.Parse(location)

	return doc, nil
}

// runContext derives a context from the tab that carries the deadline and
// cancellation of ctx.
func (b *BrowserSession) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancelRun := context.WithCancel(b.tabCtx)
	cancelDeadline := context.CancelFunc(func() {})
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
	}
	stop := context.AfterFunc(ctx, cancelRun)

	return runCtx, func() {
		stop()
		cancelDeadline()
		cancelRun()
	}
}

// Close shuts the tab and the browser process.
func (b *BrowserSession) Close() error {
	err := chromedp.Cancel(b.tabCtx)
	b.cancelTab()
	b.cancelAlloc()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
