// Package fetch is the crawler's single choke-point for outbound requests:
// a shared rate limiter, retrying static HTTP fetch, and a lazily-created
// headless-browser instance for rendered fetches. Every extractor in a run
// shares one Gate.
package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/simcrawl/racecrawl/internal/config"
)

// Gate is the run-scoped singleton injected into every extractor. Its
// mutex guards the shared "last request time" and the lazily-created
// browser handle.
type Gate struct {
	mu          sync.Mutex
	lastRequest time.Time

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	ceiling *rate.Limiter
	client  *http.Client
	cache   *runCache

	userAgent      string
	rateMin        time.Duration
	rateMax        time.Duration
	maxRetries     int
	backoffFactor  int
	requestTimeout time.Duration
	renderWait     time.Duration
}

// NewGate constructs a Gate from the process configuration. The browser is
// not started here — it is created lazily on the first FetchRendered call.
func NewGate(cfg *config.Config) *Gate {
	return &Gate{
		client:         &http.Client{Timeout: cfg.RequestTimeout},
		cache:          newRunCache(30 * time.Minute),
		ceiling:        rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), cfg.RequestsPerMin),
		userAgent:      cfg.UserAgent,
		rateMin:        cfg.RateLimitMin,
		rateMax:        cfg.RateLimitMax,
		maxRetries:     cfg.MaxRetries,
		backoffFactor:  cfg.BackoffFactor,
		requestTimeout: cfg.RequestTimeout,
		renderWait:     cfg.RenderWait,
	}
}

// rateLimit blocks until the configured minimum gap since the last
// gate-issued request has elapsed. The gap is drawn fresh from [min,max]
// on every call, and the shared "last request time" is advanced
// unconditionally — even when no sleep was needed. Layered underneath, the
// ceiling limiter enforces a hard requests-per-minute bound as defense in
// depth.
func (g *Gate) rateLimit(ctx context.Context) error {
	g.mu.Lock()
	gap := g.rateMin
	if g.rateMax > g.rateMin {
		gap += time.Duration(rand.Int63n(int64(g.rateMax - g.rateMin)))
	}
	now := time.Now()
	wait := g.lastRequest.Add(gap).Sub(now)
	if wait < 0 {
		wait = 0
	}
	g.lastRequest = now.Add(wait)
	g.mu.Unlock()

	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.ceiling.Wait(ctx)
}

// FetchStatic issues a single HTTP GET and returns a parsed DOM. Retries up
// to MaxRetries times with exponential backoff on transport error, timeout,
// or non-2xx response.
func (g *Gate) FetchStatic(ctx context.Context, url string) (*goquery.Document, error) {
	if html, ok := g.cache.get(url); ok {
		return goquery.NewDocumentFromReader(strings.NewReader(html))
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := g.backoffSleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := g.rateLimit(ctx); err != nil {
			return nil, err
		}

		html, err := g.doStatic(ctx, url)
		if err == nil {
			g.cache.set(url, html)
			return goquery.NewDocumentFromReader(strings.NewReader(html))
		}
		lastErr = err
	}
	return nil, &TransportError{URL: url, Attempt: g.maxRetries + 1, Err: lastErr}
}

func (g *Gate) doStatic(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Connection", "keep-alive")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	return goquery.OuterHtml(doc.Selection)
}

// FetchRendered opens a tab in the shared headless-browser instance,
// navigates (waiting for the page's load event; there is no separate
// network-idle wait), then waits up to a bounded (and non-fatal) timeout for
// a table element as a cheap "dynamic content is in" readiness probe,
// captures the final HTML, and closes the tab.
func (g *Gate) FetchRendered(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := g.backoffSleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := g.rateLimit(ctx); err != nil {
			return nil, err
		}

		html, err := g.doRendered(ctx, url)
		if err == nil {
			return goquery.NewDocumentFromReader(strings.NewReader(html))
		}
		lastErr = err
	}
	return nil, &TransportError{URL: url, Attempt: g.maxRetries + 1, Err: lastErr}
}

func (g *Gate) doRendered(ctx context.Context, url string) (string, error) {
	browserCtx, err := g.browser(ctx)
	if err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, g.requestTimeout)
	defer timeoutCancel()

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, waitCancel := context.WithTimeout(ctx, g.renderWait)
			defer waitCancel()
			var nodes []*cdp.Node
			_ = chromedp.Run(waitCtx, chromedp.Nodes("table", &nodes, chromedp.AtLeast(0)))
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// browser lazily creates the shared headless-browser instance on first use
// and reuses it for every subsequent rendered fetch until Close.
func (g *Gate) browser(ctx context.Context) (context.Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.browserCtx != nil {
		return g.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.UserAgent(g.userAgent),
		)...)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start headless browser: %w", err)
	}

	g.allocCancel = allocCancel
	g.browserCancel = browserCancel
	g.browserCtx = browserCtx
	return g.browserCtx, nil
}

// backoffSleep waits delay ≈ backoffFactor^attempt · backoffFactor seconds
// before a retry.
func (g *Gate) backoffSleep(ctx context.Context, attempt int) error {
	delay := time.Duration(1) * time.Second
	factor := g.backoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 0; i < attempt+1; i++ {
		delay *= time.Duration(factor)
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the browser. When interrupted is true, it must not block
// on graceful shutdown — handles are nulled out and the allocator is
// canceled without waiting for in-flight tabs to close.
func (g *Gate) Close(interrupted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.browserCtx == nil {
		return
	}

	if interrupted {
		if g.allocCancel != nil {
			g.allocCancel()
		}
		if g.browserCancel != nil {
			g.browserCancel()
		}
		g.browserCtx, g.browserCancel, g.allocCancel = nil, nil, nil
		return
	}

	_ = chromedp.Cancel(g.browserCtx)
	if g.browserCancel != nil {
		g.browserCancel()
	}
	if g.allocCancel != nil {
		g.allocCancel()
	}
	g.browserCtx, g.browserCancel, g.allocCancel = nil, nil, nil
}
