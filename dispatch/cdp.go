// Package dispatch drives the Perplexity tab in a running Chrome.
//
// Chrome is attached over the DevTools protocol, never launched. The
// user keeps their own session, extensions and logins; the tool only
// borrows an already open tab.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const tabURLFragment = "perplexity.ai"

// ErrNotChrome reports that the debug endpoint did not identify itself
// as a Chrome-family browser.
var ErrNotChrome = errors.New("debug endpoint is not Chrome")

// ErrNoTab reports that no Perplexity tab is open.
var ErrNoTab = errors.New("no perplexity tab found")

// TabCache remembers which tab a dispatch last used so repeat sessions
// stick to it when several Perplexity tabs are open.
type TabCache interface {
	LastTab() (string, bool)
	RememberTab(id string)
}

// Conn is an attached Chrome browser.
type Conn struct {
	browserCtx context.Context
	cancels    []context.CancelFunc
	cache      TabCache
	log        *slog.Logger
}

// Attach connects to the Chrome debug endpoint, typically
// http://127.0.0.1:9222. The endpoint is verified before attaching so
// the tool never types into an arbitrary DevTools server.
func Attach(ctx context.Context, debugURL string, cache TabCache, log *slog.Logger) (*Conn, error) {
	if log == nil {
		log = slog.Default()
	}

	wsURL, err := verifyEndpoint(ctx, debugURL)
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, wsURL, chromedp.NoModifyURL)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &Conn{
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{cancelBrowser, cancelAlloc},
		cache:      cache,
		log:        log,
	}, nil
}

// verifyEndpoint checks /json/version and returns the browser websocket URL.
func verifyEndpoint(ctx context.Context, debugURL string) (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}

	req, err := http.NewRequestWithContext(ctx, "GET",
		strings.TrimRight(debugURL, "/")+"/json/version", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chrome debug endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	var version struct {
		Browser              string `json:"Browser"`
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", fmt.Errorf("parse version response: %w", err)
	}

	if !strings.Contains(strings.ToLower(version.Browser), "chrome") {
		return "", fmt.Errorf("%w: reports %q", ErrNotChrome, version.Browser)
	}
	if !strings.HasPrefix(version.WebSocketDebuggerURL, "ws://") &&
		!strings.HasPrefix(version.WebSocketDebuggerURL, "wss://") {
		return "", fmt.Errorf("%w: bad websocket url %q", ErrNotChrome, version.WebSocketDebuggerURL)
	}
	return version.WebSocketDebuggerURL, nil
}

// Tab is an attached Perplexity tab.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	ID     string
}

// Close detaches from the tab without closing it in the browser.
func (t *Tab) Close() {
	t.cancel()
}

// Ctx returns the tab's protocol context for Dispatch and WatchResponse.
func (t *Tab) Ctx() context.Context {
	return t.ctx
}

// FindTab locates the Perplexity tab and attaches to it. With several
// candidates the most recently used one wins, falling back to the
// frontmost. The chosen tab is activated and remembered.
func (c *Conn) FindTab(ctx context.Context) (*Tab, error) {
	infos, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	var candidates []*target.Info
	for _, info := range infos {
		if info.Type == "page" && strings.Contains(info.URL, tabURLFragment) {
			candidates = append(candidates, info)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoTab
	}

	chosen := candidates[0]
	if c.cache != nil {
		if last, ok := c.cache.LastTab(); ok {
			for _, cand := range candidates {
				if string(cand.TargetID) == last {
					chosen = cand
					break
				}
			}
		}
	}
	if len(candidates) > 1 {
		c.log.Info("multiple perplexity tabs open, using one",
			"count", len(candidates), "title", chosen.Title)
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx, chromedp.WithTargetID(chosen.TargetID))
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.ActivateTarget(chosen.TargetID).Do(ctx)
	})); err != nil {
		cancelTab()
		return nil, fmt.Errorf("activate tab: %w", err)
	}

	if c.cache != nil {
		c.cache.RememberTab(string(chosen.TargetID))
	}
	focusBrowser(ctx, c.log)

	return &Tab{ctx: tabCtx, cancel: cancelTab, ID: string(chosen.TargetID)}, nil
}

// Close detaches from the browser. Chrome itself keeps running.
func (c *Conn) Close() {
	for _, cancel := range c.cancels {
		cancel()
	}
}
