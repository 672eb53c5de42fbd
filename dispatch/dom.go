package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// dom is the slice of page access the dispatcher needs. Tests swap in a
// fake; production uses chromedp against the attached tab.
type dom interface {
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	Click(ctx context.Context, sel string) error
	ClickJS(ctx context.Context, sel string) (bool, error)
	ScrollIntoView(ctx context.Context, sel string) error
	Focus(ctx context.Context, sel string) error
	InsertText(ctx context.Context, text string) error
	SendKeys(ctx context.Context, sel, text string) error
	SetFiles(ctx context.Context, sel string, files []string) error
	AttrValue(ctx context.Context, sel, attr string) (string, bool, error)
	EvalBool(ctx context.Context, expr string) (bool, error)
	EvalString(ctx context.Context, expr string) (string, error)
}

// Every element op gets a bounded wait so a hung page cannot stall the
// session teardown.
const opTimeout = 5 * time.Second

// cdpDOM implements dom over the DevTools protocol. All selectors are
// XPath, matching how the page markup is addressed throughout.
type cdpDOM struct{}

func (cdpDOM) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitVisible(sel, chromedp.BySearch))
}

func (cdpDOM) Click(ctx context.Context, sel string) error {
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.Click(sel, chromedp.BySearch))
}

// ClickJS clicks through the DOM API, which works on elements a
// synthetic mouse event misses, e.g. ones behind an overlay.
func (cdpDOM) ClickJS(ctx context.Context, sel string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
		const el = document.evaluate(%q, document, null,
			XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) return false;
		el.click();
		return true;
	})()`, sel)

	var clicked bool
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

func (cdpDOM) ScrollIntoView(ctx context.Context, sel string) error {
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.ScrollIntoView(sel, chromedp.BySearch))
}

func (cdpDOM) Focus(ctx context.Context, sel string) error {
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.Focus(sel, chromedp.BySearch))
}

// InsertText places text into the focused element in one protocol call,
// the same path a paste takes. Orders of magnitude faster than key
// events for long transcripts.
func (cdpDOM) InsertText(ctx context.Context, text string) error {
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
}

func (cdpDOM) SendKeys(ctx context.Context, sel, text string) error {
	tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return chromedp.Run(tctx, chromedp.SendKeys(sel, text, chromedp.BySearch))
}

func (cdpDOM) SetFiles(ctx context.Context, sel string, files []string) error {
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.SetUploadFiles(sel, files, chromedp.BySearch))
}

func (cdpDOM) AttrValue(ctx context.Context, sel, attr string) (string, bool, error) {
	var value string
	var ok bool
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	err := chromedp.Run(tctx, chromedp.AttributeValue(sel, attr, &value, &ok, chromedp.BySearch))
	return value, ok, err
}

func (cdpDOM) EvalBool(ctx context.Context, expr string) (bool, error) {
	var out bool
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	err := chromedp.Run(tctx, chromedp.Evaluate(expr, &out))
	return out, err
}

func (cdpDOM) EvalString(ctx context.Context, expr string) (string, error) {
	var out string
	tctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	err := chromedp.Run(tctx, chromedp.Evaluate(expr, &out))
	return out, err
}
