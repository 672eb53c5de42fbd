package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Page selectors, all XPath. The page ships no stable ids, so these
// lean on ARIA attributes, which have survived redesigns the best.
const (
	textboxXPath          = `//div[@contenteditable='true' and @role='textbox']`
	researchXPath         = `//button[@aria-label='Research' and @role='radio']`
	researchFallbackXPath = `//button[contains(@aria-label, 'Research')]`
	fileInputXPath        = `//input[@type='file']`
	submitXPath           = `//button[@aria-label='Submit']`
)

// uploadConfirmSelectors mark a finished upload, in preference order.
var uploadConfirmSelectors = []string{
	`//button[@data-testid='remove-uploaded-file']`,
	`//button[contains(@aria-label, 'Remove')]`,
	`//img[contains(@src, 'blob:')]`,
}

const (
	waitPageReady  = 10 * time.Second
	waitUploadChip = 6 * time.Second
	waitUploadAlt  = 2 * time.Second

	researchKeyword = "research"
)

const clearFileInputsJS = `(() => {
	const inputs = document.querySelectorAll("input[type='file']");
	for (const i of inputs) i.value = "";
	return true;
})()`

// ElementNotFoundError reports a page element the dispatcher could not
// locate. Usually means the page markup changed.
type ElementNotFoundError struct {
	Element  string
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("%s not found on page (selector %s)", e.Element, e.Selector)
}

// Request is one prompt to deliver.
type Request struct {
	// Text is typed into the prompt box verbatim.
	Text string
	// RawTranscript drives keyword detection. Detection runs on the
	// untouched transcript so cleanup rewording cannot flip the mode.
	RawTranscript string
	// ScreenshotPath attaches an image when non-empty.
	ScreenshotPath string
}

// Result reports what a dispatch actually did.
type Result struct {
	Research bool
	Uploaded bool
}

// Dispatcher drives the prompt flow on an attached tab.
type Dispatcher struct {
	dom   dom
	paste func(string) error
	log   *slog.Logger
}

// New creates a Dispatcher for an attached tab. Pass the tab context to
// Dispatch.
func New(log *slog.Logger) *Dispatcher {
	return newWithDOM(cdpDOM{}, log)
}

func newWithDOM(d dom, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{dom: d, paste: pasteClipboard, log: log}
}

// Dispatch runs the phases in order: research toggle, upload, type,
// submit. Research and upload degrade to a plain text prompt; a prompt
// that cannot be typed or submitted fails the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	var res Result

	if err := d.dom.WaitVisible(ctx, textboxXPath, waitPageReady); err != nil {
		return res, &ElementNotFoundError{Element: "prompt textbox", Selector: textboxXPath}
	}

	phases := []struct {
		name string
		run  func(context.Context, Request, *Result) error
		soft bool
	}{
		{"research", d.phaseResearch, true},
		{"upload", d.phaseUpload, true},
		{"type", d.phaseType, false},
		{"submit", d.phaseSubmit, false},
	}

	for _, p := range phases {
		d.log.Debug("dispatch phase", "phase", p.name)
		if err := p.run(ctx, req, &res); err != nil {
			if !p.soft {
				return res, fmt.Errorf("%s: %w", p.name, err)
			}
			d.log.Warn("dispatch phase degraded", "phase", p.name, "error", err)
		}
	}
	return res, nil
}

// phaseResearch switches the query mode when the transcript asks for
// it. The toggle is one-shot: an already active mode is left alone and
// never switched back.
func (d *Dispatcher) phaseResearch(ctx context.Context, req Request, res *Result) error {
	if !strings.Contains(strings.ToLower(req.RawTranscript), researchKeyword) {
		return nil
	}

	sel := researchXPath
	state, ok, err := d.dom.AttrValue(ctx, sel, "data-state")
	if err != nil || !ok {
		sel = researchFallbackXPath
		state, ok, err = d.dom.AttrValue(ctx, sel, "data-state")
	}
	if err != nil {
		return fmt.Errorf("read research toggle: %w", err)
	}
	if !ok {
		return &ElementNotFoundError{Element: "research toggle", Selector: researchXPath}
	}

	if state == "checked" {
		res.Research = true
		return nil
	}

	if err := d.dom.Click(ctx, sel); err != nil {
		if clicked, jsErr := d.dom.ClickJS(ctx, sel); jsErr != nil || !clicked {
			return fmt.Errorf("click research toggle: %w", err)
		}
	}

	state, ok, err = d.dom.AttrValue(ctx, sel, "data-state")
	if err != nil || !ok || state != "checked" {
		return fmt.Errorf("research toggle did not latch (state %q)", state)
	}
	res.Research = true
	return nil
}

// phaseUpload attaches the screenshot and waits until the page shows it.
func (d *Dispatcher) phaseUpload(ctx context.Context, req Request, res *Result) error {
	if req.ScreenshotPath == "" {
		return nil
	}

	// Stale selections from an interrupted session would upload the
	// wrong image.
	if _, err := d.dom.EvalBool(ctx, clearFileInputsJS); err != nil {
		d.log.Debug("clear file inputs", "error", err)
	}

	if err := d.dom.SetFiles(ctx, fileInputXPath, []string{req.ScreenshotPath}); err != nil {
		return fmt.Errorf("set upload file: %w", err)
	}

	if err := d.pollFileInput(ctx); err != nil {
		return err
	}

	for i, sel := range uploadConfirmSelectors {
		timeout := waitUploadChip
		if i > 0 {
			timeout = waitUploadAlt
		}
		if err := d.dom.WaitVisible(ctx, sel, timeout); err == nil {
			res.Uploaded = true
			return nil
		}
	}
	return fmt.Errorf("upload not confirmed by page")
}

// pollFileInput waits until the file input reports a selection.
func (d *Dispatcher) pollFileInput(ctx context.Context) error {
	expr := `(() => {
		const i = document.querySelector("input[type='file']");
		return !!i && i.files.length > 0;
	})()`

	deadline := time.Now().Add(2 * time.Second)
	for {
		if ok, err := d.dom.EvalBool(ctx, expr); err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("file input stayed empty")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// phaseType writes the prompt into the textbox and verifies it landed.
func (d *Dispatcher) phaseType(ctx context.Context, req Request, res *Result) error {
	if err := d.dom.Focus(ctx, textboxXPath); err != nil {
		return &ElementNotFoundError{Element: "prompt textbox", Selector: textboxXPath}
	}

	if err := d.dom.InsertText(ctx, req.Text); err == nil && d.typed(ctx, req.Text) {
		return nil
	}

	// The protocol insert occasionally loses a race with the page's
	// editor framework. Paste through the OS as the second attempt.
	if err := d.paste(req.Text); err == nil && d.typed(ctx, req.Text) {
		d.log.Debug("typed via clipboard paste")
		return nil
	}

	if err := d.dom.SendKeys(ctx, textboxXPath, req.Text); err != nil {
		return fmt.Errorf("type prompt: %w", err)
	}
	if !d.typed(ctx, req.Text) {
		return fmt.Errorf("prompt text did not appear in textbox")
	}
	return nil
}

// typed checks that the textbox now holds the prompt.
func (d *Dispatcher) typed(ctx context.Context, text string) bool {
	expr := fmt.Sprintf(`(() => {
		const el = document.evaluate(%q, document, null,
			XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		return el ? (el.innerText || el.textContent || "") : "";
	})()`, textboxXPath)

	got, err := d.dom.EvalString(ctx, expr)
	if err != nil {
		return false
	}
	return strings.Contains(collapse(got), collapse(head(text, 40)))
}

// phaseSubmit clicks the submit button, escalating through a JS click
// and a scroll-then-click when the plain click does not take.
func (d *Dispatcher) phaseSubmit(ctx context.Context, req Request, res *Result) error {
	if err := d.dom.Click(ctx, submitXPath); err == nil {
		return nil
	}

	if clicked, err := d.dom.ClickJS(ctx, submitXPath); err == nil && clicked {
		d.log.Debug("submitted via js click")
		return nil
	}

	if err := d.dom.ScrollIntoView(ctx, submitXPath); err == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
		if err := d.dom.Click(ctx, submitXPath); err == nil {
			d.log.Debug("submitted after scroll")
			return nil
		}
	}

	return &ElementNotFoundError{Element: "submit button", Selector: submitXPath}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func head(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
