package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeDOM records calls and delegates to per-test hooks. Unset hooks
// succeed: elements visible, clicks land, typed text echoes back.
type fakeDOM struct {
	calls    []string
	inserted string

	waitVisible func(sel string) error
	click       func(sel string) error
	clickJS     func(sel string) (bool, error)
	attr        func(sel, attr string) (string, bool, error)
	evalBool    func(expr string) (bool, error)
	evalString  func(expr string) (string, error)
	insertText  func(text string) error
	sendKeys    func(sel, text string) error
	setFiles    func(sel string, files []string) error
}

func (f *fakeDOM) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDOM) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	f.record("wait:%s", sel)
	if f.waitVisible != nil {
		return f.waitVisible(sel)
	}
	return nil
}

func (f *fakeDOM) Click(_ context.Context, sel string) error {
	f.record("click:%s", sel)
	if f.click != nil {
		return f.click(sel)
	}
	return nil
}

func (f *fakeDOM) ClickJS(_ context.Context, sel string) (bool, error) {
	f.record("clickjs:%s", sel)
	if f.clickJS != nil {
		return f.clickJS(sel)
	}
	return true, nil
}

func (f *fakeDOM) ScrollIntoView(_ context.Context, sel string) error {
	f.record("scroll:%s", sel)
	return nil
}

func (f *fakeDOM) Focus(_ context.Context, sel string) error {
	f.record("focus:%s", sel)
	return nil
}

func (f *fakeDOM) InsertText(_ context.Context, text string) error {
	f.record("insert")
	if f.insertText != nil {
		return f.insertText(text)
	}
	f.inserted = text
	return nil
}

func (f *fakeDOM) SendKeys(_ context.Context, sel, text string) error {
	f.record("sendkeys:%s", sel)
	if f.sendKeys != nil {
		return f.sendKeys(sel, text)
	}
	f.inserted = text
	return nil
}

func (f *fakeDOM) SetFiles(_ context.Context, sel string, files []string) error {
	f.record("setfiles:%s", sel)
	if f.setFiles != nil {
		return f.setFiles(sel, files)
	}
	return nil
}

func (f *fakeDOM) AttrValue(_ context.Context, sel, attr string) (string, bool, error) {
	f.record("attr:%s", attr)
	if f.attr != nil {
		return f.attr(sel, attr)
	}
	return "", false, nil
}

func (f *fakeDOM) EvalBool(_ context.Context, expr string) (bool, error) {
	f.record("evalbool")
	if f.evalBool != nil {
		return f.evalBool(expr)
	}
	return true, nil
}

func (f *fakeDOM) EvalString(_ context.Context, expr string) (string, error) {
	f.record("evalstring")
	if f.evalString != nil {
		return f.evalString(expr)
	}
	return f.inserted, nil
}

func (f *fakeDOM) called(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(f *fakeDOM) *Dispatcher {
	d := newWithDOM(f, nil)
	d.paste = func(string) error { return errors.ErrUnsupported }
	return d
}

func TestDispatchPlainPrompt(t *testing.T) {
	f := &fakeDOM{}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:          "what is the weather",
		RawTranscript: "what is the weather",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.Research || res.Uploaded {
		t.Errorf("Result = %+v, want no research, no upload", res)
	}

	if f.called("attr:data-state") != 0 {
		t.Error("research toggle touched without keyword")
	}
	if f.called("setfiles:") != 0 {
		t.Error("upload ran without screenshot")
	}
	if f.inserted != "what is the weather" {
		t.Errorf("typed %q", f.inserted)
	}
	if f.called("click:"+submitXPath) != 1 {
		t.Error("submit not clicked exactly once")
	}
}

func TestDispatchTextboxMissing(t *testing.T) {
	f := &fakeDOM{
		waitVisible: func(sel string) error { return errors.New("timeout") },
	}
	d := newTestDispatcher(f)

	_, err := d.Dispatch(context.Background(), Request{Text: "x", RawTranscript: "x"})
	var notFound *ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Dispatch() error = %v, want ElementNotFoundError", err)
	}
	if notFound.Element != "prompt textbox" {
		t.Errorf("Element = %q", notFound.Element)
	}
}

func TestResearchToggleActivates(t *testing.T) {
	state := "unchecked"
	f := &fakeDOM{}
	f.attr = func(sel, attr string) (string, bool, error) {
		return state, true, nil
	}
	f.click = func(sel string) error {
		if sel == researchXPath {
			state = "checked"
		}
		return nil
	}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:          "deep research on ants",
		RawTranscript: "please do some RESEARCH on ants",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !res.Research {
		t.Error("Result.Research = false, want true")
	}
	if f.called("click:"+researchXPath) != 1 {
		t.Errorf("research toggle clicked %d times, want 1", f.called("click:"+researchXPath))
	}
}

func TestResearchToggleAlreadyOn(t *testing.T) {
	f := &fakeDOM{
		attr: func(sel, attr string) (string, bool, error) {
			return "checked", true, nil
		},
	}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:          "research this",
		RawTranscript: "research this",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !res.Research {
		t.Error("Result.Research = false, want true")
	}
	if f.called("click:"+researchXPath) != 0 {
		t.Error("active toggle must not be clicked again")
	}
}

func TestResearchKeywordUsesRawTranscript(t *testing.T) {
	f := &fakeDOM{}
	d := newTestDispatcher(f)

	// Cleanup reworded the prompt to contain the keyword, the spoken
	// words did not. The toggle must stay untouched.
	_, err := d.Dispatch(context.Background(), Request{
		Text:          "do background research on this",
		RawTranscript: "look into this for me",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if f.called("attr:data-state") != 0 {
		t.Error("research toggle consulted without keyword in raw transcript")
	}
}

func TestResearchFailureDoesNotBlockDispatch(t *testing.T) {
	f := &fakeDOM{
		attr: func(sel, attr string) (string, bool, error) {
			return "", false, nil // toggle nowhere to be found
		},
	}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:          "research llamas",
		RawTranscript: "research llamas",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v, research failure must degrade", err)
	}
	if res.Research {
		t.Error("Result.Research = true, want false after failed toggle")
	}
	if f.inserted == "" {
		t.Error("prompt not typed after degraded research phase")
	}
}

func TestUploadFlow(t *testing.T) {
	f := &fakeDOM{}
	var gotFiles []string
	f.setFiles = func(sel string, files []string) error {
		gotFiles = files
		return nil
	}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:           "what is on my screen",
		RawTranscript:  "what is on my screen",
		ScreenshotPath: "/tmp/shot.png",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !res.Uploaded {
		t.Error("Result.Uploaded = false")
	}
	if len(gotFiles) != 1 || gotFiles[0] != "/tmp/shot.png" {
		t.Errorf("SetFiles got %v", gotFiles)
	}

	// Inputs are cleared before the new file goes in.
	order := strings.Join(f.calls, ",")
	if !strings.Contains(order, "evalbool") ||
		strings.Index(order, "evalbool") > strings.Index(order, "setfiles:") {
		t.Error("file inputs not cleared before SetFiles")
	}
}

func TestUploadConfirmFallbackSelectors(t *testing.T) {
	f := &fakeDOM{}
	f.waitVisible = func(sel string) error {
		// Primary chip never shows, second selector does.
		if sel == uploadConfirmSelectors[0] {
			return errors.New("timeout")
		}
		return nil
	}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:           "x",
		RawTranscript:  "x",
		ScreenshotPath: "/tmp/shot.png",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !res.Uploaded {
		t.Error("Result.Uploaded = false, want fallback selector confirmation")
	}
}

func TestUploadFailureDegradesToTextOnly(t *testing.T) {
	f := &fakeDOM{
		setFiles: func(sel string, files []string) error {
			return errors.New("no file input")
		},
	}
	d := newTestDispatcher(f)

	res, err := d.Dispatch(context.Background(), Request{
		Text:           "question",
		RawTranscript:  "question",
		ScreenshotPath: "/tmp/shot.png",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v, upload failure must degrade", err)
	}
	if res.Uploaded {
		t.Error("Result.Uploaded = true after failed upload")
	}
	if f.inserted != "question" {
		t.Error("prompt not typed after degraded upload")
	}
}

func TestTypeFallsBackToSendKeys(t *testing.T) {
	f := &fakeDOM{
		insertText: func(text string) error { return errors.New("insert failed") },
	}
	d := newTestDispatcher(f)

	_, err := d.Dispatch(context.Background(), Request{Text: "hello", RawTranscript: "hello"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if f.called("sendkeys:") != 1 {
		t.Error("SendKeys fallback not used")
	}
	if f.inserted != "hello" {
		t.Errorf("typed %q", f.inserted)
	}
}

func TestTypeUsesClipboardPasteWhenAvailable(t *testing.T) {
	f := &fakeDOM{
		insertText: func(text string) error { return errors.New("insert failed") },
	}
	d := newWithDOM(f, nil)
	d.paste = func(text string) error {
		f.inserted = text
		return nil
	}

	_, err := d.Dispatch(context.Background(), Request{Text: "hello", RawTranscript: "hello"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if f.called("sendkeys:") != 0 {
		t.Error("SendKeys used although paste succeeded")
	}
}

func TestTypeFailureIsFatal(t *testing.T) {
	f := &fakeDOM{
		insertText: func(text string) error { return errors.New("insert failed") },
		sendKeys:   func(sel, text string) error { return errors.New("keys failed") },
	}
	d := newTestDispatcher(f)

	_, err := d.Dispatch(context.Background(), Request{Text: "x", RawTranscript: "x"})
	if err == nil {
		t.Fatal("Dispatch() = nil error, typing failure must be fatal")
	}
	if f.called("click:"+submitXPath) != 0 {
		t.Error("submit attempted after failed typing")
	}
}

func TestSubmitLadder(t *testing.T) {
	t.Run("js click after plain click fails", func(t *testing.T) {
		f := &fakeDOM{
			click: func(sel string) error {
				if sel == submitXPath {
					return errors.New("not clickable")
				}
				return nil
			},
		}
		d := newTestDispatcher(f)

		_, err := d.Dispatch(context.Background(), Request{Text: "x", RawTranscript: "x"})
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if f.called("clickjs:"+submitXPath) != 1 {
			t.Error("js click not attempted")
		}
	})

	t.Run("scroll retry after js click fails", func(t *testing.T) {
		clicks := 0
		f := &fakeDOM{}
		f.click = func(sel string) error {
			if sel != submitXPath {
				return nil
			}
			clicks++
			if clicks == 1 {
				return errors.New("not clickable")
			}
			return nil // works after scroll
		}
		f.clickJS = func(sel string) (bool, error) { return false, nil }
		d := newTestDispatcher(f)

		_, err := d.Dispatch(context.Background(), Request{Text: "x", RawTranscript: "x"})
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if f.called("scroll:"+submitXPath) != 1 {
			t.Error("scroll not attempted")
		}
		if clicks != 2 {
			t.Errorf("submit clicked %d times, want retry after scroll", clicks)
		}
	})

	t.Run("all rungs fail", func(t *testing.T) {
		f := &fakeDOM{
			click:   func(sel string) error { return errors.New("no") },
			clickJS: func(sel string) (bool, error) { return false, nil },
		}
		d := newTestDispatcher(f)

		_, err := d.Dispatch(context.Background(), Request{Text: "x", RawTranscript: "x"})
		var notFound *ElementNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("Dispatch() error = %v, want ElementNotFoundError", err)
		}
		if notFound.Element != "submit button" {
			t.Errorf("Element = %q", notFound.Element)
		}
	})
}

func TestExtractTLDR(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "tldr then full",
			text: "noise <<<TLDR>>> Short answer here. <<<FULL>>> Long answer...",
			want: "Short answer here.",
			ok:   true,
		},
		{
			name: "tldr then end",
			text: "<<<TLDR>>>Only a summary<<<END>>>",
			want: "Only a summary",
			ok:   true,
		},
		{
			name: "still streaming",
			text: "<<<TLDR>>> partial summary without terminator",
			ok:   false,
		},
		{
			name: "no markers",
			text: "a regular answer",
			ok:   false,
		},
		{
			name: "empty summary",
			text: "<<<TLDR>>>   <<<FULL>>> body",
			ok:   false,
		},
		{
			name: "last occurrence wins",
			text: "<<<TLDR>>> old <<<FULL>>> x <<<TLDR>>> new summary <<<FULL>>> y",
			want: "new summary",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractTLDR(tt.text)
			if ok != tt.ok {
				t.Fatalf("extractTLDR() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("extractTLDR() = %q, want %q", got, tt.want)
			}
		})
	}
}
