package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeCompleter returns canned responses for Cleaner tests.
type fakeCompleter struct {
	response string
	err      error
	slow     time.Duration

	gotMessages []Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	f.gotMessages = messages
	if f.slow > 0 {
		select {
		case <-time.After(f.slow):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.response, f.err
}

func newTestCleaner(f *fakeCompleter) *Cleaner {
	return NewCleaner(f, 100*time.Millisecond, nil)
}

func TestCleanHappyPath(t *testing.T) {
	f := &fakeCompleter{response: "Hello, world. How are you?"}
	c := newTestCleaner(f)

	got := c.Clean(context.Background(), "hello world how are you")
	if got != "Hello, world. How are you?" {
		t.Errorf("Clean() = %q", got)
	}

	if len(f.gotMessages) != 2 || f.gotMessages[0].Role != "system" {
		t.Fatalf("expected system+user messages, got %+v", f.gotMessages)
	}
	if f.gotMessages[1].Content != "hello world how are you" {
		t.Errorf("user message = %q", f.gotMessages[1].Content)
	}
}

func TestCleanFallsBackOnError(t *testing.T) {
	c := newTestCleaner(&fakeCompleter{err: errors.New("api down")})

	raw := "keep me as is"
	if got := c.Clean(context.Background(), raw); got != raw {
		t.Errorf("Clean() = %q, want raw transcript on error", got)
	}
}

func TestCleanFallsBackOnTimeout(t *testing.T) {
	c := newTestCleaner(&fakeCompleter{response: "late", slow: time.Second})

	raw := "slow model"
	start := time.Now()
	if got := c.Clean(context.Background(), raw); got != raw {
		t.Errorf("Clean() = %q, want raw transcript on timeout", got)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Clean() did not honor its timeout")
	}
}

func TestCleanFallsBackOnEmptyResponse(t *testing.T) {
	c := newTestCleaner(&fakeCompleter{response: "   "})

	raw := "something"
	if got := c.Clean(context.Background(), raw); got != raw {
		t.Errorf("Clean() = %q, want raw transcript on empty response", got)
	}
}

func TestCleanRejectsAnswerShapedOutput(t *testing.T) {
	// A response much longer than the input means the model answered
	// the question instead of cleaning it.
	answer := strings.Repeat("The capital of France is Paris. ", 20)
	c := newTestCleaner(&fakeCompleter{response: answer})

	raw := "whats the capital of france"
	if got := c.Clean(context.Background(), raw); got != raw {
		t.Errorf("Clean() = %q, want raw transcript for oversized output", got)
	}
}

func TestCleanSkipsBlankTranscript(t *testing.T) {
	f := &fakeCompleter{response: "should not be called"}
	c := newTestCleaner(f)

	if got := c.Clean(context.Background(), "  "); got != "  " {
		t.Errorf("Clean() = %q, want input unchanged", got)
	}
	if f.gotMessages != nil {
		t.Error("completer should not be called for blank input")
	}
}

func TestCleanNilCompleter(t *testing.T) {
	c := NewCleaner(nil, time.Second, nil)
	if got := c.Clean(context.Background(), "raw"); got != "raw" {
		t.Errorf("Clean() = %q, want raw with nil completer", got)
	}
}
