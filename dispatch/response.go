package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Answer markers requested through the response format hint. The page
// renders them as plain text, which makes the summary extractable
// without knowing anything else about the answer markup.
const (
	markerTLDR = "<<<TLDR>>>"
	markerFull = "<<<FULL>>>"
	markerEnd  = "<<<END>>>"
)

const (
	responsePollInterval = 2 * time.Second
	responseTimeout      = 120 * time.Second
)

// answerTextJS returns the text of the newest answer block. Scoped to
// answer containers because the prompt itself carries the markers; the
// whole page would match before the model ever replied.
const answerTextJS = `(() => {
	const xpaths = [
		"//main//div[contains(@class,'prose')]",
		"//main//div[@role='article']",
		"//main//article",
	];
	let nodes = [];
	for (const xp of xpaths) {
		const found = document.evaluate(xp, document, null,
			XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (let i = 0; i < found.snapshotLength; i++) nodes.push(found.snapshotItem(i));
		if (nodes.length) break;
	}
	for (let i = nodes.length - 1; i >= 0; i--) {
		const t = (nodes[i].innerText || "").trim();
		if (t) return t;
	}
	return "";
})()`

// WatchResponse polls the page until an answer with a complete TLDR
// section appears and returns the summary. Returns ctx or timeout
// errors otherwise.
func (d *Dispatcher) WatchResponse(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, responseTimeout)
	defer cancel()

	ticker := time.NewTicker(responsePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for marked response: %w", ctx.Err())
		case <-ticker.C:
		}

		text, err := d.dom.EvalString(ctx, answerTextJS)
		if err != nil || text == "" {
			continue
		}
		if tldr, ok := extractTLDR(text); ok {
			return tldr, nil
		}
	}
}

// extractTLDR pulls the summary between the TLDR marker and the next
// marker. The answer must have finished streaming past the summary,
// which the FULL or END marker proves.
func extractTLDR(text string) (string, bool) {
	start := strings.LastIndex(text, markerTLDR)
	if start == -1 {
		return "", false
	}
	rest := text[start+len(markerTLDR):]

	end := strings.Index(rest, markerFull)
	if end == -1 {
		end = strings.Index(rest, markerEnd)
	}
	if end == -1 {
		return "", false
	}

	tldr := strings.TrimSpace(rest[:end])
	if tldr == "" {
		return "", false
	}
	return tldr, true
}
