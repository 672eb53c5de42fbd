package app

import (
	"context"
	"log/slog"

	"go.mgrd.me/perq/dispatch"
)

// cdpDeliverer attaches to the user's Chrome for each dispatch. A fresh
// attach per session means no standing DevTools connection and nothing
// to break when Chrome restarts between sessions.
type cdpDeliverer struct {
	debugURL string
	cache    dispatch.TabCache
	log      *slog.Logger
}

func (d *cdpDeliverer) Deliver(ctx context.Context, req dispatch.Request, onSummary func(string)) (dispatch.Result, error) {
	conn, err := dispatch.Attach(ctx, d.debugURL, d.cache, d.log)
	if err != nil {
		return dispatch.Result{}, err
	}

	tab, err := conn.FindTab(ctx)
	if err != nil {
		conn.Close()
		return dispatch.Result{}, err
	}

	disp := dispatch.New(d.log)
	res, err := disp.Dispatch(tab.Ctx(), req)
	if err != nil || onSummary == nil {
		tab.Close()
		conn.Close()
		return res, err
	}

	// Stay attached while the answer streams; the watcher owns the
	// connection from here and the session slot frees immediately.
	go func() {
		defer conn.Close()
		defer tab.Close()
		summary, err := disp.WatchResponse(tab.Ctx())
		if err != nil {
			d.log.Debug("response watch ended without summary", "error", err)
			return
		}
		onSummary(summary)
	}()
	return res, nil
}
