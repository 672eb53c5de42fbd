//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>

typedef struct {
	int32_t id;
	int32_t layer;
	double  x, y, w, h;
	double  alpha;
	char    owner[128];
} windowInfo;

// listWindows fills out with on-screen windows in front-to-back order.
// Returns the number written, or -1 when the list is unavailable.
static int listWindows(windowInfo *out, int max) {
	CFArrayRef list = CGWindowListCopyWindowInfo(
		kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
		kCGNullWindowID);
	if (list == NULL) {
		return -1;
	}

	int n = 0;
	CFIndex count = CFArrayGetCount(list);
	for (CFIndex i = 0; i < count && n < max; i++) {
		CFDictionaryRef info = CFArrayGetValueAtIndex(list, i);
		windowInfo *w = &out[n];
		w->alpha = 1.0;
		w->owner[0] = '\0';

		CFNumberRef num = CFDictionaryGetValue(info, kCGWindowNumber);
		if (num == NULL || !CFNumberGetValue(num, kCFNumberSInt32Type, &w->id)) {
			continue;
		}
		num = CFDictionaryGetValue(info, kCGWindowLayer);
		if (num != NULL) {
			CFNumberGetValue(num, kCFNumberSInt32Type, &w->layer);
		}
		num = CFDictionaryGetValue(info, kCGWindowAlpha);
		if (num != NULL) {
			CFNumberGetValue(num, kCFNumberDoubleType, &w->alpha);
		}

		CFDictionaryRef boundsDict = CFDictionaryGetValue(info, kCGWindowBounds);
		CGRect bounds;
		if (boundsDict == NULL || !CGRectMakeWithDictionaryRepresentation(boundsDict, &bounds)) {
			continue;
		}
		w->x = bounds.origin.x;
		w->y = bounds.origin.y;
		w->w = bounds.size.width;
		w->h = bounds.size.height;

		CFStringRef owner = CFDictionaryGetValue(info, kCGWindowOwnerName);
		if (owner != NULL) {
			CFStringGetCString(owner, w->owner, sizeof(w->owner), kCFStringEncodingUTF8);
		}

		n++;
	}

	CFRelease(list);
	return n;
}
*/
import "C"

import (
	"errors"
	"fmt"

	"github.com/go-vgo/robotgo"

	"go.mgrd.me/perq/internal/types"
)

const maxWindows = 256

// onScreenWindows returns visible windows in front-to-back order.
func onScreenWindows() ([]Window, error) {
	buf := make([]C.windowInfo, maxWindows)
	n := int(C.listWindows(&buf[0], C.int(maxWindows)))
	if n < 0 {
		return nil, errors.New("window list unavailable")
	}

	windows := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		w := buf[i]
		windows = append(windows, Window{
			ID:    int(w.id),
			Owner: C.GoString(&w.owner[0]),
			Bounds: types.Region{
				X:      int(w.x),
				Y:      int(w.y),
				Width:  int(w.w),
				Height: int(w.h),
			},
			Layer: int(w.layer),
			Alpha: float64(w.alpha),
		})
	}
	return windows, nil
}

// windowUnderCursor returns the frontmost eligible window containing the
// cursor, or nil when nothing qualifies.
func windowUnderCursor() (*Window, error) {
	windows, err := onScreenWindows()
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	x, y := robotgo.Location()
	for i := range windows {
		w := windows[i]
		if !eligible(w) {
			continue
		}
		if x >= w.Bounds.X && x < w.Bounds.X+w.Bounds.Width &&
			y >= w.Bounds.Y && y < w.Bounds.Y+w.Bounds.Height {
			return &w, nil
		}
	}
	return nil, nil
}
