package overlay

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/wailsapp/wails/v3/pkg/application"
)

//go:embed all:frontend
var assets embed.FS

// Run hosts the region picker process. It opens a frameless translucent
// window on every display, waits for a drag or an escape, writes the
// result to outPath and exits. The webview must own the main thread, so
// the picker runs as its own process rather than inside the recorder.
func Run(outPath string) error {
	var (
		app  *application.App
		once sync.Once
	)

	mux := http.NewServeMux()
	mux.Handle("/", application.BundledAssetFileServer(assets))
	mux.HandleFunc("POST /select", func(w http.ResponseWriter, r *http.Request) {
		var sel struct {
			X         int  `json:"x"`
			Y         int  `json:"y"`
			W         int  `json:"w"`
			H         int  `json:"h"`
			Cancelled bool `json:"cancelled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

		// Windows on other displays may still report; first result wins.
		once.Do(func() {
			text := cancelledMarker
			if !sel.Cancelled {
				text = fmt.Sprintf("%d,%d,%d,%d", sel.X, sel.Y, sel.W, sel.H)
			}
			if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
				slog.Error("write selection", "error", err)
			}
			app.Quit()
		})
	})

	app = application.New(application.Options{
		Name:        "perq overlay",
		Description: "Screen region picker",
		Assets: application.AssetOptions{
			Handler: mux,
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
	})

	screens, err := app.GetScreens()
	if err != nil {
		return fmt.Errorf("enumerate displays: %w", err)
	}
	if len(screens) == 0 {
		return fmt.Errorf("no displays found")
	}

	for _, screen := range screens {
		b := screen.Bounds
		app.Window.NewWithOptions(application.WebviewWindowOptions{
			Title:          "Select region",
			X:              b.X,
			Y:              b.Y,
			Width:          b.Width,
			Height:         b.Height,
			Frameless:      true,
			AlwaysOnTop:    true,
			DisableResize:  true,
			BackgroundType: application.BackgroundTypeTransparent,
			// Page coordinates are display relative. The page adds the
			// display origin back before reporting.
			URL: fmt.Sprintf("/?ox=%d&oy=%d", b.X, b.Y),
			Mac: application.MacWindow{
				Backdrop:      application.MacBackdropTransparent,
				DisableShadow: true,
			},
		})
	}

	return app.Run()
}
