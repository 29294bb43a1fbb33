package feed

import (
	"fmt"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/phoenix.tracksim/internal/httputil"
)

// AttachAdminRoutes adds the feed counters and a live record tail to the
// debug index.
func (f *Feed) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.KVFunc("Feed", func() any {
		st := f.Stats()
		return fmt.Sprintf("%d sinks, %d frames, %d records, %d errors", st.Sinks, st.Frames, st.Records, st.Errors)
	})
	debug.HandleSilentFunc("feed-stats", f.serveStats)
	debug.HandleFunc("feed-tail", "live tail of published records (hex)", f.serveTail)
}

func (f *Feed) serveStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, f.Stats())
}

// serveTail streams records as server-sent events until the client goes
// away or the feed is closed.
func (f *Feed) serveTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, c := f.Subscribe()
	defer f.Unsubscribe(id)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case line, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
