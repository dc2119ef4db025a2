package httpapi

import "net/http"

// NewMux registers the subscription route under a single-segment wildcard and
// lets the handler compare the segment against the configured token. The
// registered pattern (visible in logs and metrics) therefore never contains
// the token itself.
func NewMux(opt Options) *http.ServeMux {
	h := subHandler{opt: opt}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /metrics", handleMetrics)
	mux.HandleFunc("GET /{token}", h.handleSub)
	return mux
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	// Deliberately says nothing about the subscription path.
	WriteText(w, http.StatusOK, "txt2sub\n")
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteText(w, http.StatusOK, "ok\n")
}
