package httpx

import "net/http"

// healthHandler answers liveness and readiness probes. The body is a fixed
// JSON document; HEAD requests get the headers only.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	// A failed write means the probe already went away.
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
