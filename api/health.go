package api

import (
	"net/http"
	"time"
)

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// status reports whether the booking store answers a ping.
func (a *API) status(w http.ResponseWriter, r *http.Request) {
	if err := a.bookings.Ping(r.Context()); err != nil {
		a.Response(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"message":   "failed to reach booking store",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	a.Response(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "booking store connection successful",
		"timestamp": time.Now().UTC(),
	})
}
