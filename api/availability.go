package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *API) getAvailability(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if date == "" {
		date = r.URL.Query().Get("date")
	}
	if date == "" {
		a.Response(w, http.StatusBadRequest, "date is required")
		return
	}

	availability, err := a.bookings.GetAvailability(r.Context(), date)
	if err != nil {
		a.Error(w, err)
		return
	}
	a.Response(w, http.StatusOK, availability)
}
