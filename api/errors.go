package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"restaurant-reservations/booking"
	"restaurant-reservations/database"
)

// Error writes err with the status its class maps to. Unclassified errors are logged and hidden.
func (a *API) Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		a.Response(w, http.StatusBadRequest, inputMessage(err))
	case errors.Is(err, booking.ErrUnauthorized):
		a.Response(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, booking.ErrNotFound):
		a.Response(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrSlotConflict):
		a.Response(w, http.StatusConflict, "This time slot is already booked")
	case errors.Is(err, database.ErrNotConfigured):
		log.Printf("store not configured: %v", err)
		a.Response(w, http.StatusInternalServerError, "store is not configured")
	case errors.Is(err, booking.ErrStoreUnavailable), errors.Is(err, database.ErrConnection):
		log.Printf("store unavailable: %v", err)
		a.Response(w, http.StatusServiceUnavailable, "store unavailable, please try again")
	default:
		log.Printf("internal error: %v", err)
		a.Response(w, http.StatusInternalServerError, "internal server error")
	}
}

// inputMessage strips wrapping context so the caller sees only what to correct.
func inputMessage(err error) string {
	if _, msg, ok := strings.Cut(err.Error(), booking.ErrInvalidInput.Error()+": "); ok {
		return msg
	}
	return err.Error()
}
