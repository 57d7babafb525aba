package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"restaurant-reservations/booking"
)

type bookingResponse struct {
	ID           string     `json:"id"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	CustomerName string     `json:"customerName"`
	PhoneNumber  string     `json:"phoneNumber"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

func newBookingResponse(b booking.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		Date:         b.Date.Format(booking.DateLayout),
		Time:         b.Time,
		CustomerName: b.CustomerName,
		PhoneNumber:  b.PhoneNumber,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		ExpiresAt:    b.ExpiresAt,
	}
}

type createBookingResponse struct {
	BookingID string `json:"bookingId"`
}

func (a *API) createBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.NewBooking
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := a.bookings.CreateBooking(r.Context(), req)
	if err != nil {
		a.Error(w, err)
		return
	}
	a.Response(w, http.StatusCreated, createBookingResponse{BookingID: id})
}

type getBookingsResponse struct {
	Bookings []bookingResponse `json:"bookings"`
}

func (a *API) getBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := booking.ListFilter{
		From:        q.Get("from"),
		To:          q.Get("to"),
		Status:      q.Get("status"),
		CurrentWeek: q.Get("week") == "current",
	}

	bookings, err := a.bookings.ListBookings(r.Context(), filter)
	if err != nil {
		a.Error(w, err)
		return
	}

	response := getBookingsResponse{
		Bookings: make([]bookingResponse, 0, len(bookings)),
	}
	for _, b := range bookings {
		response.Bookings = append(response.Bookings, newBookingResponse(b))
	}
	a.Response(w, http.StatusOK, response)
}

func (a *API) getBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		a.Response(w, http.StatusBadRequest, "booking ID is required")
		return
	}

	b, err := a.bookings.GetBooking(r.Context(), id)
	if err != nil {
		a.Error(w, err)
		return
	}
	a.Response(w, http.StatusOK, newBookingResponse(*b))
}

type updateBookingRequest struct {
	Status string `json:"status"`
}

func (a *API) updateBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		a.Response(w, http.StatusBadRequest, "booking ID is required")
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := a.bookings.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		a.Error(w, err)
		return
	}
	a.Response(w, http.StatusOK, newBookingResponse(*b))
}

func (a *API) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		a.Response(w, http.StatusBadRequest, "booking ID is required")
		return
	}

	if err := a.bookings.DeleteBooking(r.Context(), id); err != nil {
		a.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
