package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"restaurant-reservations/auth"
	"restaurant-reservations/booking"
)

type AvailabilityReader interface {
	GetAvailability(ctx context.Context, date string) (*booking.Availability, error)
}

type BookingReader interface {
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	ListBookings(ctx context.Context, filter booking.ListFilter) ([]booking.Booking, error)
}

type BookingWriter interface {
	CreateBooking(ctx context.Context, req booking.NewBooking) (string, error)
	UpdateStatus(ctx context.Context, id string, status string) (*booking.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

type Bookings interface {
	AvailabilityReader
	BookingReader
	BookingWriter
	Ping(ctx context.Context) error
}

type Authenticator interface {
	Login(username, password string) (string, time.Time, error)
	Verify(token string) (*auth.Claims, error)
}

type Options struct {
	AllowedOrigins []string
}

type API struct {
	router   *mux.Router
	bookings Bookings
	auth     Authenticator
	opts     Options
}

func NewAPI(bookings Bookings, authenticator Authenticator, opts Options) *API {
	r := mux.NewRouter()
	r = r.PathPrefix("/api").Subrouter()
	return &API{
		router:   r,
		bookings: bookings,
		auth:     authenticator,
		opts:     opts,
	}
}

// Router exposes the bare routes, without access logging or CORS.
func (a *API) Router() http.Handler {
	return a.router
}

func (a *API) Handler() http.Handler {
	origins := a.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	// Use Gorilla's built-in logging handler
	return handlers.LoggingHandler(os.Stdout, cors(a.router))
}

type Response struct {
	Status   int `json:"status"`
	Response any `json:"response"`
}

func (a *API) Response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(Response{
		Status:   status,
		Response: data,
	})
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (a *API) RegisterRoutes() {
	a.router.HandleFunc("/health", a.health).Methods(http.MethodGet)
	a.router.HandleFunc("/status", a.status).Methods(http.MethodGet)

	a.router.HandleFunc("/auth/login", a.login).Methods(http.MethodPost)

	a.router.HandleFunc("/availability", a.getAvailability).Methods(http.MethodGet)
	a.router.HandleFunc("/availability/{date}", a.getAvailability).Methods(http.MethodGet)

	a.router.HandleFunc("/bookings", a.createBooking).Methods(http.MethodPost)
	a.router.HandleFunc("/bookings", a.authenticated(a.getBookings)).Methods(http.MethodGet)
	a.router.HandleFunc("/bookings/{id}", a.authenticated(a.getBooking)).Methods(http.MethodGet)
	a.router.HandleFunc("/bookings/{id}", a.authenticated(a.updateBooking)).Methods(http.MethodPut)
	a.router.HandleFunc("/bookings/{id}", a.authenticated(a.deleteBooking)).Methods(http.MethodDelete)
}
