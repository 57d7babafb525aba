package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"restaurant-reservations/auth"
	"restaurant-reservations/booking"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("admin login: %v", err)
		}
		a.Error(w, booking.ErrUnauthorized)
		return
	}
	a.Response(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

// authenticated only lets requests with a valid admin bearer token reach next.
func (a *API) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			a.Error(w, booking.ErrUnauthorized)
			return
		}
		if _, err := a.auth.Verify(token); err != nil {
			a.Error(w, booking.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
