package main

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/mohammed-shakir/farm-selector/internal/submitter"
)

const sessionCookie = "stub_session"

type locationResponse struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Area       float64   `json:"area"`
	ReceivedAt time.Time `json:"received_at"`
}

// answers location submissions the way the farm backend does, echoing the
// received centroid; fail makes every request a 500
func locationHandler(logger *slog.Logger, fail bool, now func() time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    now().UTC().Format("20060102T150405.000000000"),
				Path:     "/",
				HttpOnly: true,
			})
		}

		var req submitter.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !finite(req.Latitude) || !finite(req.Longitude) || !finite(req.Area) {
			http.Error(w, "latitude, longitude and area must be numbers", http.StatusBadRequest)
			return
		}

		logger.Info("location received",
			"latitude", req.Latitude,
			"longitude", req.Longitude,
			"area", req.Area,
			"fail", fail)

		if fail {
			http.Error(w, "stub configured to fail", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(locationResponse{
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			Area:       req.Area,
			ReceivedAt: now().UTC(),
		})
	})
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
