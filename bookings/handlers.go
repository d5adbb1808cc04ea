package bookings

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tirtha/middleware"
	"tirtha/models"
	"tirtha/utils"

	"github.com/julienschmidt/httprouter"
)

func CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := Create(ctx, req)
	if err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true, "booking": b})
}

func CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID := ps.ByName("id")
	if bookingID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := Cancel(ctx, bookingID, middleware.ActorID(r))
	if err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "booking": b})
}

// ExpireBookings is invoked by the external scheduler; the engine never
// self-schedules. Safe on overlapping runs.
func ExpireBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	asOf := time.Now()
	if v := r.URL.Query().Get("asOf"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid asOf, want RFC3339", http.StatusBadRequest)
			return
		}
		asOf = t
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	n, err := Expire(ctx, asOf)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "expired": n})
}

func GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := FindByID(ctx, ps.ByName("id"))
	if err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"booking": b})
}

func ListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if contact := r.URL.Query().Get("contact"); contact != "" {
		list, err := FindByContact(ctx, contact)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"bookings": list})
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "missing date or contact", http.StatusBadRequest)
		return
	}
	list, err := FindByDateAndStatus(ctx, date, r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"bookings": list})
}
