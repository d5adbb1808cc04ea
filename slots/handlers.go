package slots

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tirtha/db"
	"tirtha/models"
	"tirtha/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

func genID() string {
	return utils.GenerateRandomDigitString(22)
}

// CreateSlot is the capacity-planning entry point.
func CreateSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var s models.Slot
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if s.Date == "" || s.Start == "" || s.End == "" || s.Capacity <= 0 {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	s.ID = genID()
	s.Reserved = 0
	s.Locked = false
	s.CreatedAt = time.Now().Unix()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := db.SlotsCollection.InsertOne(ctx, s); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"slot": s})
}

func ListSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	if date := r.URL.Query().Get("date"); date != "" {
		filter["date"] = date
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	cur, err := db.SlotsCollection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer cur.Close(ctx)

	var slots []models.Slot
	for cur.Next(ctx) {
		var s models.Slot
		if cur.Decode(&s) == nil {
			slots = append(slots, s)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"slots": slots})
}

// GetSlot serves the display read path (cache-backed, bounded staleness).
func GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := Query(ctx, ps.ByName("id"))
	if err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"capacity": s.Capacity,
		"reserved": s.Reserved,
		"locked":   s.Locked,
	})
}

func LockSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	setLockHandler(w, r, ps.ByName("id"), true)
}

func UnlockSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	setLockHandler(w, r, ps.ByName("id"), false)
}

func setLockHandler(w http.ResponseWriter, r *http.Request, slotID string, locked bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := SetLocked(ctx, slotID, locked); err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "locked": locked})
}

// LockLowAvailabilityHandler: POST /api/slots-lock-low?date=...&remaining=N
func LockLowAvailabilityHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "missing date", http.StatusBadRequest)
		return
	}
	threshold, err := strconv.Atoi(r.URL.Query().Get("remaining"))
	if err != nil || threshold < 0 {
		http.Error(w, "invalid remaining threshold", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := LockLowAvailability(ctx, date, threshold)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "locked": n})
}
