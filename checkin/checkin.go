// Package checkin is the gate controller: it confirms physical presence by
// flipping a booking from booked to checkedin. Capacity was committed at
// booking time, so check-in never touches the slot ledger.
package checkin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tirtha/bookings"
	"tirtha/db"
	"tirtha/models"
	"tirtha/mq"
	"tirtha/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CheckIn performs the booked -> checkedin transition as a single CAS on
// status. A duplicate scan finds no booked document and gets a specific
// rejection instead of mutating anything.
func CheckIn(ctx context.Context, bookingID string) (*models.Booking, error) {
	now := time.Now().Unix()
	res := db.BookingsCollection.FindOneAndUpdate(ctx,
		bson.M{"id": bookingID, "status": models.BookingBooked},
		bson.M{"$set": bson.M{"status": models.BookingCheckedIn, "checkedInAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Booking
	if err := res.Decode(&updated); err != nil {
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, rejection(ctx, bookingID)
	}

	mq.Emit(ctx, "booking", updated.ID, models.BookingBooked, models.BookingCheckedIn, "")
	return &updated, nil
}

// rejection distinguishes why the CAS missed, so the scanner UI can tell
// "already inside" from "cancelled" from "no such pass".
func rejection(ctx context.Context, bookingID string) error {
	var b models.Booking
	err := db.BookingsCollection.FindOne(ctx, bson.M{"id": bookingID}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return models.Rejected(models.ReasonNotFound, "no such booking")
	}
	if err != nil {
		return err
	}
	switch b.Status {
	case models.BookingCheckedIn:
		return models.Rejected(models.ReasonAlreadyCheckedIn, "booking already checked in")
	case models.BookingCancelled:
		return models.Rejected(models.ReasonCancelled, "booking was cancelled")
	case models.BookingExpired:
		return models.Rejected(models.ReasonExpired, "booking has expired")
	default:
		return models.Rejected(models.ReasonInvalidState, "booking is "+b.Status)
	}
}

// Scan accepts either a raw booking id or a signed pass payload.
func Scan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		BookingID string `json:"bookingId"`
		Payload   string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	bookingID := body.BookingID
	if bookingID == "" && body.Payload != "" {
		id, err := bookings.VerifyQRPayload(body.Payload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bookingID = id
	}
	if bookingID == "" {
		http.Error(w, "missing bookingId", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := CheckIn(ctx, bookingID)
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
