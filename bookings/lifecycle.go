package bookings

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tirtha/db"
	"tirtha/models"
	"tirtha/mq"
	"tirtha/slots"
	"tirtha/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// genID produces the human-presentable booking token. The unique index on
// bookings.id is the actual uniqueness guarantee; collisions re-insert.
func genID() string {
	return "DRS-" + utils.GenerateRandomDigitString(10)
}

type CreateRequest struct {
	HolderName string `json:"holderName"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Date       string `json:"date"`
	SlotID     string `json:"slotId"`
	Members    int    `json:"members"`
	Category   string `json:"category"`
}

func validCategory(c string) bool {
	switch c {
	case models.CategoryGeneral, models.CategoryElderly, models.CategoryDisabled, models.CategoryWomenChild:
		return true
	}
	return false
}

// Create reserves capacity and persists the booking. The ledger reserve is
// the capacity decision; the slot read before it only validates existence and
// supplies the date. A persist failure after a successful reserve triggers a
// compensating release so seats are never stranded.
func Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	req.HolderName = strings.TrimSpace(req.HolderName)
	if req.HolderName == "" || req.SlotID == "" {
		return nil, fmt.Errorf("holderName and slotId are required")
	}
	if req.Members < 1 {
		return nil, fmt.Errorf("members must be at least 1")
	}
	if req.Category == "" {
		req.Category = models.CategoryGeneral
	}
	if !validCategory(req.Category) {
		return nil, fmt.Errorf("unknown priority category %q", req.Category)
	}

	var slot models.Slot
	if err := db.SlotsCollection.FindOne(ctx, bson.M{"id": req.SlotID}).Decode(&slot); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.Rejected(models.ReasonSlotMissing, "no such slot")
		}
		return nil, err
	}

	if err := slots.Reserve(ctx, req.SlotID, req.Members); err != nil {
		return nil, err
	}

	b := models.Booking{
		SlotID:     req.SlotID,
		Date:       slot.Date,
		HolderName: req.HolderName,
		Phone:      strings.TrimSpace(req.Phone),
		Email:      strings.TrimSpace(req.Email),
		Members:    req.Members,
		Category:   req.Category,
		Gate:       AssignGate(req.Category, req.SlotID),
		Status:     models.BookingBooked,
		CreatedAt:  time.Now().Unix(),
	}

	var insertErr error
	for attempt := 0; attempt < 3; attempt++ {
		b.ID = genID()
		_, insertErr = db.BookingsCollection.InsertOne(ctx, b)
		if insertErr == nil {
			break
		}
		if !mongo.IsDuplicateKeyError(insertErr) {
			break
		}
	}
	if insertErr != nil {
		// Compensate the reserve so the ledger and the booking store stay
		// consistent as a unit. A failed compensation strands seats and must
		// reach an operator, not a log nobody reads.
		if relErr := slots.Release(ctx, req.SlotID, req.Members); relErr != nil {
			log.Printf("FATAL: booking persist failed and compensating release failed for slot %s qty %d: persist=%v release=%v",
				req.SlotID, req.Members, insertErr, relErr)
		}
		return nil, insertErr
	}

	mq.Emit(ctx, "booking", b.ID, "", models.BookingBooked, "")
	return &b, nil
}

// Cancel flips Booked -> Cancelled with a single CAS and then releases the
// booking's members exactly once. Any other starting state is rejected.
func Cancel(ctx context.Context, bookingID, requestedBy string) (*models.Booking, error) {
	res := db.BookingsCollection.FindOneAndUpdate(ctx,
		bson.M{"id": bookingID, "status": models.BookingBooked},
		bson.M{"$set": bson.M{"status": models.BookingCancelled}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Booking
	if err := res.Decode(&updated); err != nil {
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, cancelRejection(ctx, bookingID)
	}

	if err := slots.Release(ctx, updated.SlotID, updated.Members); err != nil {
		log.Printf("FATAL: booking %s cancelled but release of %d seats on slot %s failed: %v",
			updated.ID, updated.Members, updated.SlotID, err)
		return nil, err
	}

	mq.Emit(ctx, "booking", updated.ID, models.BookingBooked, models.BookingCancelled, requestedBy)
	return &updated, nil
}

func cancelRejection(ctx context.Context, bookingID string) error {
	var b models.Booking
	err := db.BookingsCollection.FindOne(ctx, bson.M{"id": bookingID}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return models.Rejected(models.ReasonNotFound, "no such booking")
	}
	if err != nil {
		return err
	}
	return models.Rejected(models.ReasonInvalidState, "booking is "+b.Status+", only booked bookings can be cancelled")
}

// Expire transitions every Booked booking whose slot has fully elapsed as of
// asOf into Expired, releasing seats per booking. Each flip is its own CAS,
// so overlapping scheduler runs cannot double-release.
func Expire(ctx context.Context, asOf time.Time) (int, error) {
	cur, err := db.SlotsCollection.Find(ctx, bson.M{"date": bson.M{"$lte": asOf.Format("2006-01-02")}})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var elapsed []string
	for cur.Next(ctx) {
		var s models.Slot
		if cur.Decode(&s) != nil {
			continue
		}
		if slotElapsed(s, asOf) {
			elapsed = append(elapsed, s.ID)
		}
	}
	if len(elapsed) == 0 {
		return 0, nil
	}

	bcur, err := db.BookingsCollection.Find(ctx, bson.M{
		"slotId": bson.M{"$in": elapsed},
		"status": models.BookingBooked,
	})
	if err != nil {
		return 0, err
	}
	defer bcur.Close(ctx)

	expired := 0
	for bcur.Next(ctx) {
		var b models.Booking
		if bcur.Decode(&b) != nil {
			continue
		}
		res, err := db.BookingsCollection.UpdateOne(ctx,
			bson.M{"id": b.ID, "status": models.BookingBooked},
			bson.M{"$set": bson.M{"status": models.BookingExpired}},
		)
		if err != nil {
			log.Printf("expire booking %s: %v", b.ID, err)
			continue
		}
		if res.ModifiedCount == 0 {
			continue // lost the race to a check-in, cancel, or another expiry run
		}
		if err := slots.Release(ctx, b.SlotID, b.Members); err != nil {
			log.Printf("FATAL: booking %s expired but release of %d seats on slot %s failed: %v",
				b.ID, b.Members, b.SlotID, err)
			continue
		}
		mq.Emit(ctx, "booking", b.ID, models.BookingBooked, models.BookingExpired, "scheduler")
		expired++
	}
	return expired, nil
}

// slotElapsed reports whether the slot's window has fully passed. A slot on
// an earlier date is elapsed outright; on the same date its end time decides.
func slotElapsed(s models.Slot, asOf time.Time) bool {
	end, err := time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.End, asOf.Location())
	if err != nil {
		// unparseable end time: fall back to date-only comparison
		return s.Date < asOf.Format("2006-01-02")
	}
	return end.Before(asOf)
}

// ---------- Read paths ----------

func FindByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var b models.Booking
	err := db.BookingsCollection.FindOne(ctx, bson.M{"id": bookingID}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, models.Rejected(models.ReasonNotFound, "no such booking")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func FindByContact(ctx context.Context, contact string) ([]models.Booking, error) {
	cur, err := db.BookingsCollection.Find(ctx, bson.M{
		"$or": bson.A{bson.M{"phone": contact}, bson.M{"email": contact}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

func FindByDateAndStatus(ctx context.Context, date, status string) ([]models.Booking, error) {
	filter := bson.M{"date": date}
	if status != "" {
		filter["status"] = status
	}
	cur, err := db.BookingsCollection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.Booking, error) {
	var out []models.Booking
	for cur.Next(ctx) {
		var b models.Booking
		if cur.Decode(&b) == nil {
			out = append(out, b)
		}
	}
	return out, cur.Err()
}
