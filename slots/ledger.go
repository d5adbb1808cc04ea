package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tirtha/db"
	"tirtha/models"
	"tirtha/rdx"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// transient Mongo errors get this many attempts at the single atomic update
const maxAttempts = 3

// Reserve atomically claims qty seats on a slot. The capacity and lock checks
// live in the update filter itself, so two racing reserves that would jointly
// exceed capacity can never both match: Mongo serializes writes per document.
// Never implemented as read-then-write.
func Reserve(ctx context.Context, slotID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("reserve: quantity must be positive, got %d", qty)
	}

	filter := bson.M{
		"id":     slotID,
		"locked": false,
		"$expr": bson.M{
			"$lte": bson.A{
				bson.M{"$add": bson.A{"$reserved", qty}},
				"$capacity",
			},
		},
	}
	update := bson.M{"$inc": bson.M{"reserved": qty}}

	var res *mongo.UpdateResult
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		res, err = db.SlotsCollection.UpdateOne(ctx, filter, update)
		if err == nil {
			break
		}
		log.Printf("reserve %s: attempt %d: %v", slotID, attempt+1, err)
	}
	if err != nil {
		return err
	}

	if res.ModifiedCount == 1 {
		rdx.Invalidate("slotavail:" + slotID)
		return nil
	}

	// The filter did not match; fetch the slot once to say why.
	var s models.Slot
	findErr := db.SlotsCollection.FindOne(ctx, bson.M{"id": slotID}).Decode(&s)
	switch {
	case findErr == mongo.ErrNoDocuments:
		return models.Rejected(models.ReasonSlotMissing, "no such slot")
	case findErr != nil:
		return findErr
	case s.Locked:
		return models.Rejected(models.ReasonSlotLocked, "slot is locked by the operator")
	default:
		return models.Rejected(models.ReasonSlotFull, fmt.Sprintf("only %d of %d seats remain", s.Remaining(), s.Capacity))
	}
}

// Release returns qty seats to a slot, floored at zero. Callers own
// exactly-once discipline: the lifecycle manager releases once per booking
// termination, guarded by its own status CAS.
func Release(ctx context.Context, slotID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("release: quantity must be positive, got %d", qty)
	}

	// pipeline update so the floor applies inside the same atomic step
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{{Key: "reserved", Value: bson.D{
			{Key: "$max", Value: bson.A{0, bson.D{{Key: "$subtract", Value: bson.A{"$reserved", qty}}}}},
		}}}}},
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, err = db.SlotsCollection.UpdateOne(ctx, bson.M{"id": slotID}, update)
		if err == nil {
			rdx.Invalidate("slotavail:" + slotID)
			return nil
		}
		log.Printf("release %s: attempt %d: %v", slotID, attempt+1, err)
	}
	return err
}

// SetLocked flips the operator lock. A locked slot rejects new reserves
// regardless of remaining capacity; the reserved count is untouched.
func SetLocked(ctx context.Context, slotID string, locked bool) error {
	res, err := db.SlotsCollection.UpdateOne(ctx,
		bson.M{"id": slotID},
		bson.M{"$set": bson.M{"locked": locked}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.Rejected(models.ReasonSlotMissing, "no such slot")
	}
	rdx.Invalidate("slotavail:" + slotID)
	return nil
}

// Query reads slot state for display. Served through a short-TTL Redis cache;
// staleness here is bounded and harmless because Reserve never consults it.
func Query(ctx context.Context, slotID string) (*models.Slot, error) {
	key := "slotavail:" + slotID
	if cached, err := rdx.RdxGet(key); err == nil {
		var s models.Slot
		if json.Unmarshal([]byte(cached), &s) == nil {
			return &s, nil
		}
	}

	var s models.Slot
	err := db.SlotsCollection.FindOne(ctx, bson.M{"id": slotID}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, models.Rejected(models.ReasonSlotMissing, "no such slot")
	}
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(s); err == nil {
		_ = rdx.RdxSetTTL(key, string(data), 5*time.Second)
	}
	return &s, nil
}

// LockLowAvailability locks every unlocked slot on a date whose remaining
// capacity is at or below threshold. This is the crowd-control hook: invoked
// by the control room when a zone goes critical, never automatically.
func LockLowAvailability(ctx context.Context, date string, threshold int) (int64, error) {
	filter := bson.M{
		"date":   date,
		"locked": false,
		"$expr": bson.M{
			"$lte": bson.A{
				bson.M{"$subtract": bson.A{"$capacity", "$reserved"}},
				threshold,
			},
		},
	}
	res, err := db.SlotsCollection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"locked": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
