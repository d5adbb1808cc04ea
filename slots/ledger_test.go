package slots

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"tirtha/db"
	"tirtha/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testSetup points the collections at a scratch database. Skips unless
// TIRTHA_TEST_MONGO_URI is set.
func testSetup(t *testing.T) context.Context {
	t.Helper()
	uri := os.Getenv("TIRTHA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TIRTHA_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	dbase := client.Database("tirtha_test")
	db.SlotsCollection = dbase.Collection("slots")
	db.BookingsCollection = dbase.Collection("bookings")
	if err := db.SlotsCollection.Drop(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := db.BookingsCollection.Drop(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	return ctx
}

func insertSlot(t *testing.T, ctx context.Context, id string, capacity int) {
	t.Helper()
	_, err := db.SlotsCollection.InsertOne(ctx, models.Slot{
		ID: id, Date: "2030-01-01", Start: "06:00", End: "07:00", Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("insert slot: %v", err)
	}
}

func reservedCount(t *testing.T, ctx context.Context, id string) int {
	t.Helper()
	var s models.Slot
	if err := db.SlotsCollection.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		t.Fatalf("find slot: %v", err)
	}
	return s.Reserved
}

func TestReserveRaceNeverOverbooks(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "race1", 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- Reserve(ctx, "race1", 1)
		}()
	}
	wg.Wait()
	close(results)

	successes, fulls := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		rej, ok := models.AsReject(err)
		if !ok {
			t.Fatalf("unexpected error: %v", err)
		}
		if rej.Reason != models.ReasonSlotFull {
			t.Fatalf("unexpected reason: %s", rej.Reason)
		}
		fulls++
	}

	if successes != 1 || fulls != 1 {
		t.Fatalf("got %d successes and %d slot-full, want exactly 1 and 1", successes, fulls)
	}
	if got := reservedCount(t, ctx, "race1"); got != 1 {
		t.Fatalf("reserved = %d, want 1", got)
	}
}

func TestReserveReleaseSymmetry(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "sym1", 20)

	for i := 0; i < 5; i++ {
		if err := Reserve(ctx, "sym1", 4); err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}
	if got := reservedCount(t, ctx, "sym1"); got != 20 {
		t.Fatalf("reserved = %d, want 20", got)
	}

	for i := 0; i < 5; i++ {
		if err := Release(ctx, "sym1", 4); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if got := reservedCount(t, ctx, "sym1"); got != 0 {
		t.Fatalf("reserved = %d, want 0", got)
	}

	// floor at zero
	if err := Release(ctx, "sym1", 3); err != nil {
		t.Fatalf("release past zero: %v", err)
	}
	if got := reservedCount(t, ctx, "sym1"); got != 0 {
		t.Fatalf("reserved = %d after over-release, want 0", got)
	}
}

func TestLockedSlotRejectsReserve(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "lk1", 10)

	if err := SetLocked(ctx, "lk1", true); err != nil {
		t.Fatalf("lock: %v", err)
	}
	err := Reserve(ctx, "lk1", 1)
	rej, ok := models.AsReject(err)
	if !ok || rej.Reason != models.ReasonSlotLocked {
		t.Fatalf("got %v, want slot-locked", err)
	}

	if err := SetLocked(ctx, "lk1", false); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := Reserve(ctx, "lk1", 1); err != nil {
		t.Fatalf("reserve after unlock: %v", err)
	}
}

func TestReserveUnknownSlot(t *testing.T) {
	ctx := testSetup(t)

	err := Reserve(ctx, "ghost", 1)
	rej, ok := models.AsReject(err)
	if !ok || rej.Reason != models.ReasonSlotMissing {
		t.Fatalf("got %v, want slot-missing", err)
	}
}

func TestLockLowAvailability(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "low1", 10)
	insertSlot(t, ctx, "low2", 10)

	if err := Reserve(ctx, "low1", 9); err != nil { // 1 remaining
		t.Fatalf("reserve: %v", err)
	}
	if err := Reserve(ctx, "low2", 2); err != nil { // 8 remaining
		t.Fatalf("reserve: %v", err)
	}

	n, err := LockLowAvailability(ctx, "2030-01-01", 2)
	if err != nil {
		t.Fatalf("lock sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("locked %d slots, want 1", n)
	}

	err = Reserve(ctx, "low1", 1)
	if rej, ok := models.AsReject(err); !ok || rej.Reason != models.ReasonSlotLocked {
		t.Fatalf("got %v, want slot-locked", err)
	}
	if err := Reserve(ctx, "low2", 1); err != nil {
		t.Fatalf("healthy slot locked by sweep: %v", err)
	}
}
