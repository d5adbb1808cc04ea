package bookings

import (
	"context"
	"os"
	"testing"
	"time"

	"tirtha/db"
	"tirtha/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

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
	for _, c := range []*mongo.Collection{db.SlotsCollection, db.BookingsCollection} {
		if err := c.Drop(ctx); err != nil {
			t.Fatalf("drop: %v", err)
		}
	}
	return ctx
}

func insertSlot(t *testing.T, ctx context.Context, id, date, end string, capacity int) {
	t.Helper()
	_, err := db.SlotsCollection.InsertOne(ctx, models.Slot{
		ID: id, Date: date, Start: "06:00", End: end, Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("insert slot: %v", err)
	}
}

func slotReserved(t *testing.T, ctx context.Context, id string) int {
	t.Helper()
	var s models.Slot
	if err := db.SlotsCollection.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		t.Fatalf("find slot: %v", err)
	}
	return s.Reserved
}

// the end-to-end capacity scenario: book to the brim, reject the overflow,
// cancel, then the overflow fits
func TestBookCancelRebook(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "e2e", "2030-01-01", "07:00", 2)

	a, err := Create(ctx, CreateRequest{HolderName: "Asha", SlotID: "e2e", Members: 2})
	if err != nil {
		t.Fatalf("booking A: %v", err)
	}
	if got := slotReserved(t, ctx, "e2e"); got != 2 {
		t.Fatalf("reserved = %d, want 2", got)
	}

	_, err = Create(ctx, CreateRequest{HolderName: "Bina", SlotID: "e2e", Members: 1})
	rej, ok := models.AsReject(err)
	if !ok || rej.Reason != models.ReasonSlotFull {
		t.Fatalf("booking B: got %v, want slot-full", err)
	}

	if _, err := Cancel(ctx, a.ID, "op1"); err != nil {
		t.Fatalf("cancel A: %v", err)
	}
	if got := slotReserved(t, ctx, "e2e"); got != 0 {
		t.Fatalf("reserved after cancel = %d, want 0", got)
	}

	b, err := Create(ctx, CreateRequest{HolderName: "Bina", SlotID: "e2e", Members: 1})
	if err != nil {
		t.Fatalf("booking B retry: %v", err)
	}
	if b.Status != models.BookingBooked {
		t.Fatalf("booking B status = %s", b.Status)
	}
	if got := slotReserved(t, ctx, "e2e"); got != 1 {
		t.Fatalf("reserved = %d, want 1", got)
	}
}

func TestCancelIsSingleShot(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "cx", "2030-01-01", "07:00", 5)

	b, err := Create(ctx, CreateRequest{HolderName: "Asha", SlotID: "cx", Members: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := Cancel(ctx, b.ID, "op1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// second cancel must not release again
	_, err = Cancel(ctx, b.ID, "op1")
	rej, ok := models.AsReject(err)
	if !ok || rej.Reason != models.ReasonInvalidState {
		t.Fatalf("second cancel: got %v, want invalid-state", err)
	}
	if got := slotReserved(t, ctx, "cx"); got != 0 {
		t.Fatalf("reserved = %d, want 0 (double release?)", got)
	}

	_, err = Cancel(ctx, "DRS-0000000000", "op1")
	if rej, ok := models.AsReject(err); !ok || rej.Reason != models.ReasonNotFound {
		t.Fatalf("cancel unknown: got %v, want not-found", err)
	}
}

func TestExpireIsIdempotent(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "old", "2020-01-01", "07:00", 10)
	insertSlot(t, ctx, "future", "2099-01-01", "07:00", 10)

	past, err := Create(ctx, CreateRequest{HolderName: "Asha", SlotID: "old", Members: 2})
	if err != nil {
		t.Fatalf("create past: %v", err)
	}
	if _, err := Create(ctx, CreateRequest{HolderName: "Bina", SlotID: "future", Members: 1}); err != nil {
		t.Fatalf("create future: %v", err)
	}

	asOf := time.Now()
	n, err := Expire(ctx, asOf)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d bookings, want 1", n)
	}
	if got := slotReserved(t, ctx, "old"); got != 0 {
		t.Fatalf("reserved = %d, want 0", got)
	}
	if got := slotReserved(t, ctx, "future"); got != 1 {
		t.Fatalf("future slot touched, reserved = %d", got)
	}

	// overlapping scheduler run: no-op, no double release
	n, err = Expire(ctx, asOf)
	if err != nil {
		t.Fatalf("expire again: %v", err)
	}
	if n != 0 {
		t.Fatalf("second expire flipped %d bookings, want 0", n)
	}

	got, err := FindByID(ctx, past.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != models.BookingExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestFindByContactAndDate(t *testing.T) {
	ctx := testSetup(t)
	insertSlot(t, ctx, "q1", "2030-01-01", "07:00", 10)

	if _, err := Create(ctx, CreateRequest{HolderName: "Asha", Phone: "9000000001", SlotID: "q1", Members: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := Create(ctx, CreateRequest{HolderName: "Bina", Email: "bina@example.com", SlotID: "q1", Members: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}

	byPhone, err := FindByContact(ctx, "9000000001")
	if err != nil || len(byPhone) != 1 || byPhone[0].HolderName != "Asha" {
		t.Fatalf("by phone: %v %+v", err, byPhone)
	}

	booked, err := FindByDateAndStatus(ctx, "2030-01-01", models.BookingBooked)
	if err != nil || len(booked) != 2 {
		t.Fatalf("by date+status: %v, got %d", err, len(booked))
	}
}
