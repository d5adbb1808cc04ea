package checkin

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

	db.BookingsCollection = client.Database("tirtha_test").Collection("bookings")
	if err := db.BookingsCollection.Drop(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	return ctx
}

func insertBooking(t *testing.T, ctx context.Context, id, status string) {
	t.Helper()
	_, err := db.BookingsCollection.InsertOne(ctx, models.Booking{
		ID: id, SlotID: "s1", Date: "2030-01-01", HolderName: "Asha",
		Members: 2, Category: models.CategoryGeneral, Gate: "Gate 1",
		Status: status, CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}
}

func TestCheckInHappyPath(t *testing.T) {
	ctx := testSetup(t)
	insertBooking(t, ctx, "DRS-1", models.BookingBooked)

	b, err := CheckIn(ctx, "DRS-1")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if b.Status != models.BookingCheckedIn {
		t.Fatalf("status = %s", b.Status)
	}
	if b.CheckedInAt == 0 {
		t.Fatal("checkedInAt not recorded")
	}
}

// a double-tap on the scanner must reject, never corrupt
func TestDuplicateScan(t *testing.T) {
	ctx := testSetup(t)
	insertBooking(t, ctx, "DRS-2", models.BookingBooked)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CheckIn(ctx, "DRS-2")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, dups := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		rej, ok := models.AsReject(err)
		if !ok || rej.Reason != models.ReasonAlreadyCheckedIn {
			t.Fatalf("unexpected error: %v", err)
		}
		dups++
	}
	if successes != 1 || dups != 1 {
		t.Fatalf("got %d successes and %d already-checked-in, want 1 and 1", successes, dups)
	}
}

func TestCheckInRejectionReasons(t *testing.T) {
	ctx := testSetup(t)
	insertBooking(t, ctx, "DRS-in", models.BookingCheckedIn)
	insertBooking(t, ctx, "DRS-cx", models.BookingCancelled)
	insertBooking(t, ctx, "DRS-ex", models.BookingExpired)

	cases := []struct {
		id     string
		reason string
	}{
		{"DRS-in", models.ReasonAlreadyCheckedIn},
		{"DRS-cx", models.ReasonCancelled},
		{"DRS-ex", models.ReasonExpired},
		{"DRS-none", models.ReasonNotFound},
	}
	for _, c := range cases {
		_, err := CheckIn(ctx, c.id)
		rej, ok := models.AsReject(err)
		if !ok || rej.Reason != c.reason {
			t.Errorf("%s: got %v, want %s", c.id, err, c.reason)
		}
	}
}

// a terminal booking never leaves its state, however often it is scanned
func TestStatusMonotonic(t *testing.T) {
	ctx := testSetup(t)
	insertBooking(t, ctx, "DRS-3", models.BookingBooked)

	if _, err := CheckIn(ctx, "DRS-3"); err != nil {
		t.Fatalf("check in: %v", err)
	}

	var after models.Booking
	for i := 0; i < 3; i++ {
		_, err := CheckIn(ctx, "DRS-3")
		rej, ok := models.AsReject(err)
		if !ok || rej.Reason != models.ReasonAlreadyCheckedIn {
			t.Fatalf("scan %d: got %v", i, err)
		}
	}
	if err := db.BookingsCollection.FindOne(ctx, bson.M{"id": "DRS-3"}).Decode(&after); err != nil {
		t.Fatalf("find: %v", err)
	}
	if after.Status != models.BookingCheckedIn {
		t.Fatalf("status drifted to %s", after.Status)
	}
}
