package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	SlotsCollection     *mongo.Collection
	BookingsCollection  *mongo.Collection
	IncidentsCollection *mongo.Collection
	ResourcesCollection *mongo.Collection
	ZonesCollection     *mongo.Collection
	UserCollection      *mongo.Collection
	Client              *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("tirthadb")
	SlotsCollection = database.Collection("slots")
	BookingsCollection = database.Collection("bookings")
	IncidentsCollection = database.Collection("incidents")
	ResourcesCollection = database.Collection("resources")
	ZonesCollection = database.Collection("zones")
	UserCollection = database.Collection("users")
}

// EnsureIndexes creates the unique indexes the engine's id-uniqueness
// guarantees rest on. Call once at startup.
func EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := []struct {
		coll *mongo.Collection
		keys bson.D
	}{
		{SlotsCollection, bson.D{{Key: "id", Value: 1}}},
		{BookingsCollection, bson.D{{Key: "id", Value: 1}}},
		{IncidentsCollection, bson.D{{Key: "id", Value: 1}}},
		{ResourcesCollection, bson.D{{Key: "id", Value: 1}}},
		{ZonesCollection, bson.D{{Key: "id", Value: 1}}},
	}
	for _, s := range specs {
		_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: s.keys, Options: unique})
		if err != nil {
			return err
		}
	}
	// triage listing sorts on (priorityRank, createdAt); keep it indexed
	_, err := IncidentsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "priorityRank", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}
