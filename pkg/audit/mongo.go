package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const createIndexTimeout = 10 * time.Second

// DefaultCollection is the collection MongoStorage uses when none is given.
const DefaultCollection = "audit_events"

// MongoStorage appends one document per event.
type MongoStorage struct {
	collection *mongo.Collection
}

// NewMongoStorage opens the collection and ensures its indexes.
func NewMongoStorage(db *mongo.Database, collection string) (*MongoStorage, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	ctx, cancel := context.WithTimeout(context.Background(), createIndexTimeout)
	defer cancel()

	coll := db.Collection(collection)
	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("error adding indexes to %s collection: %w", collection, err)
	}
	return &MongoStorage{collection: coll}, nil
}

func (s *MongoStorage) Store(ctx context.Context, ev Event) error {
	if _, err := s.collection.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("error inserting audit event %q: %w", ev.ID, err)
	}
	return nil
}
