package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const createIndexTimeout = 10 * time.Second

// DefaultCollection is the collection MongoStore uses when none is given.
const DefaultCollection = "users"

// MongoStore keeps one document per subject, keyed by _id.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore opens the profile collection and ensures its indexes.
func NewMongoStore(db *mongo.Database, collection string) (*MongoStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	ctx, cancel := context.WithTimeout(context.Background(), createIndexTimeout)
	defer cancel()

	coll := db.Collection(collection)
	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("error adding indexes to %s collection: %w", collection, err)
	}
	return &MongoStore{collection: coll}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	res := s.collection.FindOne(ctx, bson.M{"_id": id})
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("error finding profile %q: %w", id, res.Err())
	}
	rec := &Record{}
	if err := res.Decode(rec); err != nil {
		return nil, fmt.Errorf("error decoding profile %q: %w", id, err)
	}
	return rec, nil
}

func (s *MongoStore) Set(ctx context.Context, id string, fields Fields, merge bool) error {
	if id == "" {
		return ErrEmptyID
	}
	if !merge {
		rec := Record{ID: id}
		fields.Apply(&rec)
		if _, err := s.collection.ReplaceOne(
			ctx,
			bson.M{"_id": id},
			rec,
			options.Replace().SetUpsert(true),
		); err != nil {
			return fmt.Errorf("error replacing profile %q: %w", id, err)
		}
		return nil
	}

	set := fieldsToBSON(fields)
	if len(set) == 0 {
		return nil
	}
	if _, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("error updating profile %q: %w", id, err)
	}
	return nil
}

func (s *MongoStore) CreateIfAbsent(ctx context.Context, rec Record) (bool, error) {
	if rec.ID == "" {
		return false, ErrEmptyID
	}
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting profile %q: %w", rec.ID, err)
	}
	return true, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Record, error) {
	cur, err := s.collection.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("error finding profiles: %w", err)
	}
	records := []Record{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("error decoding profiles: %w", err)
	}
	return records, nil
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("error counting profiles: %w", err)
	}
	return n, nil
}

func fieldsToBSON(f Fields) bson.M {
	set := bson.M{}
	if f.Name != nil {
		set["name"] = *f.Name
	}
	if f.Email != nil {
		set["email"] = *f.Email
	}
	if f.Avatar != nil {
		set["avatar"] = *f.Avatar
	}
	if f.Role != nil {
		set["role"] = string(*f.Role)
	}
	if f.CreatedAt != nil {
		set["created_at"] = *f.CreatedAt
	}
	if f.LastLogin != nil {
		set["last_login"] = *f.LastLogin
	}
	if f.UpdatedAt != nil {
		set["updated_at"] = *f.UpdatedAt
	}
	return set
}

var _ Store = (*MongoStore)(nil)
