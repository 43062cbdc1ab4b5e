package roles

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// BootstrapLedger hands out the bootstrap-admin privilege at most once for
// the lifetime of the deployment.
type BootstrapLedger interface {
	// Claim records subjectID as bootstrap admin and reports true only for the
	// first successful call ever made against the ledger.
	Claim(ctx context.Context, subjectID string) (bool, error)
}

// MemoryLedger keeps the claim in process memory.
type MemoryLedger struct {
	mu      sync.Mutex
	claimed string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Claim(_ context.Context, subjectID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed != "" {
		return false, nil
	}
	l.claimed = subjectID
	return true, nil
}

// ClaimedBy returns the subject holding the claim, or "".
func (l *MemoryLedger) ClaimedBy() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimed
}

// DefaultRedisLedgerKey is the key RedisLedger writes to.
const DefaultRedisLedgerKey = "hubauth:bootstrap_admin"

// RedisLedger stores the claim with SETNX, so concurrent first sign-ins on
// several instances still produce a single bootstrap admin.
type RedisLedger struct {
	client redis.UniversalClient
	key    string
}

func NewRedisLedger(client redis.UniversalClient, key string) *RedisLedger {
	if key == "" {
		key = DefaultRedisLedgerKey
	}
	return &RedisLedger{client: client, key: key}
}

func (l *RedisLedger) Claim(ctx context.Context, subjectID string) (bool, error) {
	return l.client.SetNX(ctx, l.key, subjectID, 0).Result()
}

const bootstrapDocID = "bootstrap_admin"

// MongoLedger stores the claim as a fixed-id document; the duplicate key
// error of a second insert means the claim is gone.
type MongoLedger struct {
	collection *mongo.Collection
}

func NewMongoLedger(db *mongo.Database, collection string) *MongoLedger {
	if collection == "" {
		collection = "meta"
	}
	return &MongoLedger{collection: db.Collection(collection)}
}

func (l *MongoLedger) Claim(ctx context.Context, subjectID string) (bool, error) {
	_, err := l.collection.InsertOne(ctx, bson.M{
		"_id":        bootstrapDocID,
		"subject_id": subjectID,
		"claimed_at": time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var (
	_ BootstrapLedger = (*MemoryLedger)(nil)
	_ BootstrapLedger = (*RedisLedger)(nil)
	_ BootstrapLedger = (*MongoLedger)(nil)
)
