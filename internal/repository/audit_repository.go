package repository

import (
    "context"
    "time"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"

    "github.com/iliyamo/circulink/internal/model"
)

// AuditRepo writes audit entries to MongoDB.  Entries carry their own
// UUID as _id, so a redelivered message is stored once.
type AuditRepo struct {
    collection *mongo.Collection
}

// ConnectMongo dials uri and pings it with a ten second timeout.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
    ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
    if err != nil {
        return nil, err
    }
    if err := client.Ping(ctx, nil); err != nil {
        _ = client.Disconnect(context.Background())
        return nil, err
    }
    return client, nil
}

func NewAuditRepo(db *mongo.Database, collection string) *AuditRepo {
    return &AuditRepo{collection: db.Collection(collection)}
}

// EnsureIndexes creates the lookup index on (actor_id, at).
func (r *AuditRepo) EnsureIndexes(ctx context.Context) error {
    _, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
        Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "at", Value: -1}},
    })
    return err
}

// Insert stores e.  A duplicate _id is treated as success.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
    _, err := r.collection.InsertOne(ctx, e)
    if mongo.IsDuplicateKeyError(err) {
        return nil
    }
    return err
}

// ListByActor returns the most recent entries of one user.
func (r *AuditRepo) ListByActor(ctx context.Context, actorID uint64, limit int64) ([]model.AuditEntry, error) {
    cur, err := r.collection.Find(ctx, bson.M{"actor_id": actorID},
        options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit))
    if err != nil {
        return nil, err
    }
    out := []model.AuditEntry{}
    if err := cur.All(ctx, &out); err != nil {
        return nil, err
    }
    return out, nil
}
