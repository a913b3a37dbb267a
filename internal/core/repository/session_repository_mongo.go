package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/duynhne/auth-web/internal/core/domain"
)

// MongoSessionRepository implements domain.SessionRepository on a MongoDB
// collection keyed by token hash.
type MongoSessionRepository struct {
	coll *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoSessionRepository.
func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{coll: db.Collection(SessionsCollection)}
}

// Create inserts a new session document.
func (r *MongoSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.coll.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

// GetByTokenHash looks up the session by token hash.
// Returns (nil, nil) when the hash does not match any session.
func (r *MongoSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: tokenHash}}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Invalidate marks the session as logged out; the first invalidation time wins.
func (r *MongoSessionRepository) Invalidate(ctx context.Context, tokenHash string, at time.Time) error {
	// A null filter value matches documents where the field is absent.
	filter := bson.D{
		{Key: "_id", Value: tokenHash},
		{Key: "invalidated_at", Value: nil},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "invalidated_at", Value: at}}}}

	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}
