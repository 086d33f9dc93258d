package repository

import (
	"context"
	"fmt"
	"time"

	appointmenterrors "medibook/internal/appointments/errors"
	"medibook/pkg/config"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const SlotLockCollectionName = "Slot_locks"

// SlotLockRepository implements the advisory lock that serializes
// reservations of one (doctor, slot) pair. The lock _id encodes the
// pair, and the collection's unique _id index is the arbiter: the first
// insert wins, every concurrent insert gets a duplicate-key error.
// A TTL index on expires_at reaps locks orphaned by a crash.
type SlotLockRepository interface {
	Acquire(ctx context.Context, lockID string, ttl time.Duration) error
	Release(ctx context.Context, lockID string) error
}

type mongoSlotLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		cfg:        cfg,
		collection: db.Collection(SlotLockCollectionName),
	}
}

// SlotLockID builds the lock _id for one (doctor, slot instant) pair.
// Unix milliseconds match the precision slots are stored at, so two
// distinct slots never collapse onto one lock, and the ID stays stable
// across time zone representations of the same instant.
func SlotLockID(doctorID string, slot time.Time) string {
	return fmt.Sprintf("slot_lock_%s_%d", doctorID, slot.UnixMilli())
}

func (r *mongoSlotLockRepository) Acquire(ctx context.Context, lockID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := model.SlotLock{
		ID:        lockID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appointmenterrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	return nil
}

func (r *mongoSlotLockRepository) Release(ctx context.Context, lockID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID}); err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}

	return nil
}
