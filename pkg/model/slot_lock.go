package model

import "time"

// SlotLock is an advisory lock scoped to one (doctor, slot instant)
// pair. Its _id encodes the pair, so a unique-key violation on insert
// means another reservation for the same slot is in flight.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
