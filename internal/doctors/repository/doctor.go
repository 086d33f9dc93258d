package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	doctorserrors "medibook/internal/doctors/errors"
	"medibook/pkg/config"
	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Doctors"
)

// sensitiveProjection keeps credential fields out of every read path.
// Raw image bytes never enter the document at all, only the URL.
var sensitiveProjection = bson.M{
	"email":         0,
	"password_hash": 0,
}

type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	FindByID(ctx context.Context, id string) (*model.Doctor, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, freeText, specialty string, limit int, offset int64) ([]*model.Doctor, error)
	CountSearch(ctx context.Context, freeText, specialty string) (int64, error)
	UpdateProfile(ctx context.Context, id string, update *model.DoctorUpdate) error
	ToggleAvailability(ctx context.Context, id string) (bool, error)
	AddSlot(ctx context.Context, id string, slot model.Slot) error
	MarkSlotBooked(ctx context.Context, id string, slot time.Time) error
	ReopenSlot(ctx context.Context, id string, slot time.Time) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoDoctorRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoDoctorRepository(cfg *config.Config) DoctorRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDoctorRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction, where wrapping the SessionContext would break session
// semantics.
func (r *mongoDoctorRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			return context.WithTimeout(ctx, remaining)
		}
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// IDs are hex-encoded ObjectIDs stored as strings, so documents
	// round-trip through the string-typed model without a custom codec.
	doctor.ID = primitive.NewObjectID().Hex()
	doctor.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if doctor.Slots == nil {
		doctor.Slots = []model.Slot{}
	}

	if _, err := r.collection.InsertOne(ctx, doctor); err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}

	return nil
}

func (r *mongoDoctorRepository) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := validateID(id); err != nil {
		return nil, err
	}

	opts := options.FindOne().SetProjection(sensitiveProjection)

	var doctor model.Doctor
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, doctorserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}

	return &doctor, nil
}

func (r *mongoDoctorRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(sensitiveProjection).
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find doctors: %w", err)
	}
	defer cursor.Close(ctx)

	var doctors []*model.Doctor
	if err = cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}

	return doctors, nil
}

func (r *mongoDoctorRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count doctors: %w", err)
	}

	return count, nil
}

func (r *mongoDoctorRepository) Search(ctx context.Context, freeText, specialty string, limit int, offset int64) ([]*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(sensitiveProjection).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildSearchFilter(freeText, specialty), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	defer cursor.Close(ctx)

	var doctors []*model.Doctor
	if err = cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}

	return doctors, nil
}

func (r *mongoDoctorRepository) CountSearch(ctx context.Context, freeText, specialty string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildSearchFilter(freeText, specialty))
	if err != nil {
		return 0, fmt.Errorf("failed to count doctors by search: %w", err)
	}
	return count, nil
}

// buildSearchFilter ANDs an exact case-insensitive specialty match with
// an OR-group of case-insensitive substring matches over the text
// fields. Both parts are optional.
func buildSearchFilter(freeText, specialty string) bson.M {
	filter := bson.M{}

	if specialty != "" {
		filter["specialty"] = primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(specialty) + "$",
			Options: "i",
		}
	}

	if freeText != "" {
		substring := primitive.Regex{
			Pattern: regexp.QuoteMeta(freeText),
			Options: "i",
		}
		filter["$or"] = []bson.M{
			{"name": substring},
			{"hospital_name": substring},
			{"hospital_location": substring},
			{"specialty": substring},
		}
	}

	return filter
}

func (r *mongoDoctorRepository) UpdateProfile(ctx context.Context, id string, update *model.DoctorUpdate) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := validateID(id); err != nil {
		return err
	}

	set := bson.M{}
	if update.Qualification != nil {
		set["qualification"] = *update.Qualification
	}
	if update.HospitalName != nil {
		set["hospital_name"] = *update.HospitalName
	}
	if update.HospitalLocation != nil {
		set["hospital_location"] = *update.HospitalLocation
	}
	if update.MapLink != nil {
		set["map_link"] = *update.MapLink
	}
	if update.ConsultationFee != nil {
		set["consultation_fee"] = *update.ConsultationFee
	}
	if update.Available != nil {
		set["available"] = *update.Available
	}
	if update.ProfileImageURL != nil {
		set["profile_image_url"] = *update.ProfileImageURL
	}

	if len(set) == 0 {
		// Nothing recognized to apply; still verify the doctor exists.
		_, err := r.FindByID(ctx, id)
		return err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update doctor profile: %w", err)
	}

	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}

	return nil
}

func (r *mongoDoctorRepository) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := validateID(id); err != nil {
		return false, err
	}

	// Pipeline update flips the flag server-side, so concurrent toggles
	// never read a stale value.
	flip := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"available": bson.M{"$not": "$available"}}}},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"available": 1})

	var updated struct {
		Available bool `bson:"available"`
	}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, flip, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, doctorserrors.ErrNotFound
		}
		return false, fmt.Errorf("failed to toggle availability: %w", err)
	}

	return updated.Available, nil
}

// AddSlot appends a slot only if no slot at the same instant exists.
// The uniqueness check and the push are one conditional update.
func (r *mongoDoctorRepository) AddSlot(ctx context.Context, id string, slot model.Slot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := validateID(id); err != nil {
		return err
	}

	filter := bson.M{
		"_id":        id,
		"slots.time": bson.M{"$ne": slot.Time},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"slots": slot}})
	if err != nil {
		return fmt.Errorf("failed to add slot: %w", err)
	}

	if result.MatchedCount == 0 {
		return doctorserrors.ErrDuplicateSlot
	}

	return nil
}

// MarkSlotBooked is the compare-and-set at the heart of reservation:
// "set booked=true where booked=false" in a single update, so two
// concurrent bookings of the same slot cannot both match.
func (r *mongoDoctorRepository) MarkSlotBooked(ctx context.Context, id string, slot time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := validateID(id); err != nil {
		return err
	}

	filter := bson.M{
		"_id": id,
		"slots": bson.M{
			"$elemMatch": bson.M{
				"time":   slot,
				"booked": false,
			},
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"slots.$.booked": true}})
	if err != nil {
		return fmt.Errorf("failed to mark slot booked: %w", err)
	}

	if result.ModifiedCount == 0 {
		return doctorserrors.ErrSlotUnavailable
	}

	return nil
}

func (r *mongoDoctorRepository) ReopenSlot(ctx context.Context, id string, slot time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := validateID(id); err != nil {
		return err
	}

	filter := bson.M{
		"_id": id,
		"slots": bson.M{
			"$elemMatch": bson.M{
				"time":   slot,
				"booked": true,
			},
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"slots.$.booked": false}})
	if err != nil {
		return fmt.Errorf("failed to reopen slot: %w", err)
	}

	if result.ModifiedCount == 0 {
		return doctorserrors.ErrSlotNotBooked
	}

	return nil
}

func (r *mongoDoctorRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func validateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", doctorserrors.ErrInvalidID, id)
	}
	return nil
}
