package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmenterrors "medibook/internal/appointments/errors"
	"medibook/pkg/config"
	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Appointments"

// DashboardStats holds the aggregate half of a doctor's dashboard.
// Earnings sum the fee of appointments that are completed or carry a
// recorded payment; patients counts distinct patient IDs.
type DashboardStats struct {
	Earnings     float64 `bson:"earnings"`
	Appointments int64   `bson:"appointments"`
	Patients     int64   `bson:"patients"`
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, error)
	CountByDoctor(ctx context.Context, doctorID string) (int64, error)
	UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error
	DashboardStats(ctx context.Context, doctorID string) (*DashboardStats, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction, where wrapping the SessionContext would break session
// semantics.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoAppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	appointment.ID = primitive.NewObjectID().Hex()
	appointment.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, appointment); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := r.validateID(id); err != nil {
		return nil, err
	}

	var appointment model.Appointment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appointment, nil
}

// FindByDoctor lists a doctor's appointments most recent first, the
// order the dashboard and history views consume them in.
func (r *mongoAppointmentRepository) FindByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"doctor_id": doctorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appointments, nil
}

func (r *mongoAppointmentRepository) CountByDoctor(ctx context.Context, doctorID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"doctor_id": doctorID})
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	return count, nil
}

// UpdateStatus applies a conditional transition: the update matches
// only while the appointment still holds the expected status, so two
// concurrent transitions cannot both succeed.
func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := r.validateID(id); err != nil {
		return err
	}

	filter := bson.M{"_id": id, "status": from}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	if result.MatchedCount == 0 {
		return appointmenterrors.ErrStatusConflict
	}

	return nil
}

func (r *mongoAppointmentRepository) DashboardStats(ctx context.Context, doctorID string) (*DashboardStats, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	earning := bson.M{"$cond": bson.A{
		bson.M{"$or": bson.A{
			bson.M{"$eq": bson.A{"$status", string(model.StatusCompleted)}},
			"$payment",
		}},
		"$fee",
		0,
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"doctor_id": doctorID}}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"earnings":     bson.M{"$sum": earning},
			"appointments": bson.M{"$sum": 1},
			"patient_ids":  bson.M{"$addToSet": "$patient_id"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"earnings":     1,
			"appointments": 1,
			"patients":     bson.M{"$size": "$patient_ids"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []DashboardStats
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard stats: %w", err)
	}

	// No appointments yet yields an empty result set, not an error.
	if len(results) == 0 {
		return &DashboardStats{}, nil
	}

	return &results[0], nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoAppointmentRepository) validateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}
	return nil
}
