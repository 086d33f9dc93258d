package service

import (
	"context"
	"errors"
	"time"

	appointmenterrors "medibook/internal/appointments/errors"
	"medibook/internal/appointments/repository"
	"medibook/internal/appointments/validator"
	doctorserrors "medibook/internal/doctors/errors"
	doctorrepo "medibook/internal/doctors/repository"
	doctorsvc "medibook/internal/doctors/service"
	"medibook/pkg/cache"
	"medibook/pkg/config"
	"medibook/pkg/events"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type AppointmentService interface {
	Reserve(ctx context.Context, doctorID, patientID string, slot time.Time) (*model.Appointment, error)
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	GetByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, int64, error)
	Cancel(ctx context.Context, id, requestingDoctorID string) error
	Complete(ctx context.Context, id, requestingDoctorID string) error
	Dashboard(ctx context.Context, doctorID string) (*model.DoctorDashboard, error)
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	locks     repository.SlotLockRepository
	doctors   doctorrepo.DoctorRepository
	validator *validator.AppointmentValidator
	cache     *cache.Cache
	producer  *events.Producer
	cfg       *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	locks repository.SlotLockRepository,
	doctors doctorrepo.DoctorRepository,
	validator *validator.AppointmentValidator,
	listCache *cache.Cache,
	producer *events.Producer,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		locks:     locks,
		doctors:   doctors,
		validator: validator,
		cache:     listCache,
		producer:  producer,
		cfg:       cfg,
	}
}

// Reserve books one slot for one patient. The slot flip and the
// appointment insert commit together or not at all: an advisory lock
// serializes attempts on the same slot, then a transaction wraps the
// booked-flag compare-and-set and the ledger insert. Of N concurrent
// attempts on one slot exactly one succeeds; the rest see
// SLOT_UNAVAILABLE.
func (s *appointmentService) Reserve(ctx context.Context, doctorID, patientID string, slot time.Time) (*model.Appointment, error) {
	if slot.IsZero() {
		return nil, apperrors.InvalidInput("Slot time is required")
	}
	// Mongo stores timestamps at millisecond precision. Normalizing here
	// keeps the CAS filter's equality match exact.
	slot = slot.UTC().Truncate(time.Millisecond)

	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		return nil, s.mapDoctorLookupError(err, doctorID)
	}

	if !doctor.Available {
		return nil, apperrors.SlotUnavailable("Doctor is not accepting appointments")
	}

	appointment := &model.Appointment{
		DoctorID:         doctorID,
		PatientID:        patientID,
		HospitalName:     doctor.HospitalName,
		HospitalLocation: doctor.HospitalLocation,
		Slot:             slot,
		Fee:              doctor.ConsultationFee,
		Status:           model.StatusConfirmed,
	}

	if err := s.validator.Validate(appointment); err != nil {
		s.cfg.Log.Warn("Appointment validation failed", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Validation("Appointment validation failed", map[string]any{"error": err.Error()})
	}

	lockID := repository.SlotLockID(doctorID, slot)
	if err := s.locks.Acquire(ctx, lockID, s.cfg.SlotLockTTL); err != nil {
		if errors.Is(err, appointmenterrors.ErrLockHeld) {
			return nil, apperrors.SlotUnavailable("Slot is being booked by another request")
		}
		s.cfg.Log.Error("Failed to acquire slot lock", "lock_id", lockID, "error", err)
		return nil, apperrors.Internal("Failed to reserve slot", err)
	}
	defer func() {
		if err := s.locks.Release(ctx, lockID); err != nil {
			// The TTL index reaps the orphan; log and move on.
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.doctors.MarkSlotBooked(sessCtx, doctorID, slot); err != nil {
			if errors.Is(err, doctorserrors.ErrSlotUnavailable) {
				return apperrors.SlotUnavailable("Slot is already booked or does not exist")
			}
			return err
		}
		return s.repo.Create(sessCtx, appointment)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to book appointment",
			"doctor_id", doctorID,
			"patient_id", patientID,
			"slot", slot,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to book appointment", err)
	}

	s.cache.InvalidatePrefix(ctx, doctorsvc.CachePrefix)
	s.publish(ctx, events.TypeAppointmentBooked, appointment)

	s.cfg.Log.Info("Appointment booked",
		"appointment_id", appointment.ID,
		"doctor_id", doctorID,
		"slot", slot,
	)
	return appointment, nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}

	return appointment, nil
}

func (s *appointmentService) GetByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, int64, error) {
	if doctorID == "" {
		return nil, 0, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	appointments, err := s.repo.FindByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list appointments", "doctor_id", doctorID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve appointments", err)
	}

	count, err := s.repo.CountByDoctor(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to count appointments", "doctor_id", doctorID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count appointments", err)
	}

	return appointments, count, nil
}

// Cancel releases the slot and marks the appointment cancelled in one
// transaction. Cancelling an already-cancelled appointment is a no-op;
// cancelling a completed one is rejected.
func (s *appointmentService) Cancel(ctx context.Context, id, requestingDoctorID string) error {
	appointment, err := s.authorize(ctx, id, requestingDoctorID)
	if err != nil {
		return err
	}

	switch appointment.Status {
	case model.StatusCancelled:
		s.cfg.Log.Info("Appointment already cancelled", "appointment_id", id)
		return nil
	case model.StatusCompleted:
		return apperrors.Conflict("Completed appointments cannot be cancelled")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, id, model.StatusConfirmed, model.StatusCancelled); err != nil {
			if errors.Is(err, appointmenterrors.ErrStatusConflict) {
				return apperrors.Conflict("Appointment status changed, please retry")
			}
			return err
		}

		// The slot may have been removed or reopened out of band; that
		// must not block the cancellation itself.
		if err := s.doctors.ReopenSlot(sessCtx, appointment.DoctorID, appointment.Slot); err != nil {
			if !errors.Is(err, doctorserrors.ErrSlotNotBooked) {
				return err
			}
			s.cfg.Log.Warn("Cancelled appointment had no booked slot to reopen",
				"appointment_id", id,
				"slot", appointment.Slot,
			)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to cancel appointment", "appointment_id", id, "error", err)
		return apperrors.Internal("Failed to cancel appointment", err)
	}

	appointment.Status = model.StatusCancelled
	s.cache.InvalidatePrefix(ctx, doctorsvc.CachePrefix)
	s.publish(ctx, events.TypeAppointmentCancelled, appointment)

	s.cfg.Log.Info("Appointment cancelled", "appointment_id", id, "doctor_id", appointment.DoctorID)
	return nil
}

// Complete marks the appointment completed. Completing twice is a
// no-op; completing a cancelled appointment is rejected. The slot stays
// booked: the visit happened.
func (s *appointmentService) Complete(ctx context.Context, id, requestingDoctorID string) error {
	appointment, err := s.authorize(ctx, id, requestingDoctorID)
	if err != nil {
		return err
	}

	switch appointment.Status {
	case model.StatusCompleted:
		s.cfg.Log.Info("Appointment already completed", "appointment_id", id)
		return nil
	case model.StatusCancelled:
		return apperrors.Conflict("Cancelled appointments cannot be completed")
	}

	if err := s.repo.UpdateStatus(ctx, id, model.StatusConfirmed, model.StatusCompleted); err != nil {
		if errors.Is(err, appointmenterrors.ErrStatusConflict) {
			return apperrors.Conflict("Appointment status changed, please retry")
		}
		s.cfg.Log.Error("Failed to complete appointment", "appointment_id", id, "error", err)
		return apperrors.Internal("Failed to complete appointment", err)
	}

	appointment.Status = model.StatusCompleted
	s.publish(ctx, events.TypeAppointmentCompleted, appointment)

	s.cfg.Log.Info("Appointment completed", "appointment_id", id, "doctor_id", appointment.DoctorID)
	return nil
}

// Dashboard assembles a doctor's earnings, totals and recent activity.
func (s *appointmentService) Dashboard(ctx context.Context, doctorID string) (*model.DoctorDashboard, error) {
	if _, err := s.doctors.FindByID(ctx, doctorID); err != nil {
		return nil, s.mapDoctorLookupError(err, doctorID)
	}

	stats, err := s.repo.DashboardStats(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate dashboard stats", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Internal("Failed to build dashboard", err)
	}

	latest, err := s.repo.FindByDoctor(ctx, doctorID, s.cfg.DashboardRecentLimit, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to list recent appointments", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Internal("Failed to build dashboard", err)
	}
	if latest == nil {
		latest = []*model.Appointment{}
	}

	return &model.DoctorDashboard{
		Earnings:           stats.Earnings,
		Appointments:       stats.Appointments,
		Patients:           stats.Patients,
		LatestAppointments: latest,
	}, nil
}

// --- Helpers ---

// authorize fetches the appointment and enforces that only the owning
// doctor may change its lifecycle.
func (s *appointmentService) authorize(ctx context.Context, id, requestingDoctorID string) (*model.Appointment, error) {
	if requestingDoctorID == "" {
		return nil, apperrors.InvalidInput("Requesting doctor ID cannot be empty")
	}

	appointment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.DoctorID != requestingDoctorID {
		return nil, apperrors.Forbidden("Appointment belongs to a different doctor")
	}

	return appointment, nil
}

func (s *appointmentService) publish(ctx context.Context, eventType string, appointment *model.Appointment) {
	s.producer.Publish(ctx, eventType, events.AppointmentEvent{
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		PatientID:     appointment.PatientID,
		Slot:          appointment.Slot,
		Status:        string(appointment.Status),
		OccurredAt:    time.Now().UTC(),
	})
}

func (s *appointmentService) mapLookupError(err error, id string) error {
	if errors.Is(err, appointmenterrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Appointment", id)
	}
	if errors.Is(err, appointmenterrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid appointment ID format")
	}
	return apperrors.Internal("Failed to retrieve appointment", err)
}

func (s *appointmentService) mapDoctorLookupError(err error, id string) error {
	if errors.Is(err, doctorserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Doctor", id)
	}
	if errors.Is(err, doctorserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid doctor ID format")
	}
	return apperrors.Internal("Failed to retrieve doctor", err)
}
