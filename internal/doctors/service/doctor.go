package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	doctorserrors "medibook/internal/doctors/errors"
	"medibook/internal/doctors/repository"
	"medibook/internal/doctors/validator"
	"medibook/pkg/cache"
	"medibook/pkg/config"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

// CachePrefix covers every doctor-listing cache entry. The appointment
// ledger invalidates under the same prefix after a booking flips a slot.
const CachePrefix = "doctors:"

type DoctorService interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	GetByID(ctx context.Context, id string) (*model.Doctor, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error)
	Search(ctx context.Context, freeText, specialty string, limit int, offset int64) ([]*model.Doctor, int64, error)
	UpdateProfile(ctx context.Context, id string, update *model.DoctorUpdate) error
	ToggleAvailability(ctx context.Context, id string) (bool, error)
	AddSlots(ctx context.Context, id string, slots []model.Slot) error
	GroupedSlots(ctx context.Context, id string, asOf time.Time) (*model.GroupedSlots, error)
}

type doctorService struct {
	repo      repository.DoctorRepository
	validator *validator.DoctorValidator
	cache     *cache.Cache
	cfg       *config.Config
}

func NewDoctorService(
	repo repository.DoctorRepository,
	validator *validator.DoctorValidator,
	listCache *cache.Cache,
	cfg *config.Config,
) DoctorService {
	return &doctorService{
		repo:      repo,
		validator: validator,
		cache:     listCache,
		cfg:       cfg,
	}
}

func (s *doctorService) Create(ctx context.Context, doctor *model.Doctor) error {
	s.sanitize(doctor)

	if err := s.validator.Validate(doctor); err != nil {
		s.cfg.Log.Warn("Doctor validation failed", "error", err)
		return apperrors.Validation("Doctor validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		s.cfg.Log.Error("Failed to create doctor", "error", err)
		return apperrors.Internal("Failed to create doctor", err)
	}

	s.cache.InvalidatePrefix(ctx, CachePrefix)

	s.cfg.Log.Info("Doctor created successfully",
		"id", doctor.ID,
		"specialty", doctor.Specialty,
		"slots", len(doctor.Slots),
	)
	return nil
}

func (s *doctorService) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}

	return doctor, nil
}

type cachedListing struct {
	Doctors []*model.Doctor `json:"doctors"`
	Total   int64           `json:"total"`
}

func (s *doctorService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	cacheKey := fmt.Sprintf("%slist:%d:%d", CachePrefix, limit, offset)
	var cached cachedListing
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached.Doctors, cached.Total, nil
	}

	var count int64
	var doctors []*model.Doctor
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count doctors", "error", errCount)
			errCount = apperrors.Internal("Failed to count doctors", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		doctors, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list doctors", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve doctors", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cache.Set(ctx, cacheKey, cachedListing{Doctors: doctors, Total: count})

	return doctors, count, nil
}

func (s *doctorService) Search(ctx context.Context, freeText, specialty string, limit int, offset int64) ([]*model.Doctor, int64, error) {
	freeText = sanitizer.TrimAndNormalize(freeText)
	specialty = sanitizer.NormalizeSpecialty(specialty)
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	cacheKey := fmt.Sprintf("%ssearch:%s|%s:%d:%d", CachePrefix, freeText, specialty, limit, offset)
	var cached cachedListing
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached.Doctors, cached.Total, nil
	}

	var count int64
	var doctors []*model.Doctor
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountSearch(ctx, freeText, specialty)
		if err != nil {
			s.cfg.Log.Error("Failed to count doctors by search",
				"free_text", freeText,
				"specialty", specialty,
				"error", err,
			)
			errCount = apperrors.Internal("Failed to count doctors", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		doctors, err = s.repo.Search(ctx, freeText, specialty, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search doctors",
				"free_text", freeText,
				"specialty", specialty,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search doctors", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cache.Set(ctx, cacheKey, cachedListing{Doctors: doctors, Total: count})

	s.cfg.Log.Debug("Doctor search completed",
		"free_text", freeText,
		"specialty", specialty,
		"count", len(doctors),
		"total_count", count,
	)
	return doctors, count, nil
}

func (s *doctorService) UpdateProfile(ctx context.Context, id string, update *model.DoctorUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	s.sanitizeUpdate(update)

	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Doctor update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	if err := s.repo.UpdateProfile(ctx, id, update); err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Doctor", id)
		}
		if errors.Is(err, doctorserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid doctor ID format")
		}
		s.cfg.Log.Error("Failed to update doctor profile", "id", id, "error", err)
		return apperrors.Internal("Failed to update doctor profile", err)
	}

	s.cache.InvalidatePrefix(ctx, CachePrefix)

	s.cfg.Log.Info("Doctor profile updated successfully", "id", id)
	return nil
}

func (s *doctorService) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	available, err := s.repo.ToggleAvailability(ctx, id)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return false, apperrors.NotFoundWithID("Doctor", id)
		}
		if errors.Is(err, doctorserrors.ErrInvalidID) {
			return false, apperrors.InvalidInput("Invalid doctor ID format")
		}
		s.cfg.Log.Error("Failed to toggle doctor availability", "id", id, "error", err)
		return false, apperrors.Internal("Failed to toggle availability", err)
	}

	s.cache.InvalidatePrefix(ctx, CachePrefix)

	s.cfg.Log.Info("Doctor availability toggled", "id", id, "available", available)
	return available, nil
}

func (s *doctorService) AddSlots(ctx context.Context, id string, slots []model.Slot) error {
	if id == "" {
		return apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	if err := s.validator.ValidateSlots(slots); err != nil {
		s.cfg.Log.Warn("Slot validation failed", "id", id, "error", err)
		return apperrors.Validation("Slot validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	var duplicates []string
	for _, slot := range slots {
		if err := s.repo.AddSlot(ctx, id, slot); err != nil {
			if errors.Is(err, doctorserrors.ErrDuplicateSlot) {
				duplicates = append(duplicates, slot.Time.Format(time.RFC3339))
				continue
			}
			s.cfg.Log.Error("Failed to add slot", "id", id, "slot", slot.Time, "error", err)
			return apperrors.Internal("Failed to add slots", err)
		}
	}

	s.cache.InvalidatePrefix(ctx, CachePrefix)

	if len(duplicates) > 0 {
		return apperrors.Conflict("Some slots already exist for this doctor").
			WithDetails(map[string]any{"duplicates": duplicates})
	}

	s.cfg.Log.Info("Slots added successfully", "id", id, "count", len(slots))
	return nil
}

func (s *doctorService) GroupedSlots(ctx context.Context, id string, asOf time.Time) (*model.GroupedSlots, error) {
	doctor, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	grouped := GroupAvailableSlots(doctor.Slots, asOf)
	return &grouped, nil
}

// --- Helpers ---

func (s *doctorService) sanitize(d *model.Doctor) {
	d.Name = sanitizer.NormalizeName(d.Name)
	d.Qualification = sanitizer.TrimAndNormalize(d.Qualification)
	d.Specialty = sanitizer.NormalizeSpecialty(d.Specialty)
	d.HospitalName = sanitizer.NormalizeHospital(d.HospitalName)
	d.HospitalLocation = sanitizer.TrimAndNormalize(d.HospitalLocation)
}

func (s *doctorService) sanitizeUpdate(u *model.DoctorUpdate) {
	if u.Qualification != nil {
		*u.Qualification = sanitizer.TrimAndNormalize(*u.Qualification)
	}
	if u.HospitalName != nil {
		*u.HospitalName = sanitizer.NormalizeHospital(*u.HospitalName)
	}
	if u.HospitalLocation != nil {
		*u.HospitalLocation = sanitizer.TrimAndNormalize(*u.HospitalLocation)
	}
}

func (s *doctorService) mapLookupError(err error, id string) error {
	if errors.Is(err, doctorserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Doctor", id)
	}
	if errors.Is(err, doctorserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid doctor ID format")
	}
	return apperrors.Internal("Failed to retrieve doctor", err)
}
