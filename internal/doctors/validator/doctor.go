package validator

import (
	"errors"
	"fmt"
	"strings"

	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type DoctorValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewDoctorValidator(log *logger.Logger) *DoctorValidator {
	v := validator.New()

	if err := v.RegisterValidation("slot_list", validateSlotList); err != nil {
		log.Fatal("Failed to register 'slot_list' validator", "error", err)
	}

	return &DoctorValidator{
		validate: v,
		logger:   log,
	}
}

// validateSlotList enforces the per-doctor uniqueness invariant: no two
// slots at the same instant.
func validateSlotList(fl validator.FieldLevel) bool {
	slots, ok := fl.Field().Interface().([]model.Slot)
	if !ok {
		return false
	}

	seen := make(map[int64]struct{}, len(slots))
	for _, s := range slots {
		if s.Time.IsZero() {
			return false
		}
		key := s.Time.UnixNano()
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func (v *DoctorValidator) Validate(doctor *model.Doctor) error {
	if err := v.validate.Struct(doctor); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *DoctorValidator) ValidateUpdate(update *model.DoctorUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateSlots checks a batch of slots to be appended to a doctor.
func (v *DoctorValidator) ValidateSlots(slots []model.Slot) error {
	if len(slots) == 0 {
		return ValidationErrors{
			ValidationError{Field: "Slots", Message: "at least one slot is required"},
		}
	}

	seen := make(map[int64]struct{}, len(slots))
	for _, s := range slots {
		if s.Time.IsZero() {
			return ValidationErrors{
				ValidationError{Field: "Slots", Message: "slot time is required"},
			}
		}
		if s.Booked {
			return ValidationErrors{
				ValidationError{Field: "Slots", Message: "new slots cannot be created already booked"},
			}
		}
		key := s.Time.UnixNano()
		if _, dup := seen[key]; dup {
			return ValidationErrors{
				ValidationError{Field: "Slots", Message: fmt.Sprintf("duplicate slot instant: %s", s.Time)},
			}
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (v *DoctorValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		case "slot_list":
			message = "slots must have distinct, non-zero instants"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
