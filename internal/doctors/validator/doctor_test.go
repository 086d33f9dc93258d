package validator

import (
	"testing"
	"time"

	"medibook/pkg/logger"
	"medibook/pkg/model"
)

func newTestValidator() *DoctorValidator {
	return NewDoctorValidator(logger.New(logger.Config{Level: "error", Format: logger.TEXT}))
}

func validDoctor() *model.Doctor {
	return &model.Doctor{
		Name:      "Dr. Asha Rao",
		Specialty: "Cardiology",
		Slots: []model.Slot{
			{Time: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
			{Time: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
		},
	}
}

func TestValidateAcceptsValidDoctor(t *testing.T) {
	v := newTestValidator()

	if err := v.Validate(validDoctor()); err != nil {
		t.Fatalf("expected valid doctor to pass, got: %v", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name   string
		mutate func(*model.Doctor)
	}{
		{"missing name", func(d *model.Doctor) { d.Name = "" }},
		{"missing specialty", func(d *model.Doctor) { d.Specialty = "" }},
		{"short name", func(d *model.Doctor) { d.Name = "X" }},
		{"negative fee", func(d *model.Doctor) { d.ConsultationFee = -1 }},
		{"bad map link", func(d *model.Doctor) { d.MapLink = "not-a-url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doctor := validDoctor()
			tt.mutate(doctor)
			if err := v.Validate(doctor); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateRejectsDuplicateSlots(t *testing.T) {
	v := newTestValidator()

	doctor := validDoctor()
	doctor.Slots = append(doctor.Slots, doctor.Slots[0])

	if err := v.Validate(doctor); err == nil {
		t.Error("expected duplicate slot instants to fail validation")
	}
}

func TestValidateSlots(t *testing.T) {
	v := newTestValidator()
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		slots   []model.Slot
		wantErr bool
	}{
		{"valid batch", []model.Slot{{Time: at}, {Time: at.Add(time.Hour)}}, false},
		{"empty batch", nil, true},
		{"zero instant", []model.Slot{{}}, true},
		{"pre-booked", []model.Slot{{Time: at, Booked: true}}, true},
		{"duplicate instant", []model.Slot{{Time: at}, {Time: at}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSlots(tt.slots)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlots() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdateRejectsBadValues(t *testing.T) {
	v := newTestValidator()

	badFee := -10.0
	if err := v.ValidateUpdate(&model.DoctorUpdate{ConsultationFee: &badFee}); err == nil {
		t.Error("expected negative fee to fail validation")
	}

	goodFee := 250.0
	if err := v.ValidateUpdate(&model.DoctorUpdate{ConsultationFee: &goodFee}); err != nil {
		t.Errorf("expected valid update to pass, got: %v", err)
	}
}
