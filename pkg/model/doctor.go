package model

import (
	"time"
)

// Slot is a single bookable point-in-time owned by one doctor. Slots
// live embedded in the doctor document so that flipping one booked flag
// stays a single-document atomic update.
type Slot struct {
	Time   time.Time `json:"time" bson:"time" validate:"required"`
	Booked bool      `json:"booked" bson:"booked"`
}

type Doctor struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name                 string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Qualification        string    `json:"qualification,omitempty" bson:"qualification,omitempty" validate:"omitempty,max=100"`
	Specialty            string    `json:"specialty" bson:"specialty" validate:"required,min=2,max=50"`
	ExperienceYears      int       `json:"experience_years" bson:"experience_years" validate:"min=0,max=80"`
	HospitalName         string    `json:"hospital_name,omitempty" bson:"hospital_name,omitempty" validate:"omitempty,max=100"`
	HospitalLocation     string    `json:"hospital_location,omitempty" bson:"hospital_location,omitempty" validate:"omitempty,max=200"`
	MapLink              string    `json:"map_link,omitempty" bson:"map_link,omitempty" validate:"omitempty,url"`
	ConsultationFee      float64   `json:"consultation_fee" bson:"consultation_fee" validate:"min=0"`
	Available            bool      `json:"available" bson:"available"`
	RegistrationVerified bool      `json:"registration_verified" bson:"registration_verified"`
	ProfileImageURL      string    `json:"profile_image_url,omitempty" bson:"profile_image_url,omitempty" validate:"omitempty,url"`
	Slots                []Slot    `json:"slots" bson:"slots" validate:"omitempty,slot_list"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`

	// Credential fields are stored for the external auth collaborator
	// but never serialized to clients. Repository projections exclude
	// them as well.
	Email        string `json:"-" bson:"email,omitempty"`
	PasswordHash string `json:"-" bson:"password_hash,omitempty"`
}

// DoctorUpdate carries the profile fields a doctor may change.
// Unknown fields in the request body are dropped by the decoder, not
// rejected.
type DoctorUpdate struct {
	Qualification    *string  `json:"qualification,omitempty" validate:"omitempty,max=100"`
	HospitalName     *string  `json:"hospital_name,omitempty" validate:"omitempty,max=100"`
	HospitalLocation *string  `json:"hospital_location,omitempty" validate:"omitempty,max=200"`
	MapLink          *string  `json:"map_link,omitempty" validate:"omitempty,url"`
	ConsultationFee  *float64 `json:"consultation_fee,omitempty" validate:"omitempty,min=0"`
	Available        *bool    `json:"available,omitempty"`
	ProfileImageURL  *string  `json:"profile_image_url,omitempty" validate:"omitempty,url"`
}

// GroupedSlots buckets a doctor's unbooked slots by calendar day
// relative to a reference instant.
type GroupedSlots struct {
	Today    []Slot `json:"today"`
	Tomorrow []Slot `json:"tomorrow"`
	Later    []Slot `json:"later"`
}
