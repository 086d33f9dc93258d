package model

import "time"

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Terminal reports whether the status permits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Appointment links one patient, one doctor and one slot instant.
// Hospital name, location and fee are snapshots taken at booking time:
// later changes to the doctor's profile must not rewrite history.
type Appointment struct {
	ID               string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DoctorID         string            `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	PatientID        string            `json:"patient_id" bson:"patient_id" validate:"required,mongodb"`
	HospitalName     string            `json:"hospital_name,omitempty" bson:"hospital_name,omitempty"`
	HospitalLocation string            `json:"hospital_location,omitempty" bson:"hospital_location,omitempty"`
	Slot             time.Time         `json:"slot" bson:"slot" validate:"required"`
	Fee              float64           `json:"fee" bson:"fee" validate:"min=0"`
	Payment          bool              `json:"payment" bson:"payment"`
	Status           AppointmentStatus `json:"status" bson:"status" validate:"required,oneof=confirmed cancelled completed"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// DoctorDashboard aggregates a doctor's appointment history. Earnings
// count appointments that are completed or carry a recorded payment.
type DoctorDashboard struct {
	Earnings           float64        `json:"earnings"`
	Appointments       int64          `json:"appointments"`
	Patients           int64          `json:"patients"`
	LatestAppointments []*Appointment `json:"latest_appointments"`
}
