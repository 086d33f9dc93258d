package events

import "time"

const (
	TypeAppointmentBooked    = "appointment.booked"
	TypeAppointmentCancelled = "appointment.cancelled"
	TypeAppointmentCompleted = "appointment.completed"
)

// Header keys carried on every published message.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
)

const SchemaVersion = "1"

// AppointmentEvent is the payload published on every appointment
// lifecycle transition. Downstream consumers (notification senders,
// analytics) are external to this service.
type AppointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	Slot          time.Time `json:"slot"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}
