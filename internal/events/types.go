package events

import "time"

// Flow outcome event types.
const (
	TypeBookingCommitted     = "booking.committed"
	TypeAppointmentUpdated   = "appointment.updated"
	TypeAppointmentCancelled = "appointment.cancelled"
	TypeVoiceAutoStopped     = "voice.auto_stopped"
)

// FlowOutcomeV1 records how a conversation flow ended.
type FlowOutcomeV1 struct {
	Type          string    `json:"-"`
	EventID       string    `json:"event_id"`
	HospitalID    string    `json:"hospital_id"`
	Channel       string    `json:"channel"`
	SessionID     string    `json:"session_id"`
	Flow          string    `json:"flow"`
	Outcome       string    `json:"outcome"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	DepartmentID  string    `json:"department_id,omitempty"`
	DoctorID      string    `json:"doctor_id,omitempty"`
	Date          string    `json:"date,omitempty"`
	Time          string    `json:"time,omitempty"`
	Language      string    `json:"language,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e FlowOutcomeV1) EventType() string { return e.Type }
