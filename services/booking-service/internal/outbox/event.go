package outbox

import "time"

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Record is a stored outbox row awaiting publication.
type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentConfirmed = "booking.appointment.confirmed.v1"
	EventAppointmentCompleted = "booking.appointment.completed.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventReminderRequested    = "booking.reminder.requested.v1"
	EventScheduleChanged      = "booking.schedule.changed.v1"
)

// StatusEventType maps an appointment status to the event announcing it.
func StatusEventType(status string) string {
	switch status {
	case "confirmed":
		return EventAppointmentConfirmed
	case "completed":
		return EventAppointmentCompleted
	case "cancelled":
		return EventAppointmentCancelled
	}
	return ""
}
