package kafka

const (
	TopicPatientCheckedIn = "queue.patient.checked_in"
	TopicPatientCalled    = "queue.patient.called"
	TopicServiceCompleted = "queue.service.completed"
	TopicPatientSkipped   = "queue.patient.skipped"

	TopicAppointmentCheckedIn = "appointment.checked_in"
)
