package cache

// Collection keys, one per table. Every write to a table drops its key.
const (
	KeyPatients              = "collection:patients"
	KeyAppointments          = "collection:appointments"
	KeyRewards               = "collection:rewards"
	KeyHealthTracking        = "collection:health_tracking"
	KeyMedicationSchedules   = "collection:medication_schedules"
	KeyNotificationSchedules = "collection:notification_schedules"
	KeyPatientSurveys        = "collection:patient_surveys"
	KeySettings              = "collection:app_settings"
)

// PatientDependents are the collections whose rows reference a patient and
// are rewritten by the store when that patient is deleted.
var PatientDependents = []string{
	KeyAppointments,
	KeyRewards,
	KeyHealthTracking,
	KeyMedicationSchedules,
	KeyNotificationSchedules,
	KeyPatientSurveys,
}

// AppointmentDependents are rewritten by the store when an appointment is deleted.
var AppointmentDependents = []string{
	KeyNotificationSchedules,
	KeyPatientSurveys,
}

// MedicationDependents are rewritten by the store when a medication schedule is deleted.
var MedicationDependents = []string{
	KeyNotificationSchedules,
}
