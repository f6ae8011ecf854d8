package appointment

type Error string

const (
	ErrInvalidIdentifier       = "invalid identifier"
	ErrInvalidDate             = "invalid date, expected YYYY-MM-DD"
	ErrAppointmentNotFound     = "appointment not found"
	ErrClinicNotFound          = "clinic not found"
	ErrDoctorNotFound          = "doctor not found"
	ErrPatientNotFound         = "patient not found"
	ErrSlotTaken               = "time slot already taken"
	ErrNotAssignedDoctor       = "appointment not assigned to this doctor"
	ErrStartRequiresBooked     = "invalid appointment status, expected status to be \"Booked\""
	ErrCancelRequiresBooked    = "appointment status must be \"Booked\" to cancel"
	ErrOnlyDoctorCanStart      = "user must be a doctor to start an appointment"
	ErrOnlyStaffCanCancel      = "user must be an admin or receptionist to cancel an appointment"
	ErrNotAllowedToBook        = "user is not allowed to book appointments"
	ErrNotAllowedToOverride    = "user is not allowed to set the appointment status"
	ErrNotAllowedToMarkArrival = "user is not allowed to mark the patient as present"
)

func (e Error) Error() string {
	return string(e)
}
