package schedule

type Error string

const (
	ErrInvalidIdentifier      = "invalid identifier"
	ErrInvalidDate            = "invalid date, expected YYYY-MM-DD"
	ErrInvalidDaysAhead       = "daysAhead must be a number"
	ErrDaysAheadNotPositive   = "daysAhead must be greater than 0"
	ErrNoWorkingSchedule      = "the doctor has no defined working schedule in this clinic"
	ErrDoctorOrClinicNotFound = "doctor or clinic not found"
	errWorkingHoursNotFound   = "working hours not found for doctor %s in clinic %s"
)

func (e Error) Error() string {
	return string(e)
}
