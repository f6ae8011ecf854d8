package appointment

import (
	"time"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/timeslot"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusBooked     Status = "Booked"
	StatusInProgress Status = "In-progress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
	StatusNoShow     Status = "No-show"
)

// transitions holds the guarded transitions. Cancelled, Completed and No-show are terminal.
var transitions = map[Status][]Status{
	StatusBooked:     {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

// overrideTargets are the statuses that can be set directly through a status update.
var overrideTargets = []Status{StatusInProgress, StatusNoShow, StatusCompleted}

// CanTransitionTo checks if next is reachable from s through a guarded transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal checks if no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Active checks if an appointment in s holds its time slot.
func (s Status) Active() bool {
	return s == StatusBooked || s == StatusInProgress || s == StatusCompleted
}

// IsOverrideTarget checks if s can be set through a status update.
func (s Status) IsOverrideTarget() bool {
	for _, target := range overrideTargets {
		if s == target {
			return true
		}
	}
	return false
}

// Type is the kind of visit.
type Type string

const (
	TypeExamination Type = "examination"
	TypeFollowUp    Type = "follow up"
)

// Valid checks if the type is one of the known types.
func (t Type) Valid() bool {
	return t == TypeExamination || t == TypeFollowUp
}

type Clinic struct {
	ID     int64     `json:"-" dbfield:"id"`
	UUID   uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name   string    `json:"name" dbfield:"name"`
	Branch string    `json:"branch" dbfield:"branch"`
}

type Doctor struct {
	ID    int64     `json:"-" dbfield:"id"`
	UUID  uuid.UUID `json:"uuid" dbfield:"uuid"`
	Email string    `json:"email" dbfield:"email"`
}

type Patient struct {
	ID   int64     `json:"-" dbfield:"id"`
	UUID uuid.UUID `json:"uuid" dbfield:"uuid"`
	Name string    `json:"name" dbfield:"name"`
}

type Appointment struct {
	ID                 int64         `json:"-" dbfield:"id"`
	UUID               uuid.UUID     `json:"uuid" dbfield:"uuid"`
	ClinicID           int64         `json:"-"`
	ClinicUUID         uuid.UUID     `json:"clinic" dbfield:"clinic_uuid"`
	Branch             string        `json:"branch" dbfield:"branch"`
	DoctorID           int64         `json:"-"`
	DoctorUUID         uuid.UUID     `json:"doctor" dbfield:"doctor_uuid"`
	PatientID          int64         `json:"-"`
	PatientUUID        uuid.UUID     `json:"patient" dbfield:"patient_uuid"`
	ServiceUUID        uuid.NullUUID `json:"service" dbfield:"service_uuid"`
	Type               Type          `json:"appointment_type" dbfield:"type"`
	Notes              *string       `json:"notes" dbfield:"notes"`
	Date               time.Time     `json:"date" dbfield:"date"`
	Time               *string       `json:"time" dbfield:"time"`
	Status             Status        `json:"status" dbfield:"status"`
	IsWaitingList      bool          `json:"is_waiting_list" dbfield:"is_waiting_list"`
	IsEmergency        bool          `json:"is_emergency" dbfield:"is_emergency"`
	PatientArrivalTime *time.Time    `json:"patient_arrival_time" dbfield:"patient_arrival_time"`
	CancellationReason *string       `json:"reason" dbfield:"cancellation_reason"`
	CreatedAt          time.Time     `json:"created_at" dbfield:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" dbfield:"updated_at"`
}

// AppointmentRequest is the payload used to book an appointment. Waiting list and emergency
// appointments take today's date and no time.
type AppointmentRequest struct {
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	PatientUUID   uuid.UUID     `json:"patient"`
	DoctorUUID    uuid.UUID     `json:"doctor"`
	ClinicUUID    uuid.UUID     `json:"clinic"`
	ServiceUUID   uuid.NullUUID `json:"service"`
	Notes         string        `json:"notes"`
	Type          Type          `json:"appointment_type"`
	IsWaitingList bool          `json:"is_waiting_list"`
	IsEmergency   bool          `json:"is_emergency"`
}

// unscheduled checks if the appointment goes without date and time.
func (a AppointmentRequest) unscheduled() bool {
	return a.IsWaitingList || a.IsEmergency
}

// Validate checks if the given request is valid.
func (a AppointmentRequest) Validate() error {
	if a.PatientUUID == uuid.Nil {
		return apierrors.NewValidationError("patient", "required")
	}
	if a.DoctorUUID == uuid.Nil {
		return apierrors.NewValidationError("doctor", "required")
	}
	if a.ClinicUUID == uuid.Nil {
		return apierrors.NewValidationError("clinic", "required")
	}
	if !a.Type.Valid() {
		return apierrors.NewValidationError("appointment_type", "appointment_type must be either examination or follow up")
	}
	if a.unscheduled() {
		return nil
	}
	if a.Date == "" {
		return apierrors.NewValidationError("date", "required")
	}
	if _, err := timeslot.ParseDate(a.Date); err != nil {
		return apierrors.NewValidationError("date", "invalid date, expected YYYY-MM-DD")
	}
	if a.Time == "" {
		return apierrors.NewValidationError("time", "required")
	}
	if !timeslot.Valid(a.Time) {
		return apierrors.NewValidationError("time", "invalid time, expected HH:mm")
	}
	return nil
}

type CancelRequest struct {
	UUID   uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// Validate checks if the given request is valid.
func (c CancelRequest) Validate() error {
	if c.UUID == uuid.Nil {
		return apierrors.NewValidationError("id", "required")
	}
	if c.Reason == "" {
		return apierrors.NewValidationError("reason", "required")
	}
	return nil
}

type StatusUpdateRequest struct {
	UUID   uuid.UUID `json:"id"`
	Status Status    `json:"status"`
}

// Validate checks if the given request is valid.
func (s StatusUpdateRequest) Validate() error {
	if s.UUID == uuid.Nil {
		return apierrors.NewValidationError("id", "required")
	}
	if !s.Status.IsOverrideTarget() {
		return apierrors.NewValidationError("status", "status must be one of In-progress, No-show, Completed")
	}
	return nil
}

// Stats summarizes the appointments of a clinic at a date.
type Stats struct {
	Total       int64  `json:"totalAppointments" dbfield:"total"`
	Remaining   int64  `json:"remainingAppointments" dbfield:"remaining"`
	WaitingList int64  `json:"waitingListAppointments" dbfield:"waiting_list"`
	Date        string `json:"date"`
}

// BookedSlot is a date and time held by an appointment.
type BookedSlot struct {
	Date time.Time `json:"date" dbfield:"date"`
	Time *string   `json:"time" dbfield:"time"`
}
