// Package appointment contains handlers, services and structures used to book appointments and to
// move them through their lifecycle.
package appointment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/metrics"
	"clinic-booking/internal/timeslot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reader determines the methods available to read appointments.
type Reader interface {

	// FindAppointment finds an appointment by its UUID.
	FindAppointment(ctx context.Context, uuid uuid.UUID) (*Appointment, error)

	// CheckSlotFree returns the active appointment holding the clinic's slot at the given date and
	// time, or nil if the slot is free.
	CheckSlotFree(ctx context.Context, clinicUUID uuid.UUID, date time.Time, clock string) (*Appointment, error)

	// ListClinicAppointments lists the appointments of the clinic at the given date, today in the
	// clinic timezone when the date is zero.
	ListClinicAppointments(ctx context.Context, clinicUUID uuid.UUID, date time.Time) ([]*Appointment, error)

	// GetStats summarizes today's appointments of the clinic.
	GetStats(ctx context.Context, clinicUUID uuid.UUID) (*Stats, error)

	// ListBookedSlots lists the dates and times held by the doctor in the clinic.
	ListBookedSlots(ctx context.Context, clinicUUID, doctorUUID uuid.UUID) ([]BookedSlot, error)
}

// Writer determines the methods available to book appointments and change their status.
type Writer interface {

	// CreateAppointment books a new appointment.
	CreateAppointment(ctx context.Context, user auth.User, request AppointmentRequest) (*Appointment, error)

	// StartAppointment moves the appointment from Booked to In-progress.
	StartAppointment(ctx context.Context, user auth.User, uuid uuid.UUID) (*Appointment, error)

	// CancelAppointment moves the appointment from Booked to Cancelled.
	CancelAppointment(ctx context.Context, user auth.User, request CancelRequest) (*Appointment, error)

	// UpdateStatus sets In-progress, No-show or Completed whatever the current status is.
	UpdateStatus(ctx context.Context, user auth.User, request StatusUpdateRequest) (*Appointment, error)

	// MarkPatientPresent registers the arrival of the patient.
	MarkPatientPresent(ctx context.Context, user auth.User, uuid uuid.UUID) (*Appointment, error)
}

// Service determines the methods used to manage appointments.
type Service interface {
	Reader
	Writer
}

// ServiceOption determines the Functional Options used to create a new Service.
type ServiceOption func(service *defaultService)

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) ServiceOption {
	return func(service *defaultService) {
		service.now = now
	}
}

type defaultService struct {
	repository Repository
	config     configs.Config
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewService creates a new appointment service.
func NewService(config configs.Config, dbConn database.Connection, logger *zerolog.Logger, opts ...ServiceOption) Service {
	service := &defaultService{
		config:     config,
		repository: newRepository(dbConn),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func notFound(detail string) error {
	return apierrors.NewAPIError(apierrors.WithDetail(detail), apierrors.WithHTTPStatusCode(http.StatusNotFound))
}

func slotTaken() error {
	metrics.IncBookingConflict()
	return apierrors.NewAPIError(apierrors.WithDetail(ErrSlotTaken), apierrors.WithHTTPStatusCode(http.StatusConflict))
}

// today returns the current calendar date in the clinic timezone.
func (d defaultService) today() time.Time {
	return timeslot.DateOf(d.now().In(d.config.Location()))
}

func (d defaultService) FindAppointment(ctx context.Context, uuid uuid.UUID) (*Appointment, error) {
	appointment, err := d.repository.FindAppointmentByUUID(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if appointment == nil {
		return nil, notFound(ErrAppointmentNotFound)
	}
	return appointment, nil
}

func (d defaultService) CheckSlotFree(ctx context.Context, clinicUUID uuid.UUID, date time.Time, clock string) (*Appointment, error) {
	from, to := timeslot.DayBounds(date)
	occupant, err := d.repository.FindSlotOccupant(ctx, clinicUUID, from, to, clock)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return occupant, nil
}

func (d defaultService) CreateAppointment(ctx context.Context, user auth.User, request AppointmentRequest) (*Appointment, error) {
	if err := canBook(user); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	clinic, err := d.repository.FindClinicByUUID(ctx, request.ClinicUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if clinic == nil {
		return nil, notFound(ErrClinicNotFound)
	}
	doctor, err := d.repository.FindDoctorByUUID(ctx, request.DoctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, notFound(ErrDoctorNotFound)
	}
	patient, err := d.repository.FindPatientByUUID(ctx, request.PatientUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if patient == nil {
		return nil, notFound(ErrPatientNotFound)
	}

	now := d.now()
	appointment := Appointment{
		UUID:          uuid.New(),
		ClinicID:      clinic.ID,
		ClinicUUID:    clinic.UUID,
		Branch:        clinic.Branch,
		DoctorID:      doctor.ID,
		DoctorUUID:    doctor.UUID,
		PatientID:     patient.ID,
		PatientUUID:   patient.UUID,
		ServiceUUID:   request.ServiceUUID,
		Type:          request.Type,
		Status:        StatusBooked,
		IsWaitingList: request.IsWaitingList,
		IsEmergency:   request.IsEmergency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if request.Notes != "" {
		appointment.Notes = &request.Notes
	}
	if request.unscheduled() {
		appointment.Date = d.today()
	} else {
		// already checked by Validate
		appointment.Date, _ = timeslot.ParseDate(request.Date)
		clock := request.Time
		appointment.Time = &clock
		occupant, err := d.CheckSlotFree(ctx, clinic.UUID, appointment.Date, clock)
		if err != nil {
			return nil, err
		}
		if occupant != nil {
			return nil, slotTaken()
		}
	}

	if err = d.repository.InsertAppointment(ctx, appointment); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, slotTaken()
		}
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return &appointment, nil
}

func (d defaultService) StartAppointment(ctx context.Context, user auth.User, uuid uuid.UUID) (*Appointment, error) {
	appointment, err := d.FindAppointment(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err = canStart(user, *appointment); err != nil {
		return nil, err
	}
	return d.transition(ctx, appointment, StatusInProgress, nil, ErrStartRequiresBooked)
}

func (d defaultService) CancelAppointment(ctx context.Context, user auth.User, request CancelRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	appointment, err := d.FindAppointment(ctx, request.UUID)
	if err != nil {
		return nil, err
	}
	if err = canCancel(user, *appointment); err != nil {
		return nil, err
	}
	return d.transition(ctx, appointment, StatusCancelled, &request.Reason, ErrCancelRequiresBooked)
}

// transition applies a guarded transition. The store only applies it if the appointment still has the
// status read before, otherwise the request is refused with the given detail.
func (d defaultService) transition(ctx context.Context, appointment *Appointment, to Status, reason *string, refusal string) (*Appointment, error) {
	if !appointment.Status.CanTransitionTo(to) {
		return nil, forbidden(refusal)
	}
	now := d.now()
	changed, err := d.repository.TransitionStatus(ctx, appointment.UUID, appointment.Status, to, reason, now)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if !changed {
		return nil, forbidden(refusal)
	}
	appointment.Status = to
	appointment.UpdatedAt = now
	if reason != nil {
		appointment.CancellationReason = reason
	}
	return appointment, nil
}

func (d defaultService) UpdateStatus(ctx context.Context, user auth.User, request StatusUpdateRequest) (*Appointment, error) {
	if err := canOverrideStatus(user); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	appointment, err := d.FindAppointment(ctx, request.UUID)
	if err != nil {
		return nil, err
	}
	if !appointment.Status.CanTransitionTo(request.Status) {
		d.logger.Warn().
			Str("appointment", appointment.UUID.String()).
			Str("from", string(appointment.Status)).
			Str("to", string(request.Status)).
			Str("user", user.UUID.String()).
			Str("role", string(user.Role)).
			Msg("status override outside the guarded transitions")
	}
	now := d.now()
	changed, err := d.repository.ForceStatus(ctx, appointment.UUID, request.Status, now)
	if err != nil {
		// reactivating a Cancelled or No-show appointment whose slot was taken meanwhile
		if database.IsUniqueViolation(err) {
			return nil, slotTaken()
		}
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if !changed {
		return nil, notFound(ErrAppointmentNotFound)
	}
	appointment.Status = request.Status
	appointment.UpdatedAt = now
	return appointment, nil
}

func (d defaultService) MarkPatientPresent(ctx context.Context, user auth.User, uuid uuid.UUID) (*Appointment, error) {
	if err := canMarkArrival(user); err != nil {
		return nil, err
	}
	appointment, err := d.FindAppointment(ctx, uuid)
	if err != nil {
		return nil, err
	}
	now := d.now()
	changed, err := d.repository.MarkArrival(ctx, appointment.UUID, now)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if !changed {
		return nil, notFound(ErrAppointmentNotFound)
	}
	appointment.PatientArrivalTime = &now
	appointment.UpdatedAt = now
	return appointment, nil
}

func (d defaultService) ListClinicAppointments(ctx context.Context, clinicUUID uuid.UUID, date time.Time) ([]*Appointment, error) {
	if date.IsZero() {
		date = d.today()
	}
	from, to := timeslot.DayBounds(date)
	appointments, err := d.repository.ListClinicAppointments(ctx, clinicUUID, from, to)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return appointments, nil
}

func (d defaultService) GetStats(ctx context.Context, clinicUUID uuid.UUID) (*Stats, error) {
	clinic, err := d.repository.FindClinicByUUID(ctx, clinicUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if clinic == nil {
		return nil, notFound(ErrClinicNotFound)
	}
	today := d.today()
	from, to := timeslot.DayBounds(today)
	stats, err := d.repository.CountStats(ctx, clinicUUID, from, to)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	stats.Date = today.Format(timeslot.DateLayout)
	return stats, nil
}

func (d defaultService) ListBookedSlots(ctx context.Context, clinicUUID, doctorUUID uuid.UUID) ([]BookedSlot, error) {
	slots, err := d.repository.ListBookedSlots(ctx, clinicUUID, doctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return slots, nil
}
