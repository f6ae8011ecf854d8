// Package schedule contains handlers, services and structures used to manage the doctors' working
// hours and to compute their free slots.
package schedule

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/timeslot"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinic-booking/internal/schedule")

// Reader determines the methods available to read schedules and availability.
type Reader interface {

	// GetWorkingHours returns the schedule of the doctor in the clinic.
	GetWorkingHours(ctx context.Context, doctorUUID, clinicUUID uuid.UUID) (*WorkingHours, error)

	// ComputeFreeSlots returns the free slots of the doctor in the clinic at the given date.
	ComputeFreeSlots(ctx context.Context, doctorUUID, clinicUUID uuid.UUID, date time.Time) ([]string, error)

	// ComputeAvailability returns the free slots of the doctor in the clinic for the next daysAhead
	// dates, today included. Dates without free slots are omitted.
	ComputeAvailability(ctx context.Context, doctorUUID, clinicUUID uuid.UUID, daysAhead int) ([]DayAvailability, error)
}

// Writer determines the methods available to write schedules.
type Writer interface {

	// SaveWorkingHours creates or replaces the schedule of a doctor in a clinic.
	SaveWorkingHours(ctx context.Context, request WorkingHoursRequest) (*WorkingHours, error)
}

// Service determines the methods used to manage schedules.
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
	now        func() time.Time
}

// NewService creates a new schedule service.
func NewService(config configs.Config, dbConn database.Connection, opts ...ServiceOption) Service {
	service := &defaultService{
		config:     config,
		repository: newRepository(dbConn),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// today returns the current calendar date in the clinic timezone.
func (d defaultService) today() time.Time {
	return timeslot.DateOf(d.now().In(d.config.Location()))
}

func (d defaultService) SaveWorkingHours(ctx context.Context, request WorkingHoursRequest) (*WorkingHours, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	workingHours, err := d.repository.UpsertWorkingHours(ctx, WorkingHours{
		UUID:         uuid.New(),
		DoctorUUID:   request.DoctorUUID,
		ClinicUUID:   request.ClinicUUID,
		WorkSchedule: request.WorkSchedule,
	})
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if workingHours == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrDoctorOrClinicNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	return workingHours, nil
}

func (d defaultService) GetWorkingHours(ctx context.Context, doctorUUID, clinicUUID uuid.UUID) (*WorkingHours, error) {
	workingHours, err := d.repository.FindWorkingHours(ctx, doctorUUID, clinicUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if workingHours == nil {
		return nil, apierrors.NewAPIError(
			apierrors.WithDetail(fmt.Sprintf(errWorkingHoursNotFound, doctorUUID, clinicUUID)),
			apierrors.WithHTTPStatusCode(http.StatusNotFound),
		)
	}
	return workingHours, nil
}

// occupiedByDate groups the occupied times by calendar date.
func occupiedByDate(slots []occupiedSlot) map[string]map[string]struct{} {
	grouped := make(map[string]map[string]struct{})
	for _, slot := range slots {
		date := timeslot.DateOf(slot.Date.UTC()).Format(timeslot.DateLayout)
		if grouped[date] == nil {
			grouped[date] = make(map[string]struct{})
		}
		grouped[date][slot.Time] = struct{}{}
	}
	return grouped
}

func (d defaultService) ComputeFreeSlots(ctx context.Context, doctorUUID, clinicUUID uuid.UUID, date time.Time) ([]string, error) {
	ctx, span := tracer.Start(ctx, "schedule.ComputeFreeSlots")
	defer span.End()

	workingHours, err := d.GetWorkingHours(ctx, doctorUUID, clinicUUID)
	if err != nil {
		return nil, err
	}
	date = timeslot.DateOf(date)
	slots, err := workingHours.WorkSchedule.SlotsFor(date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if len(slots) == 0 {
		return slots, nil
	}
	from, to := timeslot.DayBounds(date)
	occupied, err := d.repository.ListOccupiedSlots(ctx, doctorUUID, clinicUUID, from, to)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	free := timeslot.Subtract(slots, occupiedByDate(occupied)[date.Format(timeslot.DateLayout)])
	span.SetAttributes(attribute.Int("schedule.free_slots", len(free)))
	return free, nil
}

func (d defaultService) ComputeAvailability(ctx context.Context, doctorUUID, clinicUUID uuid.UUID, daysAhead int) ([]DayAvailability, error) {
	ctx, span := tracer.Start(ctx, "schedule.ComputeAvailability")
	defer span.End()
	span.SetAttributes(attribute.Int("schedule.days_ahead", daysAhead))

	if daysAhead <= 0 {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrDaysAheadNotPositive), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	workingHours, err := d.GetWorkingHours(ctx, doctorUUID, clinicUUID)
	if err != nil {
		return nil, err
	}
	if len(workingHours.WorkSchedule) == 0 {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrNoWorkingSchedule), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	first := d.today()
	_, to := timeslot.DayBounds(first.AddDate(0, 0, daysAhead-1))
	occupied, err := d.repository.ListOccupiedSlots(ctx, doctorUUID, clinicUUID, first, to)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	occupiedDates := occupiedByDate(occupied)

	availability := make([]DayAvailability, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := first.AddDate(0, 0, i)
		slots, err := workingHours.WorkSchedule.SlotsFor(date.Weekday())
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		day := date.Format(timeslot.DateLayout)
		free := timeslot.Subtract(slots, occupiedDates[day])
		if len(free) == 0 {
			continue
		}
		availability = append(availability, DayAvailability{Date: day, AvailableSlots: free})
	}
	span.SetAttributes(attribute.Int("schedule.available_days", len(availability)))
	return availability, nil
}
