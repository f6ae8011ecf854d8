package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/timeslot"

	"github.com/google/uuid"
)

// Interval is a bookable window of a working day, in "HH:mm".
type Interval struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DaySchedule holds the intervals of a weekday.
type DaySchedule struct {
	Day   string     `json:"day"`
	Slots []Interval `json:"slots"`
}

// WorkSchedule is the weekly template of a doctor in a clinic. It is stored as JSONB.
type WorkSchedule []DaySchedule

// Value implements driver.Valuer.
func (w WorkSchedule) Value() (driver.Value, error) {
	if w == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner.
func (w *WorkSchedule) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = WorkSchedule{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported work schedule type %T", src)
	}
	return json.Unmarshal(raw, w)
}

// SlotsFor generates the slots of every day entry matching the given weekday, sorted by time of day.
func (w WorkSchedule) SlotsFor(weekday time.Weekday) ([]string, error) {
	slots := make([]string, 0)
	for _, day := range w {
		if !timeslot.MatchesWeekday(day.Day, weekday) {
			continue
		}
		for _, interval := range day.Slots {
			generated, err := timeslot.Generate(interval.StartTime, interval.EndTime)
			if err != nil {
				return nil, err
			}
			slots = append(slots, generated...)
		}
	}
	timeslot.Sort(slots)
	return slots, nil
}

// WorkingHours is the schedule of a doctor in a clinic. There is at most one per pair.
type WorkingHours struct {
	ID           int64        `json:"-" dbfield:"id"`
	UUID         uuid.UUID    `json:"uuid" dbfield:"uuid"`
	DoctorUUID   uuid.UUID    `json:"doctor_id" dbfield:"doctor_uuid"`
	ClinicUUID   uuid.UUID    `json:"clinic_id" dbfield:"clinic_uuid"`
	WorkSchedule WorkSchedule `json:"work_schedule" dbfield:"work_schedule"`
}

// WorkingHoursRequest is the payload used to create or replace a schedule.
type WorkingHoursRequest struct {
	DoctorUUID   uuid.UUID    `json:"doctor_id"`
	ClinicUUID   uuid.UUID    `json:"clinic_id"`
	WorkSchedule WorkSchedule `json:"work_schedule"`
}

// Validate checks if the given request is valid.
func (w WorkingHoursRequest) Validate() error {
	if w.DoctorUUID == uuid.Nil {
		return apierrors.NewValidationError("doctor_id", "required")
	}
	if w.ClinicUUID == uuid.Nil {
		return apierrors.NewValidationError("clinic_id", "required")
	}
	if len(w.WorkSchedule) == 0 {
		return apierrors.NewValidationError("work_schedule", "required")
	}
	for i, day := range w.WorkSchedule {
		if _, ok := timeslot.ParseWeekday(day.Day); !ok {
			return apierrors.NewValidationError(fmt.Sprintf("work_schedule[%d].day", i), "unknown day")
		}
		for j, interval := range day.Slots {
			field := fmt.Sprintf("work_schedule[%d].slots[%d]", i, j)
			start, err := timeslot.Parse(interval.StartTime)
			if err != nil {
				return apierrors.NewValidationError(field+".start_time", "invalid time, expected HH:mm")
			}
			end, err := timeslot.Parse(interval.EndTime)
			if err != nil {
				return apierrors.NewValidationError(field+".end_time", "invalid time, expected HH:mm")
			}
			if start >= end {
				return apierrors.NewValidationError(field, "start_time must be before end_time")
			}
		}
	}
	return nil
}

// DayAvailability holds the free slots of one date.
type DayAvailability struct {
	Date           string   `json:"date"`
	AvailableSlots []string `json:"availableSlots"`
}

// occupiedSlot is a date and time held by an active appointment.
type occupiedSlot struct {
	Date time.Time `dbfield:"date"`
	Time string    `dbfield:"time"`
}
