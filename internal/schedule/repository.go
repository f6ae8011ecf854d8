package schedule

import (
	"context"
	"time"

	"clinic-booking/internal/database"

	"github.com/google/uuid"
)

const (
	findWorkingHoursQuery = "SELECT wh.id, wh.uuid, u.uuid AS doctor_uuid, c.uuid AS clinic_uuid, wh.work_schedule FROM tb_working_hours wh " +
		"JOIN tb_user u ON u.id = wh.doctor_id JOIN tb_clinic c ON c.id = wh.clinic_id WHERE u.uuid = $1 AND c.uuid = $2"
	upsertWorkingHoursQuery = "INSERT INTO tb_working_hours (uuid, doctor_id, clinic_id, work_schedule) " +
		"SELECT $1, u.id, c.id, $4 FROM tb_user u, tb_clinic c WHERE u.uuid = $2 AND u.role = 'DOCTOR' AND c.uuid = $3 " +
		"ON CONFLICT (doctor_id, clinic_id) DO UPDATE SET work_schedule = EXCLUDED.work_schedule RETURNING id, uuid"
	listOccupiedSlotsQuery = "SELECT a.date, a.time FROM tb_appointment a " +
		"JOIN tb_user u ON u.id = a.doctor_id JOIN tb_clinic c ON c.id = a.clinic_id " +
		"WHERE u.uuid = $1 AND c.uuid = $2 AND a.date BETWEEN $3 AND $4 AND a.time IS NOT NULL " +
		"AND a.status IN ('Booked', 'In-progress', 'Completed')"
)

// Repository provides access to working hours and to the slots already taken.
type Repository interface {

	// FindWorkingHours finds the schedule of the doctor in the clinic.
	FindWorkingHours(ctx context.Context, doctorUUID, clinicUUID uuid.UUID) (*WorkingHours, error)

	// UpsertWorkingHours creates the schedule of the doctor in the clinic, or replaces the existing one.
	// It returns nil if the doctor or the clinic doesn't exist.
	UpsertWorkingHours(ctx context.Context, workingHours WorkingHours) (*WorkingHours, error)

	// ListOccupiedSlots lists the dates and times held by active appointments of the doctor in the
	// clinic, between the given instants.
	ListOccupiedSlots(ctx context.Context, doctorUUID, clinicUUID uuid.UUID, from, to time.Time) ([]occupiedSlot, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// newRepository creates a new Repository.
func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindWorkingHours(ctx context.Context, doctorUUID, clinicUUID uuid.UUID) (*WorkingHours, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 2)
	params[0] = doctorUUID.String()
	params[1] = clinicUUID.String()
	rows, err := d.dbConn.DB().QueryContext(ctx, findWorkingHoursQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	workingHours := new(WorkingHours)
	for rows.Next() {
		if err = database.TransformRow(rows, workingHours); err != nil {
			return nil, err
		}
		if workingHours.ID > 0 {
			return workingHours, nil
		}
	}
	return nil, rows.Err()
}

func (d defaultRepository) UpsertWorkingHours(ctx context.Context, workingHours WorkingHours) (*WorkingHours, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 4)
	params[0] = workingHours.UUID.String()
	params[1] = workingHours.DoctorUUID.String()
	params[2] = workingHours.ClinicUUID.String()
	params[3] = workingHours.WorkSchedule
	rows, err := d.dbConn.DB().QueryContext(ctx, upsertWorkingHoursQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	for rows.Next() {
		if err = database.TransformRow(rows, &workingHours); err != nil {
			return nil, err
		}
		return &workingHours, nil
	}
	return nil, rows.Err()
}

func (d defaultRepository) ListOccupiedSlots(ctx context.Context, doctorUUID, clinicUUID uuid.UUID, from, to time.Time) ([]occupiedSlot, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	params := make([]interface{}, 4)
	params[0] = doctorUUID.String()
	params[1] = clinicUUID.String()
	params[2] = from
	params[3] = to
	rows, err := d.dbConn.DB().QueryContext(ctx, listOccupiedSlotsQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	slots := make([]occupiedSlot, 0)
	for rows.Next() {
		slot := occupiedSlot{}
		if err = database.TransformRow(rows, &slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
