package appointment

import (
	"context"
	"fmt"
	"time"

	"clinic-booking/internal/database"

	"github.com/google/uuid"
)

const (
	activeStatuses = "('Booked', 'In-progress', 'Completed')"

	selectAppointmentQuery = "SELECT a.id, a.uuid, c.uuid AS clinic_uuid, a.branch, d.uuid AS doctor_uuid, p.uuid AS patient_uuid, " +
		"a.service_uuid, a.type, a.notes, a.date, a.time, a.status, a.is_waiting_list, a.is_emergency, " +
		"a.patient_arrival_time, a.cancellation_reason, a.created_at, a.updated_at FROM tb_appointment a " +
		"JOIN tb_clinic c ON c.id = a.clinic_id JOIN tb_user d ON d.id = a.doctor_id JOIN tb_patient p ON p.id = a.patient_id"

	findClinicByUUIDQuery       = "SELECT id, uuid, name, branch FROM tb_clinic WHERE uuid = $1"
	findDoctorByUUIDQuery       = "SELECT id, uuid, email FROM tb_user WHERE uuid = $1 AND role = 'DOCTOR'"
	findPatientByUUIDQuery      = "SELECT id, uuid, name FROM tb_patient WHERE uuid = $1"
	findAppointmentByUUIDQuery  = selectAppointmentQuery + " WHERE a.uuid = $1"
	findSlotOccupantQuery       = selectAppointmentQuery + " WHERE c.uuid = $1 AND a.date BETWEEN $2 AND $3 AND a.time = $4 AND a.status IN " + activeStatuses + " LIMIT 1"
	listClinicAppointmentsQuery = selectAppointmentQuery + " WHERE c.uuid = $1 AND a.date BETWEEN $2 AND $3 ORDER BY a.date, a.time NULLS LAST, a.created_at"
	insertAppointmentQuery      = "INSERT INTO tb_appointment (uuid, clinic_id, branch, doctor_id, patient_id, service_uuid, type, notes, date, time, status, " +
		"is_waiting_list, is_emergency, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)"
	transitionStatusQuery = "UPDATE tb_appointment SET status = $1, cancellation_reason = COALESCE($2, cancellation_reason), updated_at = $3 WHERE uuid = $4 AND status = $5"
	forceStatusQuery      = "UPDATE tb_appointment SET status = $1, updated_at = $2 WHERE uuid = $3"
	markArrivalQuery      = "UPDATE tb_appointment SET patient_arrival_time = $1, updated_at = $1 WHERE uuid = $2"
	countStatsQuery       = "SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE a.status NOT IN ('Completed', 'Cancelled')) AS remaining, " +
		"COUNT(*) FILTER (WHERE a.is_waiting_list) AS waiting_list FROM tb_appointment a JOIN tb_clinic c ON c.id = a.clinic_id " +
		"WHERE c.uuid = $1 AND a.date BETWEEN $2 AND $3"
	listBookedSlotsQuery = "SELECT a.date, a.time FROM tb_appointment a JOIN tb_clinic c ON c.id = a.clinic_id JOIN tb_user d ON d.id = a.doctor_id " +
		"WHERE c.uuid = $1 AND d.uuid = $2 AND a.status IN " + activeStatuses + " ORDER BY a.date, a.time"
)

// Repository provides access to appointments and to the records they refer to.
type Repository interface {

	// FindClinicByUUID finds a clinic by its UUID.
	FindClinicByUUID(ctx context.Context, uuid uuid.UUID) (*Clinic, error)

	// FindDoctorByUUID finds a user with the doctor role by its UUID.
	FindDoctorByUUID(ctx context.Context, uuid uuid.UUID) (*Doctor, error)

	// FindPatientByUUID finds a patient by its UUID.
	FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error)

	// FindAppointmentByUUID finds an appointment by its UUID.
	FindAppointmentByUUID(ctx context.Context, uuid uuid.UUID) (*Appointment, error)

	// FindSlotOccupant finds the active appointment of the clinic at the given time, between the given
	// instants.
	FindSlotOccupant(ctx context.Context, clinicUUID uuid.UUID, from, to time.Time, clock string) (*Appointment, error)

	// ListClinicAppointments lists the appointments of the clinic between the given instants.
	ListClinicAppointments(ctx context.Context, clinicUUID uuid.UUID, from, to time.Time) ([]*Appointment, error)

	// InsertAppointment inserts a new appointment.
	InsertAppointment(ctx context.Context, appointment Appointment) error

	// TransitionStatus moves the appointment from one status to another, only if it is still in the
	// first one. The reason, when given, is persisted. It returns false if nothing changed.
	TransitionStatus(ctx context.Context, uuid uuid.UUID, from, to Status, reason *string, at time.Time) (bool, error)

	// ForceStatus sets the appointment status whatever the current one is.
	ForceStatus(ctx context.Context, uuid uuid.UUID, to Status, at time.Time) (bool, error)

	// MarkArrival sets the patient arrival time.
	MarkArrival(ctx context.Context, uuid uuid.UUID, at time.Time) (bool, error)

	// CountStats counts the appointments of the clinic between the given instants.
	CountStats(ctx context.Context, clinicUUID uuid.UUID, from, to time.Time) (*Stats, error)

	// ListBookedSlots lists the dates and times held by active appointments of the doctor in the clinic.
	ListBookedSlots(ctx context.Context, clinicUUID, doctorUUID uuid.UUID) ([]BookedSlot, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// newRepository creates a new Repository.
func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

// findOne fills the model with the first row returned by the query. It returns false if there is
// no row.
func (d defaultRepository) findOne(ctx context.Context, model interface{}, query string, params ...interface{}) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return false, err
	}
	defer database.CloseRows(rows)
	for rows.Next() {
		if err = database.TransformRow(rows, model); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, rows.Err()
}

// listAppointments lists the appointments returned by the query.
func (d defaultRepository) listAppointments(ctx context.Context, query string, params ...interface{}) ([]*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointments := make([]*Appointment, 0)
	for rows.Next() {
		appointment := new(Appointment)
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}

// exec runs the statement and tells if some row was affected.
func (d defaultRepository) exec(ctx context.Context, query string, params ...interface{}) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, query, params...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d defaultRepository) FindClinicByUUID(ctx context.Context, uuid uuid.UUID) (*Clinic, error) {
	clinic := new(Clinic)
	found, err := d.findOne(ctx, clinic, findClinicByUUIDQuery, uuid.String())
	if err != nil || !found {
		return nil, err
	}
	return clinic, nil
}

func (d defaultRepository) FindDoctorByUUID(ctx context.Context, uuid uuid.UUID) (*Doctor, error) {
	doctor := new(Doctor)
	found, err := d.findOne(ctx, doctor, findDoctorByUUIDQuery, uuid.String())
	if err != nil || !found {
		return nil, err
	}
	return doctor, nil
}

func (d defaultRepository) FindPatientByUUID(ctx context.Context, uuid uuid.UUID) (*Patient, error) {
	patient := new(Patient)
	found, err := d.findOne(ctx, patient, findPatientByUUIDQuery, uuid.String())
	if err != nil || !found {
		return nil, err
	}
	return patient, nil
}

func (d defaultRepository) FindAppointmentByUUID(ctx context.Context, uuid uuid.UUID) (*Appointment, error) {
	appointment := new(Appointment)
	found, err := d.findOne(ctx, appointment, findAppointmentByUUIDQuery, uuid.String())
	if err != nil || !found {
		return nil, err
	}
	return appointment, nil
}

func (d defaultRepository) FindSlotOccupant(ctx context.Context, clinicUUID uuid.UUID, from, to time.Time, clock string) (*Appointment, error) {
	params := make([]interface{}, 4)
	params[0] = clinicUUID.String()
	params[1] = from
	params[2] = to
	params[3] = clock
	appointment := new(Appointment)
	found, err := d.findOne(ctx, appointment, findSlotOccupantQuery, params...)
	if err != nil || !found {
		return nil, err
	}
	return appointment, nil
}

func (d defaultRepository) ListClinicAppointments(ctx context.Context, clinicUUID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	return d.listAppointments(ctx, listClinicAppointmentsQuery, clinicUUID.String(), from, to)
}

func (d defaultRepository) InsertAppointment(ctx context.Context, appointment Appointment) error {
	params := make([]interface{}, 15)
	params[0] = appointment.UUID.String()
	params[1] = appointment.ClinicID
	params[2] = appointment.Branch
	params[3] = appointment.DoctorID
	params[4] = appointment.PatientID
	params[5] = appointment.ServiceUUID
	params[6] = string(appointment.Type)
	params[7] = appointment.Notes
	params[8] = appointment.Date
	params[9] = appointment.Time
	params[10] = string(appointment.Status)
	params[11] = appointment.IsWaitingList
	params[12] = appointment.IsEmergency
	params[13] = appointment.CreatedAt
	params[14] = appointment.UpdatedAt
	inserted, err := d.exec(ctx, insertAppointmentQuery, params...)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("appointment not inserted")
	}
	return nil
}

func (d defaultRepository) TransitionStatus(ctx context.Context, uuid uuid.UUID, from, to Status, reason *string, at time.Time) (bool, error) {
	params := make([]interface{}, 5)
	params[0] = string(to)
	params[1] = reason
	params[2] = at
	params[3] = uuid.String()
	params[4] = string(from)
	return d.exec(ctx, transitionStatusQuery, params...)
}

func (d defaultRepository) ForceStatus(ctx context.Context, uuid uuid.UUID, to Status, at time.Time) (bool, error) {
	return d.exec(ctx, forceStatusQuery, string(to), at, uuid.String())
}

func (d defaultRepository) MarkArrival(ctx context.Context, uuid uuid.UUID, at time.Time) (bool, error) {
	return d.exec(ctx, markArrivalQuery, at, uuid.String())
}

func (d defaultRepository) CountStats(ctx context.Context, clinicUUID uuid.UUID, from, to time.Time) (*Stats, error) {
	stats := new(Stats)
	if _, err := d.findOne(ctx, stats, countStatsQuery, clinicUUID.String(), from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (d defaultRepository) ListBookedSlots(ctx context.Context, clinicUUID, doctorUUID uuid.UUID) ([]BookedSlot, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listBookedSlotsQuery, clinicUUID.String(), doctorUUID.String())
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	slots := make([]BookedSlot, 0)
	for rows.Next() {
		slot := BookedSlot{}
		if err = database.TransformRow(rows, &slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
