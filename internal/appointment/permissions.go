package appointment

import (
	"net/http"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/auth"
)

func forbidden(detail string) error {
	return apierrors.NewAPIError(apierrors.WithDetail(detail), apierrors.WithHTTPStatusCode(http.StatusForbidden))
}

// canBook checks if the user may create appointments.
func canBook(user auth.User) error {
	if err := auth.Allow(user, auth.AdminRole, auth.ReceptionistRole, auth.PatientRole); err != nil {
		return forbidden(ErrNotAllowedToBook)
	}
	return nil
}

// canStart checks if the user may move the appointment from Booked to In-progress: only its
// assigned doctor can.
func canStart(user auth.User, appointment Appointment) error {
	if err := auth.Allow(user, auth.DoctorRole); err != nil {
		return forbidden(ErrOnlyDoctorCanStart)
	}
	if user.UUID != appointment.DoctorUUID {
		return forbidden(ErrNotAssignedDoctor)
	}
	if appointment.Status != StatusBooked {
		return forbidden(ErrStartRequiresBooked)
	}
	return nil
}

// canCancel checks if the user may move the appointment from Booked to Cancelled.
func canCancel(user auth.User, appointment Appointment) error {
	if err := auth.Allow(user, auth.AdminRole, auth.ReceptionistRole); err != nil {
		return forbidden(ErrOnlyStaffCanCancel)
	}
	if appointment.Status != StatusBooked {
		return forbidden(ErrCancelRequiresBooked)
	}
	return nil
}

// canOverrideStatus checks if the user may set the status directly.
func canOverrideStatus(user auth.User) error {
	if !user.Role.IsStaff() {
		return forbidden(ErrNotAllowedToOverride)
	}
	return nil
}

// canMarkArrival checks if the user may register the arrival of the patient.
func canMarkArrival(user auth.User) error {
	if err := auth.Allow(user, auth.AdminRole, auth.ReceptionistRole); err != nil {
		return forbidden(ErrNotAllowedToMarkArrival)
	}
	return nil
}
