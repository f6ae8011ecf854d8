package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/logging"
	"clinic-booking/internal/timeslot"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type httpHandler struct {
	service Service
	logger  *zerolog.Logger
}

// Setup setups the routes handled by schedule context.
func Setup(router *chi.Mux, logger *zerolog.Logger, authorizer auth.Authorizer, config configs.Config, dbConn database.Connection, opts ...ServiceOption) {
	handler := &httpHandler{logger: logger, service: NewService(config, dbConn, opts...)}

	// protected routes, only for admins
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.AdminRole))
		group.Post("/api/v1/clinic-user-working-hours", handler.SaveWorkingHours)
	})

	// protected routes, for every authenticated role
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.AdminRole, auth.ReceptionistRole, auth.DoctorRole, auth.PatientRole))
		group.Get("/api/v1/clinic-user-working-hours/{doctorID}/{clinicID}", handler.GetWorkingHours)
		group.Get("/api/v1/clinic-user-working-hours/available-slots/{doctorID}/{clinicID}", handler.GetAvailableSlots)
		group.Get("/api/v1/clinic-user-working-hours/availability/{doctorID}/{clinicID}", handler.GetAvailability)
	})
}

// handleError answers the request accordingly the given error.
func (h httpHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logging.PrintlnRequestError(h.logger, r, err)
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		w.WriteHeader(apiErr.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(apiErr)
		return
	}
	var validationErr *apierrors.ValidationError
	if errors.As(err, &validationErr) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

// parseUUIDParameter parses a UUID parameter into a valid UUID.
func (h httpHandler) parseUUIDParameter(parName string, r *http.Request) (uuid.UUID, error) {
	parsedUUID, err := uuid.Parse(chi.URLParam(r, parName))
	if err != nil {
		return uuid.Nil, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidIdentifier), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return parsedUUID, nil
}

// parsePair parses the doctor and clinic identifiers of the request.
func (h httpHandler) parsePair(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	doctorUUID, err := h.parseUUIDParameter("doctorID", r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	clinicUUID, err := h.parseUUIDParameter("clinicID", r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return doctorUUID, clinicUUID, nil
}

// parseDateQuery parses the date query parameter.
func (h httpHandler) parseDateQuery(r *http.Request) (time.Time, error) {
	date, err := timeslot.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		return time.Time{}, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidDate), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return date, nil
}

// SaveWorkingHours handles the request to create or replace a doctor's schedule.
func (h httpHandler) SaveWorkingHours(w http.ResponseWriter, r *http.Request) {
	request := new(WorkingHoursRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	workingHours, err := h.service.SaveWorkingHours(r.Context(), *request)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(workingHours)
}

// GetWorkingHours handles the request to read a doctor's schedule.
func (h httpHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorUUID, clinicUUID, err := h.parsePair(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	workingHours, err := h.service.GetWorkingHours(r.Context(), doctorUUID, clinicUUID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(workingHours)
}

// GetAvailableSlots handles the request to list the free slots of a single date.
func (h httpHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorUUID, clinicUUID, err := h.parsePair(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	date, err := h.parseDateQuery(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	slots, err := h.service.ComputeFreeSlots(r.Context(), doctorUUID, clinicUUID, date)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(slots)
}

// GetAvailability handles the request to list the free slots of the next days.
func (h httpHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorUUID, clinicUUID, err := h.parsePair(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	daysAhead, err := strconv.Atoi(r.URL.Query().Get("daysAhead"))
	if err != nil {
		h.handleError(w, r, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidDaysAhead), apierrors.WithHTTPStatusCode(http.StatusBadRequest)))
		return
	}
	availability, err := h.service.ComputeAvailability(r.Context(), doctorUUID, clinicUUID, daysAhead)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(availability)
}
