package appointment

import (
	"encoding/json"
	"errors"
	"net/http"
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
	authorizer auth.Authorizer
	service    Service
	config     configs.Config
	logger     *zerolog.Logger
}

// Setup setups the routes handled by appointment context.
func Setup(router *chi.Mux, logger *zerolog.Logger, authorizer auth.Authorizer, config configs.Config, dbConn database.Connection, opts ...ServiceOption) {
	handler := &httpHandler{
		logger:     logger,
		authorizer: authorizer,
		config:     config,
		service:    NewService(config, dbConn, logger, opts...),
	}

	// protected routes, for every authenticated role
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.AdminRole, auth.ReceptionistRole, auth.DoctorRole, auth.PatientRole))
		group.Post("/api/v1/appointments", handler.CreateAppointment)
		group.Get("/api/v1/appointments/{id}", handler.FindAppointment)
		group.Get("/api/v1/appointments/clinic/{clinicID}/{doctorID}", handler.ListBookedSlots)
	})

	// protected routes, only for the clinic staff
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.AdminRole, auth.ReceptionistRole, auth.DoctorRole))
		group.Put("/api/v1/appointments/{id}/assign-doctor", handler.StartAppointment)
		group.Post("/api/v1/appointments/cancel", handler.CancelAppointment)
		group.Post("/api/v1/appointments/status-update", handler.UpdateStatus)
		group.Put("/api/v1/appointments/{id}/mark-present", handler.MarkPatientPresent)
		group.Get("/api/v1/appointments/clinic/{clinicID}", handler.ListClinicAppointments)
		group.Get("/api/v1/appointments/clinic/{clinicID}/stats", handler.GetStats)
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

// CreateAppointment handles the request to book an appointment.
func (h httpHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	request := new(AppointmentRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	appointment, err := h.service.CreateAppointment(ctx, user, *request)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(appointment)
}

// FindAppointment handles the request to read an appointment.
func (h httpHandler) FindAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentUUID, err := h.parseUUIDParameter("id", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	appointment, err := h.service.FindAppointment(r.Context(), appointmentUUID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// StartAppointment handles the request of a doctor to start an appointment.
func (h httpHandler) StartAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appointmentUUID, err := h.parseUUIDParameter("id", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	appointment, err := h.service.StartAppointment(ctx, user, appointmentUUID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// CancelAppointment handles the request to cancel an appointment.
func (h httpHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	request := new(CancelRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	appointment, err := h.service.CancelAppointment(ctx, user, *request)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// UpdateStatus handles the request to set the status of an appointment.
func (h httpHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	request := new(StatusUpdateRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	appointment, err := h.service.UpdateStatus(ctx, user, *request)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// MarkPatientPresent handles the request to register the arrival of the patient.
func (h httpHandler) MarkPatientPresent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appointmentUUID, err := h.parseUUIDParameter("id", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	appointment, err := h.service.MarkPatientPresent(ctx, user, appointmentUUID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// ListClinicAppointments handles the request to list the appointments of a clinic at a date,
// today by default.
func (h httpHandler) ListClinicAppointments(w http.ResponseWriter, r *http.Request) {
	clinicUUID, err := h.parseUUIDParameter("clinicID", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	// the zero date lets the service pick today
	var date time.Time
	if value := r.URL.Query().Get("date"); value != "" {
		if date, err = timeslot.ParseDate(value); err != nil {
			h.handleError(w, r, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidDate), apierrors.WithHTTPStatusCode(http.StatusBadRequest)))
			return
		}
	}
	appointments, err := h.service.ListClinicAppointments(r.Context(), clinicUUID, date)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointments)
}

// GetStats handles the request to summarize today's appointments of a clinic.
func (h httpHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	clinicUUID, err := h.parseUUIDParameter("clinicID", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	stats, err := h.service.GetStats(r.Context(), clinicUUID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(stats)
}

// ListBookedSlots handles the request to list the dates and times held by a doctor in a clinic.
func (h httpHandler) ListBookedSlots(w http.ResponseWriter, r *http.Request) {
	clinicUUID, err := h.parseUUIDParameter("clinicID", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	doctorUUID, err := h.parseUUIDParameter("doctorID", r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	slots, err := h.service.ListBookedSlots(r.Context(), clinicUUID, doctorUUID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(slots)
}
