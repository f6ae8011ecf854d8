package auditlog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type httpHandler struct {
	store  Store
	logger *zerolog.Logger
}

// Setup setups the routes handled by audit log context.
func Setup(router *chi.Mux, logger *zerolog.Logger, authorizer auth.Authorizer, store Store) {
	handler := &httpHandler{
		logger: logger,
		store:  store,
	}

	// protected routes, only for admins
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.AdminRole))
		group.Get("/api/v1/appointment-logs", handler.ListEntries)
	})
}

// parseLimit reads the limit query parameter, defaultLimit when absent.
func parseLimit(value string) (int, error) {
	if value == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, apierrors.NewAPIError(apierrors.WithDetail(ErrInvalidLimit), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return limit, nil
}

// ListEntries handles the request to list the latest audit entries.
func (h httpHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(err)
		return
	}
	entries, err := h.store.List(r.Context(), r.URL.Query().Get("action"), limit)
	if err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(entries)
}
