package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinic-booking/internal/apierrors"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type httpHandler struct {
	service Service
	logger  *zerolog.Logger
}

// Setup setups the login, token refresh and identity routes.
func Setup(router *chi.Mux, logger *zerolog.Logger, config configs.Config, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(config, dbConn)}

	router.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", handler.Authenticate)
		r.Put("/token", handler.RefreshToken)
		r.With(JwtValidator(handler.service)).Get("/me", handler.GetAuthenticatedUser)
	})
}

// handleError answers the request accordingly the given error.
func (h httpHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logging.PrintlnRequestError(h.logger, r, err)
	var validationErr *apierrors.ValidationError
	switch {
	case isUnauthorized(err):
		w.WriteHeader(http.StatusUnauthorized)
	case errors.As(err, &validationErr):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErr)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// decode reads the JSON body into v, answering 400 when it is malformed.
func (h httpHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logging.PrintlnRequestError(h.logger, r, err)
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

// Authenticate handles the login of a clinic user.
func (h httpHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var credentials Credentials
	if !h.decode(w, r, &credentials) {
		return
	}
	tokens, err := h.service.Authenticate(r.Context(), credentials)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.logger.Debug().Str("email", credentials.Email).Msg("user logged in")
	_ = json.NewEncoder(w).Encode(tokens)
}

// RefreshToken handles the exchange of a refresh token for a new pair of tokens.
func (h httpHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var current Tokens
	if !h.decode(w, r, &current) {
		return
	}
	tokens, err := h.service.RefreshTokens(r.Context(), current)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(tokens)
}

// GetAuthenticatedUser answers with the user behind the access token.
func (h httpHandler) GetAuthenticatedUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetAuthenticatedUser(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(user)
}
