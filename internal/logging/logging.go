// Package logging contains the structured logger used by the whole system and helpers
// to write entries in a uniform way.
package logging

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates a logger writing JSON entries to the given writer. Unknown levels fall back to info.
func New(out io.Writer, level string) *zerolog.Logger {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsedLevel = zerolog.InfoLevel
	}
	logger := zerolog.New(out).Level(parsedLevel).With().Timestamp().Logger()
	return &logger
}

// StdLogger adapts the given logger to the standard library one, as required by http.Server.
func StdLogger(logger *zerolog.Logger) *log.Logger {
	return log.New(logger, "", 0)
}

// PrintlnInfo writes an info entry.
func PrintlnInfo(logger *zerolog.Logger, v ...interface{}) {
	logger.Info().Msg(fmt.Sprint(v...))
}

// PrintlnWarn writes a warning entry.
func PrintlnWarn(logger *zerolog.Logger, v ...interface{}) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

// PrintlnError writes an error entry.
func PrintlnError(logger *zerolog.Logger, v ...interface{}) {
	logger.Error().Msg(fmt.Sprint(v...))
}

// PrintlnRequestError writes an error entry tagged with the request id of the given request.
func PrintlnRequestError(logger *zerolog.Logger, r *http.Request, err error) {
	logger.Error().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Err(err).
		Msg("request failed")
}

// RequestLogger writes one entry per served request.
func RequestLogger(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("remote_ip", r.RemoteAddr).
				Msg("request")
		})
	}
}
