// Package sweeper contains the periodic task that moves the appointments whose time has passed while
// still Booked to No-show.
package sweeper

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"clinic-booking/internal/appointment"
	"clinic-booking/internal/auditlog"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/metrics"
	"clinic-booking/internal/timeslot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const description = "Updated missed appointments to No-show status"

var tracer = otel.Tracer("clinic-booking/internal/sweeper")

// Result summarizes a sweep.
type Result struct {
	Matched        int64    `json:"matchedCount"`
	Modified       int64    `json:"modifiedCount"`
	AppointmentIDs []string `json:"appointmentIds"`

	// Skipped is set when no appointment matched, nothing was written then.
	Skipped bool `json:"skipped"`

	// Locked is set when another instance holds the current window.
	Locked bool `json:"locked"`
}

// Option determines the Functional Options used to create a new Sweeper.
type Option func(sweeper *Sweeper)

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) Option {
	return func(sweeper *Sweeper) {
		sweeper.now = now
	}
}

// WithInterval overrides the interval between two sweeps.
func WithInterval(interval time.Duration) Option {
	return func(sweeper *Sweeper) {
		sweeper.interval = interval
	}
}

// WithLocker makes the sweeper take the lock of the current window before running.
func WithLocker(locker Locker) Option {
	return func(sweeper *Sweeper) {
		sweeper.locker = locker
	}
}

// WithRepository overrides the repository built from the database connection.
func WithRepository(repository Repository) Option {
	return func(sweeper *Sweeper) {
		sweeper.repository = repository
	}
}

// Sweeper marks missed appointments as No-show, once per interval.
type Sweeper struct {
	repository Repository
	store      auditlog.Store
	locker     Locker
	logger     *zerolog.Logger
	location   *time.Location
	interval   time.Duration
	now        func() time.Time
}

// New creates a Sweeper reading the clinic timezone and the interval from the given config.
func New(config configs.Config, dbConn database.Connection, store auditlog.Store, logger *zerolog.Logger, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		repository: NewRepository(dbConn),
		store:      store,
		logger:     logger,
		location:   config.Location(),
		interval:   config.SweepInterval(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(sweeper)
	}
	return sweeper
}

// window names the interval the given instant falls in.
func (s *Sweeper) window(now time.Time) string {
	return strconv.FormatInt(now.Truncate(s.interval).Unix(), 10)
}

// RunOnce runs a single sweep.
//
// If no appointment matches, nothing is updated and no audit entry is written. A failure of the
// update or of the audit entry fails the run, there is no retry before the next interval.
func (s *Sweeper) RunOnce(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "sweeper.RunOnce")
	defer span.End()

	now := s.now().In(s.location)
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, s.window(now), s.interval)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("sweep lock unavailable, sweeping without it")
		case !acquired:
			metrics.ObserveSweep(metrics.SweepLocked, 0)
			span.SetAttributes(attribute.Bool("sweep.locked", true))
			s.logger.Debug().Str("window", s.window(now)).Msg("sweep window held by another instance")
			return &Result{Locked: true}, nil
		}
	}

	result, err := s.sweep(ctx, now)
	if err != nil {
		metrics.ObserveSweep(metrics.SweepFailed, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("sweep.matched", result.Matched),
		attribute.Int64("sweep.modified", result.Modified),
	)
	if result.Skipped {
		metrics.ObserveSweep(metrics.SweepSkipped, 0)
		return result, nil
	}
	metrics.ObserveSweep(metrics.SweepSucceeded, result.Modified)
	return result, nil
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) (*Result, error) {
	today := timeslot.DateOf(now)
	clock := timeslot.Clock(now)

	ids, err := s.repository.FindMissed(ctx, today, clock)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Debug().Str("currentTime", clock).Msg("no missed appointments")
		return &Result{Skipped: true, AppointmentIDs: ids}, nil
	}

	modified, err := s.repository.MarkMissed(ctx, today, clock, now)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	matched := int64(len(ids))
	if modified < matched {
		s.logger.Warn().
			Int64("matchedCount", matched).
			Int64("modifiedCount", modified).
			Msg("fewer missed appointments modified than matched")
	}

	entry := auditlog.Entry{
		UUID:           uuid.New(),
		Action:         auditlog.ActionUpdateMissedAppointments,
		Description:    description,
		AffectedCount:  modified,
		AppointmentIDs: ids,
		Metadata: auditlog.Metadata{
			"timestamp":      now,
			"previousStatus": string(appointment.StatusBooked),
			"newStatus":      string(appointment.StatusNoShow),
			"matchedCount":   matched,
			"modifiedCount":  modified,
			"currentTime":    clock,
		},
		CreatedAt: now,
	}
	if err = s.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}

	s.logger.Info().
		Int64("matchedCount", matched).
		Int64("modifiedCount", modified).
		Msg("missed appointments moved to No-show")
	return &Result{Matched: matched, Modified: modified, AppointmentIDs: ids}, nil
}

// Start sweeps right away and then once per interval, until the context ends. A failed sweep is
// logged and the next tick tries again.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info().Str("interval", s.interval.String()).Msg("starting missed appointments sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("missed appointments sweeper shutting down")
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Sweeper) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("missed appointments sweep failed")
	}
}
