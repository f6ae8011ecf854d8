package sweeper

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-booking/internal/auditlog"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/logging"
	"clinic-booking/internal/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	entries []auditlog.Entry
	err     error
}

func (m *memoryStore) Append(ctx context.Context, entry auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryStore) List(ctx context.Context, action string, limit int) ([]*auditlog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]*auditlog.Entry, 0, len(m.entries))
	for i := range m.entries {
		entries = append(entries, &m.entries[i])
	}
	return entries, nil
}

// noon is 2024-03-11 12:00 UTC.
func noon() time.Time {
	return time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
}

func missedRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"uuid"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func newTestSweeper(t *testing.T, store auditlog.Store, opts ...mock.DBResultOption) (*Sweeper, mock.Connection, *bytes.Buffer) {
	t.Helper()
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	dbConn := mock.MustCreateConnectionMock()
	mock.MockDBResults(dbConn, opts...)
	out := new(bytes.Buffer)
	return New(config, dbConn, store, logging.New(out, "debug"), WithClock(noon)), dbConn, out
}

func TestRunOnce(t *testing.T) {
	t.Run("should mark the missed appointments and write one entry", func(t *testing.T) {
		store := &memoryStore{}
		sweeper, dbConn, _ := newTestSweeper(t, store,
			mock.WithQueryResult(findMissedQuery, 2, missedRows("a1", "a2")),
			mock.WithExecResult(markMissedQuery, 3, sqlmock.NewResult(0, 2)),
		)

		result, err := sweeper.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &Result{Matched: 2, Modified: 2, AppointmentIDs: []string{"a1", "a2"}}, result)
		require.Len(t, store.entries, 1)
		entry := store.entries[0]
		assert.Equal(t, auditlog.ActionUpdateMissedAppointments, entry.Action)
		assert.Equal(t, "Updated missed appointments to No-show status", entry.Description)
		assert.Equal(t, int64(2), entry.AffectedCount)
		assert.Equal(t, []string{"a1", "a2"}, entry.AppointmentIDs)
		assert.Equal(t, "Booked", entry.Metadata["previousStatus"])
		assert.Equal(t, "No-show", entry.Metadata["newStatus"])
		assert.Equal(t, int64(2), entry.Metadata["matchedCount"])
		assert.Equal(t, int64(2), entry.Metadata["modifiedCount"])
		assert.Equal(t, "12:00", entry.Metadata["currentTime"])
		assert.Equal(t, noon(), entry.CreatedAt)
		assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
	})

	t.Run("should skip the update and the entry when nothing matched", func(t *testing.T) {
		store := &memoryStore{}
		sweeper, dbConn, _ := newTestSweeper(t, store,
			mock.WithQueryResult(findMissedQuery, 2, missedRows()),
		)

		result, err := sweeper.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Empty(t, store.entries)
		assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
	})

	t.Run("should do nothing on a second run right after the first", func(t *testing.T) {
		store := &memoryStore{}
		sweeper, dbConn, _ := newTestSweeper(t, store,
			mock.WithQueryResult(findMissedQuery, 2, missedRows("a1")),
			mock.WithExecResult(markMissedQuery, 3, sqlmock.NewResult(0, 1)),
			mock.WithQueryResult(findMissedQuery, 2, missedRows()),
		)

		first, err := sweeper.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.Modified)
		second, err := sweeper.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, second.Skipped)
		assert.Len(t, store.entries, 1)
		assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
	})

	t.Run("should log when fewer appointments changed than matched", func(t *testing.T) {
		store := &memoryStore{}
		sweeper, _, out := newTestSweeper(t, store,
			mock.WithQueryResult(findMissedQuery, 2, missedRows("a1", "a2")),
			mock.WithExecResult(markMissedQuery, 3, sqlmock.NewResult(0, 1)),
		)

		result, err := sweeper.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Matched)
		assert.Equal(t, int64(1), result.Modified)
		assert.Contains(t, out.String(), "fewer missed appointments modified than matched")
		require.Len(t, store.entries, 1)
		assert.Equal(t, int64(1), store.entries[0].AffectedCount)
	})

	t.Run("should fail when the update fails", func(t *testing.T) {
		store := &memoryStore{}
		sweeper, _, _ := newTestSweeper(t, store,
			mock.WithQueryResult(findMissedQuery, 2, missedRows("a1")),
			mock.WithExecError(markMissedQuery, 3, sql.ErrConnDone),
		)

		_, err := sweeper.RunOnce(context.Background())
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Empty(t, store.entries)
	})

	t.Run("should fail when the entry cannot be written", func(t *testing.T) {
		unavailable := errors.New("audit log unavailable")
		sweeper, _, _ := newTestSweeper(t, &memoryStore{err: unavailable},
			mock.WithQueryResult(findMissedQuery, 2, missedRows("a1")),
			mock.WithExecResult(markMissedQuery, 3, sqlmock.NewResult(0, 1)),
		)

		_, err := sweeper.RunOnce(context.Background())
		assert.ErrorIs(t, err, unavailable)
	})
}

func TestRunOnceWithLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewRedisLocker(client)
	config := configs.MustLoad("./../../test/testdata/config_valid.json")

	first, firstConn, _ := newTestSweeper(t, &memoryStore{},
		mock.WithQueryResult(findMissedQuery, 2, missedRows()),
	)
	WithLocker(locker)(first)
	second := New(config, mock.MustCreateConnectionMock(), &memoryStore{}, logging.New(&bytes.Buffer{}, "error"),
		WithClock(noon), WithLocker(locker))

	result, err := first.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Locked)
	assert.NoError(t, firstConn.SQLMock.ExpectationsWereMet())

	result, err = second.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Locked)

	mr.FastForward(config.SweepInterval())
	acquired, err := locker.Acquire(context.Background(), first.window(noon()), time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRunOnceLockUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.SetError("ERR redis unavailable")

	store := &memoryStore{}
	sweeper, _, out := newTestSweeper(t, store,
		mock.WithQueryResult(findMissedQuery, 2, missedRows()),
	)
	WithLocker(NewRedisLocker(client))(sweeper)

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, out.String(), "sweep lock unavailable")
}

type countingRepository struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRepository) FindMissed(ctx context.Context, today time.Time, clock string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, nil
}

func (c *countingRepository) MarkMissed(ctx context.Context, today time.Time, clock string, at time.Time) (int64, error) {
	return 0, errors.New("unexpected update")
}

func TestStart(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	repository := &countingRepository{}
	sweeper := New(config, mock.MustCreateConnectionMock(), &memoryStore{}, logging.New(&bytes.Buffer{}, "error"),
		WithClock(noon), WithInterval(10*time.Millisecond), WithRepository(repository))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		repository.mu.Lock()
		defer repository.mu.Unlock()
		return repository.calls >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after the context ended")
	}
}

func TestWindow(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	sweeper := New(config, mock.MustCreateConnectionMock(), &memoryStore{}, logging.New(&bytes.Buffer{}, "error"))

	morning := time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, sweeper.window(morning), sweeper.window(time.Date(2024, 3, 11, 11, 59, 0, 0, time.UTC)))
	assert.NotEqual(t, sweeper.window(morning), sweeper.window(evening))
}

func TestRunOnceInClinicTimezone(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_new_york.json")
	// 22:00 of the previous day in New York
	now := time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC)
	dbConn := mock.MustCreateConnectionMock()
	mock.MockDBResults(dbConn,
		mock.WithQueryArgs(findMissedQuery, []driver.Value{mock.DateArg("2024-03-10"), "22:00"}, missedRows("a1")),
		mock.WithExecArgs(markMissedQuery, []driver.Value{mock.DateArg("2024-03-10"), "22:00", mock.InstantArg(now)}, sqlmock.NewResult(0, 1)),
	)
	store := &memoryStore{}
	sweeper := New(config, dbConn, store, logging.New(new(bytes.Buffer), "debug"), WithClock(func() time.Time { return now }))

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Modified)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "22:00", store.entries[0].Metadata["currentTime"])
	assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
}
