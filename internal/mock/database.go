// Package mock provides a sqlmock backed database.Connection for the repository and handler tests.
package mock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// Connection implements database.Connection over sqlmock. Expectations are registered on SQLMock.
type Connection struct {
	db      *sql.DB
	SQLMock sqlmock.Sqlmock
}

// MustCreateConnectionMock creates a Connection, panicking if sqlmock cannot be set up.
func MustCreateConnectionMock() Connection {
	db, sqlMock, err := sqlmock.New()
	if err != nil {
		panic(err)
	}
	return Connection{db: db, SQLMock: sqlMock}
}

func (m Connection) DB() *sql.DB {
	return m.db
}

func (m Connection) CreateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Second)
}

func (m Connection) Close() {
	_ = m.db.Close()
}

// DBResultOption registers one expectation on the mocked connection.
type DBResultOption func(dbConn Connection)

// MockDBResults registers the given expectations, in order.
func MockDBResults(dbConn Connection, opts ...DBResultOption) {
	for _, opt := range opts {
		opt(dbConn)
	}
}

// anyArgs matches argCount arguments of any value.
func anyArgs(argCount int) []driver.Value {
	args := make([]driver.Value, argCount)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

// expectQuery expects the literal query with argCount arguments.
func expectQuery(dbConn Connection, query string, argCount int) *sqlmock.ExpectedQuery {
	return dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(anyArgs(argCount)...)
}

// expectExec expects the literal statement with argCount arguments.
func expectExec(dbConn Connection, query string, argCount int) *sqlmock.ExpectedExec {
	return dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(query)).WithArgs(anyArgs(argCount)...)
}

// WithQueryResult answers the query with the given rows.
func WithQueryResult(query string, argCount int, rows *sqlmock.Rows) DBResultOption {
	return func(dbConn Connection) {
		expectQuery(dbConn, query, argCount).WillReturnRows(rows)
	}
}

// WithQueryError fails the query with the given error.
func WithQueryError(query string, argCount int, err error) DBResultOption {
	return func(dbConn Connection) {
		expectQuery(dbConn, query, argCount).WillReturnError(err)
	}
}

// WithExecResult answers the statement with the given result, usually sqlmock.NewResult.
func WithExecResult(query string, argCount int, result driver.Result) DBResultOption {
	return func(dbConn Connection) {
		expectExec(dbConn, query, argCount).WillReturnResult(result)
	}
}

// WithExecError fails the statement with the given error.
func WithExecError(query string, argCount int, err error) DBResultOption {
	return func(dbConn Connection) {
		expectExec(dbConn, query, argCount).WillReturnError(err)
	}
}

// WithQueryArgs answers the query with the given rows, only if it was called with args. An arg may
// be a plain value, a sqlmock.Argument, DateArg or InstantArg.
func WithQueryArgs(query string, args []driver.Value, rows *sqlmock.Rows) DBResultOption {
	return func(dbConn Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(args...).WillReturnRows(rows)
	}
}

// WithExecArgs answers the statement with the given result, only if it was called with args.
func WithExecArgs(query string, args []driver.Value, result driver.Result) DBResultOption {
	return func(dbConn Connection) {
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(query)).WithArgs(args...).WillReturnResult(result)
	}
}

// DateArg matches a time.Time argument at UTC midnight of the "YYYY-MM-DD" date.
type DateArg string

func (d DateArg) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	return t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) && t.Format("2006-01-02") == string(d)
}

// InstantArg matches a time.Time argument at the same instant, whatever its location.
type InstantArg time.Time

func (i InstantArg) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && t.Equal(time.Time(i))
}
