// Package database wraps the SQL connection shared by the repositories and maps query rows into
// structs tagged with dbfield.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"clinic-booking/internal/configs"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	uniqueViolationCode = "23505"

	queryTimeout    = 5 * time.Second
	pingTimeout     = 10 * time.Second
	connMaxLifetime = 3 * time.Minute
	maxOpenConns    = 20
)

// Connection holds a DB instance.
type Connection interface {
	DB() *sql.DB
	CreateContext(ctx context.Context) (context.Context, context.CancelFunc)
	Close()
}

type defaultConnection struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewConnection opens the configured database, either with lib/pq ("postgres") or with pgx ("pgx"),
// and checks it is reachable.
func NewConnection(config configs.Config, logger *zerolog.Logger) (Connection, error) {
	db, err := sql.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("could not create a connection: %w", err)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxOpenConns(maxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}
	logger.Info().Str("driver", config.DatabaseDriver()).Msg("database connection established")
	return &defaultConnection{db: db, logger: logger}, nil
}

func (d *defaultConnection) DB() *sql.DB {
	return d.db
}

// CreateContext bounds a single query with the default timeout.
func (d *defaultConnection) CreateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

func (d *defaultConnection) Close() {
	if err := d.db.Close(); err != nil {
		d.logger.Error().Err(err).Msg("could not close the database connection")
		return
	}
	d.logger.Info().Msg("database connection released successfully")
}

// CloseRows closes the given rows.
func CloseRows(rows *sql.Rows) {
	_ = rows.Close()
}

// IsUniqueViolation checks if the given error was raised by a unique constraint, whichever driver
// is in use.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

// fieldIndexes caches, per struct type, the field index of every dbfield tag.
var fieldIndexes sync.Map

func indexFields(modelType reflect.Type) map[string]int {
	if cached, ok := fieldIndexes.Load(modelType); ok {
		return cached.(map[string]int)
	}
	indexes := make(map[string]int, modelType.NumField())
	for i := 0; i < modelType.NumField(); i++ {
		if column := modelType.Field(i).Tag.Get("dbfield"); column != "" {
			indexes[column] = i
		}
	}
	fieldIndexes.Store(modelType, indexes)
	return indexes
}

// TransformRow scans the current row into model, a pointer to a struct. Each column goes to the
// field whose dbfield tag names it. Columns without a field are read and dropped.
func TransformRow(rows *sql.Rows, model interface{}) error {
	value := reflect.ValueOf(model)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cannot transform a row into %T", model)
	}
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	elem := value.Elem()
	indexes := indexFields(elem.Type())
	targets := make([]interface{}, len(columns))
	for i, column := range columns {
		if field, ok := indexes[column]; ok {
			targets[i] = elem.Field(field).Addr().Interface()
			continue
		}
		targets[i] = new(interface{})
	}
	return rows.Scan(targets...)
}
