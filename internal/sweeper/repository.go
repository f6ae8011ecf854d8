package sweeper

import (
	"context"
	"time"

	"clinic-booking/internal/database"
)

const (
	missedPredicate = "status = 'Booked' AND (date < $1 OR (date = $1 AND time < $2))"

	findMissedQuery = "SELECT uuid FROM tb_appointment WHERE " + missedPredicate + " ORDER BY date, time"
	markMissedQuery = "UPDATE tb_appointment SET status = 'No-show', updated_at = $3 WHERE " + missedPredicate
)

// Repository reads and updates the appointments whose time has passed while still Booked.
type Repository interface {

	// FindMissed lists the UUIDs of the Booked appointments dated before today, or today before the
	// given "HH:mm" clock.
	FindMissed(ctx context.Context, today time.Time, clock string) ([]string, error)

	// MarkMissed moves to No-show every appointment FindMissed would list at the time of the update,
	// and returns how many changed.
	MarkMissed(ctx context.Context, today time.Time, clock string, at time.Time) (int64, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// NewRepository creates a new Repository.
func NewRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindMissed(ctx context.Context, today time.Time, clock string) ([]string, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findMissedQuery, today, clock)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d defaultRepository) MarkMissed(ctx context.Context, today time.Time, clock string, at time.Time) (int64, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, markMissedQuery, today, clock, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
