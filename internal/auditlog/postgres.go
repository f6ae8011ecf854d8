package auditlog

import (
	"context"

	"clinic-booking/internal/database"

	"github.com/lib/pq"
)

const (
	insertEntryQuery = "INSERT INTO tb_appointment_log (uuid, action, description, affected_count, appointment_ids, metadata, created_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7)"
	listEntriesQuery = "SELECT uuid, action, description, affected_count, appointment_ids, metadata, created_at FROM tb_appointment_log " +
		"WHERE ($1 = '' OR action = $1) ORDER BY created_at DESC, id DESC LIMIT $2"
)

type postgresStore struct {
	dbConn database.Connection
}

// NewPostgresStore creates a Store over the tb_appointment_log table.
func NewPostgresStore(dbConn database.Connection) Store {
	return &postgresStore{dbConn: dbConn}
}

func (p postgresStore) Append(ctx context.Context, entry Entry) error {
	ctx, cancel := p.dbConn.CreateContext(ctx)
	defer cancel()
	ids := entry.AppointmentIDs
	if ids == nil {
		ids = []string{}
	}
	params := []interface{}{
		entry.UUID.String(),
		entry.Action,
		entry.Description,
		entry.AffectedCount,
		pq.Array(ids),
		entry.Metadata,
		entry.CreatedAt,
	}
	_, err := p.dbConn.DB().ExecContext(ctx, insertEntryQuery, params...)
	return err
}

func (p postgresStore) List(ctx context.Context, action string, limit int) ([]*Entry, error) {
	ctx, cancel := p.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := p.dbConn.DB().QueryContext(ctx, listEntriesQuery, action, limit)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	entries := make([]*Entry, 0)
	for rows.Next() {
		entry := new(Entry)
		var ids pq.StringArray
		if err = rows.Scan(&entry.UUID, &entry.Action, &entry.Description, &entry.AffectedCount, &ids, &entry.Metadata, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.AppointmentIDs = ids
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
