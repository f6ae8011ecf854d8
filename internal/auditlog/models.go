package auditlog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionUpdateMissedAppointments tags the entries written by the No-show sweep.
const ActionUpdateMissedAppointments = "UPDATE_MISSED_APPOINTMENTS"

// Metadata holds the free-form details of an entry. It is stored as JSONB.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// Entry is an append-only audit record of an operation over appointments.
type Entry struct {
	UUID           uuid.UUID `json:"uuid"`
	Action         string    `json:"action"`
	Description    string    `json:"description"`
	AffectedCount  int64     `json:"affectedCount"`
	AppointmentIDs []string  `json:"appointmentIds"`
	Metadata       Metadata  `json:"metadata"`
	CreatedAt      time.Time `json:"createdAt"`
}
