package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection holding the entries in MongoDB.
const CollectionName = "appointment_logs"

type mongoEntry struct {
	ID             string                 `bson:"_id"`
	Action         string                 `bson:"action"`
	Description    string                 `bson:"description"`
	AffectedCount  int64                  `bson:"affectedCount"`
	AppointmentIDs []string               `bson:"appointmentIds"`
	Metadata       map[string]interface{} `bson:"metadata"`
	CreatedAt      time.Time              `bson:"createdAt"`
}

type mongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a Store over the given collection.
func NewMongoStore(collection *mongo.Collection) Store {
	return &mongoStore{collection: collection}
}

func (m mongoStore) Append(ctx context.Context, entry Entry) error {
	ids := entry.AppointmentIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := m.collection.InsertOne(ctx, mongoEntry{
		ID:             entry.UUID.String(),
		Action:         entry.Action,
		Description:    entry.Description,
		AffectedCount:  entry.AffectedCount,
		AppointmentIDs: ids,
		Metadata:       entry.Metadata,
		CreatedAt:      entry.CreatedAt,
	})
	return err
}

func (m mongoStore) List(ctx context.Context, action string, limit int) ([]*Entry, error) {
	filter := bson.M{}
	if action != "" {
		filter["action"] = action
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []mongoEntry
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &Entry{
			UUID:           id,
			Action:         doc.Action,
			Description:    doc.Description,
			AffectedCount:  doc.AffectedCount,
			AppointmentIDs: doc.AppointmentIDs,
			Metadata:       doc.Metadata,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return entries, nil
}
