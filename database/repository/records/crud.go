package recordsRepo

import (
	"context"
	"time"

	"brightcall/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Create inserts a finished call record and returns its ID.
func (r *mongoRecordRepo) Create(ctx context.Context, record models.CallRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.EndedAt.IsZero() {
		record.EndedAt = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, record)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetByID returns a call record by its ID.
func (r *mongoRecordRepo) GetByID(ctx context.Context, id string) (*models.CallRecord, error) {
	var record models.CallRecord
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByCorrelationID fetches all records tied to one triggered call.
func (r *mongoRecordRepo) GetByCorrelationID(ctx context.Context, correlationID string) ([]models.CallRecord, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"correlation_id": correlationID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.CallRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
