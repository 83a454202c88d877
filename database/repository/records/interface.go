package recordsRepo

import (
	"context"

	"brightcall/database"
	"brightcall/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type CallRecordRepository interface {
	Create(ctx context.Context, record models.CallRecord) (string, error)
	GetByID(ctx context.Context, id string) (*models.CallRecord, error)
	GetByCorrelationID(ctx context.Context, correlationID string) ([]models.CallRecord, error)
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns a new CallRecordRepository instance using MongoDB.
func NewMongoRecordRepo() CallRecordRepository {
	db := database.MongoClient.Database("brightcall")
	return &mongoRecordRepo{
		coll: db.Collection("call_records"),
	}
}
