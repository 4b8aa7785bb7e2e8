package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

const historyCollection = "translations"

// HistoryRepository stores translation records in MongoDB
type HistoryRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates the repository. A positive retention adds a TTL
// index so old records are removed by MongoDB itself.
func NewHistoryRepository(ctx context.Context, db *mongo.Database, retention time.Duration, logger *zap.Logger) (*HistoryRepository, error) {
	collection := db.Collection(historyCollection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if retention > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create history indexes: %w", err)
	}
	logger.Info("History indexes created", zap.Duration("retention", retention))

	return &HistoryRepository{
		collection: collection,
		logger:     logger,
	}, nil
}

// Save inserts a record
func (r *HistoryRepository) Save(ctx context.Context, record *entities.TranslationRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if record.SessionID == "" {
		return errors.New("record session ID cannot be empty")
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to save translation record: %w", err)
	}
	return nil
}

// ListRecent returns the newest records of a session first
func (r *HistoryRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entities.TranslationRecord, error) {
	if limit <= 0 {
		return []*entities.TranslationRecord{}, nil
	}

	filter := bson.M{"session_id": sessionID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list translation records", zap.Error(err), zap.String("sessionID", sessionID))
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]*entities.TranslationRecord, 0, limit)
	for cursor.Next(ctx) {
		var record entities.TranslationRecord
		if err := cursor.Decode(&record); err != nil {
			r.logger.Error("Failed to decode translation record", zap.Error(err))
			continue
		}
		records = append(records, &record)
	}

	if err := cursor.Err(); err != nil {
		r.logger.Error("Cursor error", zap.Error(err))
		return nil, err
	}

	return records, nil
}
