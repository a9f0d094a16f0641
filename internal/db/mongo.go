package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tender_spider/internal/config"
	"tender_spider/internal/logger"
	"tender_spider/internal/models"
)

// MongoDB stores one document per seen record, keyed by "bucket/identity".
type MongoDB struct {
	client *mongo.Client
	seen   *mongo.Collection
	log    logger.Logger
}

func NewMongoDB(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (*MongoDB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	d := &MongoDB{
		client: client,
		seen:   client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		log:    log,
	}
	d.createIndexes(ctx)
	return d, nil
}

func (d *MongoDB) createIndexes(ctx context.Context) {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "bucket", Value: 1}, {Key: "first_seen", Value: 1}},
	}
	if _, err := d.seen.Indexes().CreateOne(ctx, indexModel); err != nil {
		d.log.Warn("Create seen index failed", logger.Error(err))
	}
}

func (d *MongoDB) Load(ctx context.Context) (models.SeenState, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := d.seen.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find seen records: %w", err)
	}
	defer cursor.Close(ctx)

	state := models.SeenState{}
	for cursor.Next(ctx) {
		var rec models.SeenRecord
		if err := cursor.Decode(&rec); err != nil {
			continue
		}
		if state[rec.Bucket] == nil {
			state[rec.Bucket] = map[string]string{}
		}
		state[rec.Bucket][rec.Identity] = rec.FirstSeen
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return state, nil
}

// Save upserts every record and removes the ones no longer in state.
func (d *MongoDB) Save(ctx context.Context, state models.SeenState) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	records := Records(state)
	ids := make([]string, 0, len(records))
	writes := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": rec.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"bucket":     rec.Bucket,
				"identity":   rec.Identity,
				"first_seen": rec.FirstSeen,
			}}).
			SetUpsert(true))
	}

	if len(writes) > 0 {
		if _, err := d.seen.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("upsert seen records: %w", err)
		}
	}
	if _, err := d.seen.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}}); err != nil {
		return fmt.Errorf("delete evicted records: %w", err)
	}
	return nil
}

func (d *MongoDB) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}
