package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/b-open-io/stopclock/internal/utils"
)

type MongoStore struct {
	db       *mongo.Database
	capacity int64
}

// NewMongoStore connects to MongoDB. The database name is taken from the
// connection string and defaults to "stopclock".
func NewMongoStore(connString string, capacity int) (*MongoStore, error) {
	slog.Info("Connecting to MongoDB stop store", "url", utils.SanitizeConnectionString(connString))
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	client, err := mongo.Connect(options.Client().ApplyURI(connString))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(context.Background(), nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := "stopclock"
	if cs, err := connstring.ParseAndValidate(connString); err == nil && cs.Database != "" {
		dbName = cs.Database
	}

	return &MongoStore{db: client.Database(dbName), capacity: int64(capacity)}, nil
}

func (m *MongoStore) Push(ctx context.Context, ts int64) (Stop, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := m.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": "stops"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return Stop{}, fmt.Errorf("failed to allocate stop id: %w", err)
	}

	stop := Stop{ID: counter.Seq, LastStopTs: ts}
	stops := m.db.Collection("stops")
	if _, err := stops.InsertOne(ctx, stop); err != nil {
		return Stop{}, fmt.Errorf("failed to insert stop: %w", err)
	}
	if _, err := stops.DeleteMany(ctx, bson.M{"_id": bson.M{"$lte": stop.ID - m.capacity}}); err != nil {
		return Stop{}, fmt.Errorf("failed to trim stops: %w", err)
	}
	return stop, nil
}

func (m *MongoStore) Last(ctx context.Context) (Stop, error) {
	var stop Stop
	err := m.db.Collection("stops").FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}),
	).Decode(&stop)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Stop{}, ErrEmpty
	}
	return stop, err
}

func (m *MongoStore) List(ctx context.Context) ([]Stop, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoStore) Since(ctx context.Context, id int64) ([]Stop, error) {
	return m.find(ctx, bson.M{"_id": bson.M{"$gt": id}})
}

func (m *MongoStore) find(ctx context.Context, filter bson.M) ([]Stop, error) {
	cursor, err := m.db.Collection("stops").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	stops := make([]Stop, 0, m.capacity)
	if err := cursor.All(ctx, &stops); err != nil {
		return nil, err
	}
	return stops, nil
}

// Close disconnects from the MongoDB database
func (m *MongoStore) Close() error {
	if m.db != nil {
		return m.db.Client().Disconnect(context.Background())
	}
	return nil
}
