package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DatasetCollection is the collection every dataset document goes to.
const DatasetCollection = "datasets"

// DatasetDocument is the stored form of one dataset.
type DatasetDocument struct {
	ID        string       `bson:"_id"`
	RunID     string       `bson:"run_id"`
	Name      string       `bson:"name"`
	Columns   []string     `bson:"columns"`
	RowCount  int          `bson:"row_count"`
	Rows      []models.Row `bson:"rows"`
	CreatedAt time.Time    `bson:"created_at"`
}

// inserter is the part of [mongo.Collection] the sink uses.
type inserter interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoSink inserts one [DatasetDocument] per dataset.
type MongoSink struct {
	client     *mongo.Client
	collection inserter
	runID      string
	logger     *log.Logger
}

// ConnectMongo opens a client against uri and returns a sink writing to database.
func ConnectMongo(ctx context.Context, uri, database, runID string, logger *log.Logger) (*MongoSink, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("%w: mongo.uri and mongo.database are required", shared.ErrInvalidConfig)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to mongo: %v", shared.ErrServiceUnavailable, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: failed to ping mongo: %v", shared.ErrServiceUnavailable, err)
	}

	sink := newMongoSink(client.Database(database).Collection(DatasetCollection), runID, logger)
	sink.client = client
	return sink, nil
}

func newMongoSink(collection inserter, runID string, logger *log.Logger) *MongoSink {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MongoSink{collection: collection, runID: runID, logger: logger}
}

func (s *MongoSink) Name() string {
	return "mongo"
}

func (s *MongoSink) Write(ctx context.Context, dataset string, table *models.Table) error {
	if dataset == "" {
		return fmt.Errorf("%w: dataset name", shared.ErrMissingArgument)
	}
	if table == nil {
		return fmt.Errorf("%w: nil table", shared.ErrInvalidArgument)
	}

	doc := DatasetDocument{
		ID:        shared.GenerateID(),
		RunID:     s.runID,
		Name:      dataset,
		Columns:   table.Columns,
		RowCount:  table.Len(),
		Rows:      table.Rows,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo sink: failed to insert %s: %w", dataset, err)
	}

	s.logger.Info("inserted dataset", "dataset", dataset, "rows", doc.RowCount, "id", doc.ID)
	return nil
}

// Close disconnects the client opened by [ConnectMongo].
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
