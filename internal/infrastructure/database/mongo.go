package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/logger"
)

// MongoClient owns the document store connection
type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	timeout  time.Duration
}

// NewMongoClient connects to MONGO_URI and pings the primary
func NewMongoClient(ctx context.Context, cfg *config.Config) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(cfg.MongoMaxPool).
		SetServerSelectionTimeout(cfg.MongoTimeout).
		SetTimeout(cfg.MongoQueryWait).
		// member references written by other services may be embedded documents
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("Connected to MongoDB database %s", cfg.MongoDatabase)
	return &MongoClient{
		Client:   client,
		Database: client.Database(cfg.MongoDatabase),
		timeout:  cfg.MongoTimeout,
	}, nil
}

// Ping checks the primary is reachable
func (m *MongoClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *MongoClient) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
