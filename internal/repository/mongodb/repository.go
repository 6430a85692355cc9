package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmops/internal/domain/models"
)

const (
	dailyReportsCollection = "daily_reports"
	suggestionsCollection  = "ai_suggestions"
)

// Repository defines the interface for the report and suggestion archive.
type Repository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
	LatestDailyReports(ctx context.Context, limit int64) ([]models.DailyReport, error)
	SaveSuggestion(ctx context.Context, suggestion models.Suggestion) error
	RecentSuggestions(ctx context.Context, limit int64) ([]models.Suggestion, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
	}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SaveDailyReport upserts the snapshot for the report's day, so rerunning the
// job for the same day replaces the earlier snapshot.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.collection(dailyReportsCollection).ReplaceOne(ctx,
		bson.M{"date": report.Date},
		report,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily report: %w", err)
	}
	return nil
}

// LatestDailyReports returns the most recent snapshots, newest first.
func (r *MongoDBRepository) LatestDailyReports(ctx context.Context, limit int64) ([]models.DailyReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection(dailyReportsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find daily reports: %w", err)
	}

	var reports []models.DailyReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode daily reports: %w", err)
	}
	return reports, nil
}

// SaveSuggestion archives an AI reply.
func (r *MongoDBRepository) SaveSuggestion(ctx context.Context, suggestion models.Suggestion) error {
	if _, err := r.collection(suggestionsCollection).InsertOne(ctx, suggestion); err != nil {
		return fmt.Errorf("failed to insert suggestion: %w", err)
	}
	return nil
}

// RecentSuggestions returns archived AI replies, newest first.
func (r *MongoDBRepository) RecentSuggestions(ctx context.Context, limit int64) ([]models.Suggestion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection(suggestionsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find suggestions: %w", err)
	}

	var suggestions []models.Suggestion
	if err := cursor.All(ctx, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return suggestions, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
