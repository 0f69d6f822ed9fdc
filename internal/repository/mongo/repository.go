// Package mongo stores surveys and responses as MongoDB documents. It offers
// the same operations as the GORM repository.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	SurveysCollection   = "surveys"
	ResponsesCollection = "responses"
)

type Repository struct {
	client    *mongo.Client
	surveys   *mongo.Collection
	responses *mongo.Collection
	logger    *logger.Logger
}

// Connect dials uri and returns a repository bound to database.
func Connect(ctx context.Context, uri, database string, logger *logger.Logger) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connect mongo: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error ping mongo: %w", err)
	}

	return Init(client, database, logger), nil
}

func Init(client *mongo.Client, database string, logger *logger.Logger) *Repository {
	db := client.Database(database)

	return &Repository{
		client:    client,
		surveys:   db.Collection(SurveysCollection),
		responses: db.Collection(ResponsesCollection),
		logger:    logger,
	}
}

// EnsureIndexes creates the lookup indexes used by the dashboard queries.
func (repo *Repository) EnsureIndexes(ctx context.Context) error {
	if _, err := repo.surveys.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("error create survey index: %w", err)
	}

	if _, err := repo.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("error create response index: %w", err)
	}

	return nil
}

func (repo *Repository) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return repo.client.Ping(ctx, readpref.Primary()) == nil
}

func (repo *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return repo.client.Disconnect(ctx)
}

func classify(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", entity.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", entity.ErrStore, err)
}

func (repo *Repository) CreateSurvey(ctx context.Context, survey *entity.Survey) error {
	if _, err := repo.surveys.InsertOne(ctx, toSurveyDocument(survey)); err != nil {
		repo.logger.Error("error insert survey",
			zap.String("survey_id", survey.ID.String()),
			zap.Error(err))
		return classify(err)
	}

	return nil
}

func (repo *Repository) GetSurvey(ctx context.Context, ID uuid.UUID) (*entity.Survey, error) {
	var doc surveyDocument

	if err := repo.surveys.FindOne(ctx, bson.M{"_id": ID.String()}).Decode(&doc); err != nil {
		repo.logger.Error("error find survey",
			zap.String("survey_id", ID.String()),
			zap.Error(err))
		return nil, classify(err)
	}

	return doc.toEntity()
}

func (repo *Repository) ListSurveysByOwner(ctx context.Context, ownerID string) ([]entity.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := repo.surveys.Find(ctx, bson.M{"createdBy": ownerID}, opts)
	if err != nil {
		repo.logger.Error("error find surveys",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return nil, classify(err)
	}

	var docs []surveyDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	surveys := make([]entity.Survey, 0, len(docs))
	for _, doc := range docs {
		s, err := doc.toEntity()
		if err != nil {
			repo.logger.Warn("skip malformed survey document",
				zap.String("survey_id", doc.ID),
				zap.Error(err))
			continue
		}
		surveys = append(surveys, *s)
	}

	return surveys, nil
}

// AppendResponse uses $addToSet, so repeating a label is a no-op.
func (repo *Repository) AppendResponse(ctx context.Context, surveyID uuid.UUID, responseID string) error {
	res, err := repo.surveys.UpdateOne(ctx,
		bson.M{"_id": surveyID.String()},
		bson.M{"$addToSet": bson.M{"responses": responseID}},
	)
	if err != nil {
		repo.logger.Error("error append response to survey",
			zap.String("survey_id", surveyID.String()),
			zap.String("response_id", responseID),
			zap.Error(err))
		return classify(err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: survey %s", entity.ErrNotFound, surveyID)
	}

	return nil
}

func (repo *Repository) SetResponses(ctx context.Context, surveyID uuid.UUID, responseIDs []string) error {
	if responseIDs == nil {
		responseIDs = []string{}
	}

	res, err := repo.surveys.UpdateOne(ctx,
		bson.M{"_id": surveyID.String()},
		bson.M{"$set": bson.M{"responses": responseIDs}},
	)
	if err != nil {
		repo.logger.Error("error set survey responses",
			zap.String("survey_id", surveyID.String()),
			zap.Error(err))
		return classify(err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: survey %s", entity.ErrNotFound, surveyID)
	}

	return nil
}

func (repo *Repository) DeleteSurvey(ctx context.Context, surveyID uuid.UUID) error {
	res, err := repo.surveys.DeleteOne(ctx, bson.M{"_id": surveyID.String()})
	if err != nil {
		repo.logger.Error("error delete survey",
			zap.String("survey_id", surveyID.String()),
			zap.Error(err))
		return classify(err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: survey %s", entity.ErrNotFound, surveyID)
	}

	return nil
}

func (repo *Repository) CreateResponse(ctx context.Context, response *entity.Response) error {
	if _, err := repo.responses.InsertOne(ctx, toResponseDocument(response)); err != nil {
		repo.logger.Error("error insert response",
			zap.String("response_id", response.ID),
			zap.Error(err))
		return classify(err)
	}

	return nil
}

func (repo *Repository) ListResponsesBySurvey(ctx context.Context, surveyID uuid.UUID) ([]entity.Response, error) {
	return repo.findResponses(ctx, bson.M{"surveyId": surveyID.String()})
}

func (repo *Repository) ListResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID, since *time.Time) ([]entity.Response, error) {
	if len(surveyIDs) == 0 {
		return []entity.Response{}, nil
	}

	return repo.findResponses(ctx, responsesFilter(surveyIDs, since))
}

func (repo *Repository) CountResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(surveyIDs))
	if len(surveyIDs) == 0 {
		return counts, nil
	}

	cursor, err := repo.responses.Aggregate(ctx, countPipeline(surveyIDs))
	if err != nil {
		repo.logger.Error("error count responses", zap.Error(err))
		return nil, classify(err)
	}

	var rows []struct {
		SurveyID string `bson:"_id"`
		Total    int    `bson:"total"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, classify(err)
	}

	for _, row := range rows {
		id, err := uuid.Parse(row.SurveyID)
		if err != nil {
			continue
		}
		counts[id] = row.Total
	}

	return counts, nil
}

func (repo *Repository) DeleteResponse(ctx context.Context, key uuid.UUID) error {
	res, err := repo.responses.DeleteOne(ctx, bson.M{"_id": key.String()})
	if err != nil {
		repo.logger.Error("error delete response",
			zap.String("response_key", key.String()),
			zap.Error(err))
		return classify(err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: response %s", entity.ErrNotFound, key)
	}

	return nil
}

func (repo *Repository) findResponses(ctx context.Context, filter bson.M) ([]entity.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})

	cursor, err := repo.responses.Find(ctx, filter, opts)
	if err != nil {
		repo.logger.Error("error find responses", zap.Error(err))
		return nil, classify(err)
	}

	var docs []responseDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	responses := make([]entity.Response, 0, len(docs))
	for _, doc := range docs {
		r, err := doc.toEntity()
		if err != nil {
			repo.logger.Warn("skip malformed response document",
				zap.String("response_key", doc.Key),
				zap.Error(err))
			continue
		}
		responses = append(responses, *r)
	}

	return responses, nil
}

func responsesFilter(surveyIDs []uuid.UUID, since *time.Time) bson.M {
	ids := make([]string, len(surveyIDs))
	for i, id := range surveyIDs {
		ids[i] = id.String()
	}

	filter := bson.M{"surveyId": bson.M{"$in": ids}}
	if since != nil {
		filter["submittedAt"] = bson.M{"$gte": *since}
	}

	return filter
}

func countPipeline(surveyIDs []uuid.UUID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: responsesFilter(surveyIDs, nil)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$surveyId"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}
