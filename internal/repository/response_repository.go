package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateResponse persists a response. SubmittedAt is stored in UTC so range
// queries compare consistently on every dialect.
func (repo *Repository) CreateResponse(ctx context.Context, response *entity.Response) error {
	response.SubmittedAt = response.SubmittedAt.UTC()

	if err := repo.withContext(ctx).Create(response).Error; err != nil {
		repo.logger.Error("error create response",
			zap.String("response_id", response.ID),
			zap.String("survey_id", response.SurveyID.String()),
			zap.Error(err))
		return classify(err)
	}

	return nil
}

// ListResponsesBySurvey returns every response whose survey_id matches,
// newest first
func (repo *Repository) ListResponsesBySurvey(ctx context.Context, surveyID uuid.UUID) ([]entity.Response, error) {
	var responses []entity.Response

	res := repo.withContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("submitted_at DESC").
		Find(&responses)
	if err := res.Error; err != nil {
		repo.logger.Error("error list responses",
			zap.String("survey_id", surveyID.String()),
			zap.Error(err))
		return nil, classify(err)
	}

	return responses, nil
}

// ListResponsesBySurveys returns responses of any of the surveys submitted at
// or after since (when set), newest first. Callers keep len(surveyIDs) within
// their in-list budget.
func (repo *Repository) ListResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID, since *time.Time) ([]entity.Response, error) {
	if len(surveyIDs) == 0 {
		return []entity.Response{}, nil
	}

	var responses []entity.Response

	query := repo.withContext(ctx).Where("survey_id IN ?", surveyIDs)
	if since != nil {
		query = query.Where("submitted_at >= ?", since.UTC())
	}

	if err := query.Order("submitted_at DESC").Find(&responses).Error; err != nil {
		repo.logger.Error("error list responses for surveys",
			zap.Int("survey_count", len(surveyIDs)),
			zap.Error(err))
		return nil, classify(err)
	}

	return responses, nil
}

// CountResponsesBySurveys returns the number of stored responses per survey.
// Surveys without responses are absent from the map.
func (repo *Repository) CountResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(surveyIDs))
	if len(surveyIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SurveyID uuid.UUID
		Total    int
	}

	res := repo.withContext(ctx).
		Model(&entity.Response{}).
		Select("survey_id, COUNT(*) AS total").
		Where("survey_id IN ?", surveyIDs).
		Group("survey_id").
		Scan(&rows)
	if err := res.Error; err != nil {
		repo.logger.Error("error count responses for surveys",
			zap.Int("survey_count", len(surveyIDs)),
			zap.Error(err))
		return nil, classify(err)
	}

	for _, row := range rows {
		counts[row.SurveyID] = row.Total
	}

	return counts, nil
}

func (repo *Repository) DeleteResponse(ctx context.Context, key uuid.UUID) error {
	res := repo.withContext(ctx).Where("response_key = ?", key).Delete(&entity.Response{})

	if err := res.Error; err != nil {
		repo.logger.Error("error delete response",
			zap.String("response_key", key.String()),
			zap.Error(err))
		return classify(err)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: response %s", entity.ErrNotFound, key)
	}

	return nil
}
