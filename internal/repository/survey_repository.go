package repository

import (
	"context"
	"fmt"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateSurvey persists a new survey
func (repo *Repository) CreateSurvey(ctx context.Context, survey *entity.Survey) error {
	survey.CreatedAt = survey.CreatedAt.UTC()

	if err := repo.withContext(ctx).Create(survey).Error; err != nil {
		repo.logger.Error("error create survey",
			zap.String("survey_id", survey.ID.String()),
			zap.Error(err))
		return classify(err)
	}

	return nil
}

// GetSurvey retrieves a survey by its ID
//
// Returns entity.ErrNotFound when no survey has that ID
func (repo *Repository) GetSurvey(ctx context.Context, ID uuid.UUID) (*entity.Survey, error) {
	var survey entity.Survey

	if err := repo.withContext(ctx).Where("id = ?", ID).First(&survey).Error; err != nil {
		repo.logger.Error("error get survey",
			zap.String("survey_id", ID.String()),
			zap.Error(err))
		return nil, classify(err)
	}

	return &survey, nil
}

// ListSurveysByOwner returns the owner's surveys, newest first
func (repo *Repository) ListSurveysByOwner(ctx context.Context, ownerID string) ([]entity.Survey, error) {
	var surveys []entity.Survey

	res := repo.withContext(ctx).
		Where("created_by = ?", ownerID).
		Order("created_at DESC").
		Find(&surveys)
	if err := res.Error; err != nil {
		repo.logger.Error("error list surveys",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return nil, classify(err)
	}

	return surveys, nil
}

// AppendResponse adds responseID to the survey's response list unless it is
// already there. The survey row is read with SELECT ... FOR UPDATE so
// concurrent appends to one survey serialize instead of overwriting each
// other.
func (repo *Repository) AppendResponse(ctx context.Context, surveyID uuid.UUID, responseID string) error {
	err := repo.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey entity.Survey
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("id = ?", surveyID).
			First(&survey).Error
		if err != nil {
			return err
		}

		if survey.Responses.Contains(responseID) {
			return nil
		}

		responses := append(survey.Responses, responseID)
		return tx.Model(&entity.Survey{}).
			Where("id = ?", surveyID).
			Update("responses", responses).Error
	})
	if err != nil {
		repo.logger.Error("error append response to survey",
			zap.String("survey_id", surveyID.String()),
			zap.String("response_id", responseID),
			zap.Error(err))
		return classify(err)
	}

	return nil
}

// SetResponses replaces the survey's response list
func (repo *Repository) SetResponses(ctx context.Context, surveyID uuid.UUID, responseIDs []string) error {
	err := repo.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Survey{}).Where("id = ?", surveyID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&entity.Survey{}).
			Where("id = ?", surveyID).
			Update("responses", entity.StringList(responseIDs)).Error
	})
	if err != nil {
		repo.logger.Error("error set survey responses",
			zap.String("survey_id", surveyID.String()),
			zap.Error(err))
		return classify(err)
	}

	return nil
}

// DeleteSurvey removes the survey document only, responses are handled by
// the caller.
func (repo *Repository) DeleteSurvey(ctx context.Context, surveyID uuid.UUID) error {
	res := repo.withContext(ctx).Where("id = ?", surveyID).Delete(&entity.Survey{})

	if err := res.Error; err != nil {
		repo.logger.Error("error delete survey",
			zap.String("survey_id", surveyID.String()),
			zap.Error(err))
		return classify(err)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: survey %s", entity.ErrNotFound, surveyID)
	}

	return nil
}
