package service

import (
	"context"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
)

type (
	SurveyRepository interface {
		CreateSurvey(ctx context.Context, survey *entity.Survey) error
		GetSurvey(ctx context.Context, id uuid.UUID) (*entity.Survey, error)
		ListSurveysByOwner(ctx context.Context, ownerID string) ([]entity.Survey, error)
		AppendResponse(ctx context.Context, surveyID uuid.UUID, responseID string) error
		SetResponses(ctx context.Context, surveyID uuid.UUID, responseIDs []string) error
		DeleteSurvey(ctx context.Context, id uuid.UUID) error
	}

	ResponseRepository interface {
		CreateResponse(ctx context.Context, response *entity.Response) error
		ListResponsesBySurvey(ctx context.Context, surveyID uuid.UUID) ([]entity.Response, error)
		ListResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID, since *time.Time) ([]entity.Response, error)
		CountResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID) (map[uuid.UUID]int, error)
		DeleteResponse(ctx context.Context, key uuid.UUID) error
	}

	Publisher interface {
		Publish(payload any, routingKey string) error
	}

	Casher interface {
		AddToCash(ctx context.Context, key string, payload any) error
		GetCashFor(ctx context.Context, key string) ([]byte, error)
		RemoveFromCash(ctx context.Context, key string) error
	}

	ObjectStore interface {
		Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
		Delete(ctx context.Context, key string) error
	}

	DocumentParser interface {
		Parse(filename string, data []byte) ([]string, error)
	}
)
