package mongo

import (
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
)

type (
	surveyDocument struct {
		ID        string     `bson:"_id"`
		Questions []string   `bson:"questions"`
		CreatedBy string     `bson:"createdBy"`
		CreatedAt time.Time  `bson:"createdAt"`
		ExpiresAt *time.Time `bson:"expiresAt"`
		Responses []string   `bson:"responses"`
	}

	responseDocument struct {
		Key             string            `bson:"_id"`
		ID              string            `bson:"id"`
		SurveyID        string            `bson:"surveyId"`
		Answers         map[string]string `bson:"answers"`
		SubmittedAt     time.Time         `bson:"submittedAt"`
		Source          string            `bson:"source"`
		PhysicalScanURL *string           `bson:"physicalScanUrl,omitempty"`
		ScanKey         *string           `bson:"scanKey,omitempty"`
	}
)

func toSurveyDocument(s *entity.Survey) surveyDocument {
	responses := []string(s.Responses)
	if responses == nil {
		responses = []string{}
	}

	return surveyDocument{
		ID:        s.ID.String(),
		Questions: []string(s.Questions),
		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		Responses: responses,
	}
}

func (d surveyDocument) toEntity() (*entity.Survey, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}

	responses := entity.StringList(d.Responses)
	if responses == nil {
		responses = entity.StringList{}
	}

	return &entity.Survey{
		ID:        id,
		Questions: entity.StringList(d.Questions),
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
		Responses: responses,
	}, nil
}

func toResponseDocument(r *entity.Response) responseDocument {
	return responseDocument{
		Key:             r.Key.String(),
		ID:              r.ID,
		SurveyID:        r.SurveyID.String(),
		Answers:         r.Answers.Strings(),
		SubmittedAt:     r.SubmittedAt,
		Source:          string(r.Source),
		PhysicalScanURL: r.PhysicalScanURL,
		ScanKey:         r.ScanKey,
	}
}

func (d responseDocument) toEntity() (*entity.Response, error) {
	key, err := uuid.Parse(d.Key)
	if err != nil {
		return nil, err
	}

	surveyID, err := uuid.Parse(d.SurveyID)
	if err != nil {
		return nil, err
	}

	answers, err := entity.AnswersFromStrings(d.Answers)
	if err != nil {
		return nil, err
	}

	return &entity.Response{
		Key:             key,
		ID:              d.ID,
		SurveyID:        surveyID,
		Answers:         answers,
		SubmittedAt:     d.SubmittedAt,
		Source:          entity.Source(d.Source),
		PhysicalScanURL: d.PhysicalScanURL,
		ScanKey:         d.ScanKey,
	}, nil
}
