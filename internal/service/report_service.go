package service

import (
	"context"
	"fmt"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/internal/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecentPreviewCount is how many responses a report previews.
const RecentPreviewCount = 5

// Report is the owner's view of a single survey.
type Report struct {
	Survey *entity.Survey    `json:"survey"`
	Stats  *entity.Stats     `json:"stats"`
	Recent []entity.Response `json:"recent"`
}

type ReportService struct {
	deps Deps
	opts Options
}

func NewReportService(deps Deps, opts Options) *ReportService {
	return &ReportService{
		deps: deps.withDefaults(),
		opts: opts.withDefaults(),
	}
}

// LoadResponses returns every response whose survey id matches, newest
// first. The survey's own response index is not consulted.
func (s *ReportService) LoadResponses(ctx context.Context, viewer *entity.Viewer, surveyID uuid.UUID) (*entity.Survey, []entity.Response, error) {
	survey, err := ownedSurvey(ctx, s.deps.Surveys, viewer, surveyID)
	if err != nil {
		return nil, nil, err
	}

	responses, err := s.deps.Responses.ListResponsesBySurvey(ctx, surveyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load responses: %w", err)
	}

	return survey, responses, nil
}

func (s *ReportService) Report(ctx context.Context, viewer *entity.Viewer, surveyID uuid.UUID) (*Report, error) {
	survey, responses, err := s.LoadResponses(ctx, viewer, surveyID)
	if err != nil {
		return nil, err
	}

	recent := responses
	if len(recent) > RecentPreviewCount {
		recent = recent[:RecentPreviewCount]
	}

	return &Report{
		Survey: survey,
		Stats:  s.stats(surveyID, responses),
		Recent: recent,
	}, nil
}

// Export renders the PDF report and returns its download name with the bytes.
func (s *ReportService) Export(ctx context.Context, viewer *entity.Viewer, surveyID uuid.UUID) (string, []byte, error) {
	survey, responses, err := s.LoadResponses(ctx, viewer, surveyID)
	if err != nil {
		return "", nil, err
	}

	if len(responses) == 0 {
		return "", nil, fmt.Errorf("%w: survey has no responses to export", entity.ErrValidation)
	}

	now := s.opts.Now()

	data, err := report.Render(survey, responses, s.stats(surveyID, responses), now, viewer.Location)
	if err != nil {
		s.deps.Logger.Error("error render report",
			zap.String("survey_id", surveyID.String()),
			zap.Error(err))
		return "", nil, err
	}

	s.deps.Metrics.ReportExported()

	return report.Filename(surveyID, now), data, nil
}

func (s *ReportService) stats(surveyID uuid.UUID, responses []entity.Response) *entity.Stats {
	stats := entity.ComputeStats(responses)
	if stats != nil && stats.Sources.Unrecognized > 0 {
		s.deps.Logger.Warn("responses with unrecognized source",
			zap.String("survey_id", surveyID.String()),
			zap.Int("count", stats.Sources.Unrecognized))
	}
	return stats
}
