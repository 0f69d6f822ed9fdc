package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const qrSize = 256

// SurveyService manages the survey lifecycle from creation to cascade delete.
type SurveyService struct {
	deps Deps
	opts Options
}

func NewSurveyService(deps Deps, opts Options) *SurveyService {
	return &SurveyService{
		deps: deps.withDefaults(),
		opts: opts.withDefaults(),
	}
}

// CreateSurvey stores a new survey owned by viewer. Blank questions are
// dropped, at least one must remain.
func (s *SurveyService) CreateSurvey(ctx context.Context, viewer *entity.Viewer, questions []string, expiresAt *time.Time) (*entity.Survey, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiry must be in the future", entity.ErrValidation)
	}

	survey, err := entity.NewSurvey(questions, viewer.ID, expiresAt, now)
	if err != nil {
		return nil, err
	}

	if err = s.deps.Surveys.CreateSurvey(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to create survey in repository: %w", err)
	}

	s.cache(ctx, survey)
	s.deps.Metrics.SurveyCreated()
	s.deps.publish(entity.SurveyRef{SurveyID: survey.ID.String()}, entity.EventSurveyCreated)

	s.deps.Logger.Info("survey created",
		zap.String("survey_id", survey.ID.String()),
		zap.String("owner_id", viewer.ID),
		zap.Int("questions", len(survey.Questions)))

	return survey, nil
}

// CreateSurveyFromDocument extracts the questions from an uploaded document
// and creates the survey from them.
func (s *SurveyService) CreateSurveyFromDocument(ctx context.Context, viewer *entity.Viewer, filename string, data []byte, expiresAt *time.Time) (*entity.Survey, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	if s.deps.Parser == nil {
		return nil, errors.New("document parser is not configured")
	}

	questions, err := s.deps.Parser.Parse(filename, data)
	if err != nil {
		if !errors.Is(err, entity.ErrValidation) {
			err = fmt.Errorf("%w: %v", entity.ErrValidation, err)
		}
		return nil, err
	}

	return s.CreateSurvey(ctx, viewer, questions, expiresAt)
}

// GetSurvey reads through the cache. Cache failures fall back to the store.
func (s *SurveyService) GetSurvey(ctx context.Context, id uuid.UUID) (*entity.Survey, error) {
	if survey := s.cached(ctx, id); survey != nil {
		return survey, nil
	}

	survey, err := s.deps.Surveys.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, survey)

	return survey, nil
}

// FillSurvey returns the survey a respondent is about to answer. Existence is
// checked before expiry.
func (s *SurveyService) FillSurvey(ctx context.Context, id uuid.UUID) (*entity.Survey, error) {
	survey, err := s.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	if survey.Expired(s.opts.Now()) {
		return nil, fmt.Errorf("%w: survey %s", entity.ErrExpired, id)
	}

	return survey, nil
}

// ListSurveys returns the viewer's surveys, newest first.
func (s *SurveyService) ListSurveys(ctx context.Context, viewer *entity.Viewer) ([]entity.SurveySummary, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	surveys, err := s.deps.Surveys.ListSurveysByOwner(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	counts, err := countResponses(ctx, s.deps.Responses, surveyIDs(surveys), s.opts.InListLimit)
	if err != nil {
		return nil, err
	}

	return summarize(surveys, counts, s.opts.Now()), nil
}

// IsExpired reports whether a survey with the given expiry is closed now.
func (s *SurveyService) IsExpired(expiresAt *time.Time) bool {
	return entity.IsExpired(expiresAt, s.opts.Now())
}

// ShareLink is the absolute URL respondents open.
func (s *SurveyService) ShareLink(id uuid.UUID) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + entity.FillPath(id)
}

// QRCode renders the share link of an owned survey as a PNG.
func (s *SurveyService) QRCode(ctx context.Context, viewer *entity.Viewer, id uuid.UUID) ([]byte, error) {
	if _, err := ownedSurvey(ctx, s.deps.Surveys, viewer, id); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.ShareLink(id), qrcode.High, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	return png, nil
}

// DeleteSurvey removes the survey, its responses and their scans. Responses
// are deleted first; when any of them fails the survey is kept so the call
// can be repeated.
func (s *SurveyService) DeleteSurvey(ctx context.Context, viewer *entity.Viewer, id uuid.UUID) error {
	if _, err := ownedSurvey(ctx, s.deps.Surveys, viewer, id); err != nil {
		return err
	}

	responses, err := s.deps.Responses.ListResponsesBySurvey(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list survey responses: %w", err)
	}

	var (
		g      errgroup.Group
		failed atomic.Int64
	)
	g.SetLimit(s.opts.DeleteConcurrency)

	for _, r := range responses {
		g.Go(func() error {
			err := s.deps.Responses.DeleteResponse(ctx, r.Key)
			if err == nil || errors.Is(err, entity.ErrNotFound) {
				return nil
			}

			failed.Add(1)
			s.deps.Logger.Error("error delete response",
				zap.String("survey_id", id.String()),
				zap.String("response_id", r.ID),
				zap.Error(err))
			return err
		})
	}

	if err = g.Wait(); err != nil {
		return fmt.Errorf("%w: %d of %d responses were not deleted, survey %s kept",
			entity.ErrStore, failed.Load(), len(responses), id)
	}

	s.deleteScans(ctx, responses)

	if err = s.deps.Surveys.DeleteSurvey(ctx, id); err != nil {
		return fmt.Errorf("failed to delete survey from repository: %w", err)
	}

	s.evict(ctx, id)
	s.deps.Metrics.SurveyDeleted()
	s.deps.publish(entity.SurveyRef{SurveyID: id.String()}, entity.EventSurveyDeleted)

	s.deps.Logger.Info("survey deleted",
		zap.String("survey_id", id.String()),
		zap.Int("responses", len(responses)))

	return nil
}

// Reconcile rebuilds the survey's response index from the response store,
// ordered by submission time.
func (s *SurveyService) Reconcile(ctx context.Context, id uuid.UUID) error {
	responses, err := s.deps.Responses.ListResponsesBySurvey(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list survey responses: %w", err)
	}

	sort.SliceStable(responses, func(i, j int) bool {
		return responses[i].SubmittedAt.Before(responses[j].SubmittedAt)
	})

	ids := make([]string, 0, len(responses))
	seen := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		ids = append(ids, r.ID)
	}

	if err = s.deps.Surveys.SetResponses(ctx, id, ids); err != nil {
		return fmt.Errorf("failed to rebuild survey responses: %w", err)
	}

	s.evict(ctx, id)

	s.deps.Logger.Info("survey responses reconciled",
		zap.String("survey_id", id.String()),
		zap.Int("responses", len(ids)))

	return nil
}

func (s *SurveyService) deleteScans(ctx context.Context, responses []entity.Response) {
	if s.deps.Objects == nil {
		return
	}

	for _, r := range responses {
		if r.ScanKey == nil {
			continue
		}

		if err := s.deps.Objects.Delete(ctx, *r.ScanKey); err != nil {
			s.deps.Logger.Warn("error delete scan, object left behind",
				zap.String("response_id", r.ID),
				zap.String("key", *r.ScanKey),
				zap.Error(err))
		}
	}
}

func (s *SurveyService) cache(ctx context.Context, survey *entity.Survey) {
	if s.deps.Casher == nil {
		return
	}

	data, err := json.Marshal(survey)
	if err != nil {
		s.deps.Logger.Error("error marshal survey for cache", zap.Error(err))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	if err = s.deps.Casher.AddToCash(cctx, survey.ID.String(), data); err != nil {
		s.deps.Logger.Warn("error cache survey",
			zap.String("survey_id", survey.ID.String()),
			zap.Error(err))
	}
}

func (s *SurveyService) cached(ctx context.Context, id uuid.UUID) *entity.Survey {
	if s.deps.Casher == nil {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	data, err := s.deps.Casher.GetCashFor(cctx, id.String())
	if err != nil {
		return nil
	}

	survey := new(entity.Survey)
	if err = json.Unmarshal(data, survey); err != nil {
		s.deps.Logger.Warn("error decode cached survey",
			zap.String("survey_id", id.String()),
			zap.Error(err))
		return nil
	}

	return survey
}

func (s *SurveyService) evict(ctx context.Context, id uuid.UUID) {
	if s.deps.Casher == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	if err := s.deps.Casher.RemoveFromCash(cctx, id.String()); err != nil {
		s.deps.Logger.Warn("error evict survey from cache",
			zap.String("survey_id", id.String()),
			zap.Error(err))
	}
}

// summarize takes response counts from the responses store, not from the
// survey's label list, which is only kept best effort.
func summarize(surveys []entity.Survey, counts map[uuid.UUID]int, now time.Time) []entity.SurveySummary {
	out := make([]entity.SurveySummary, 0, len(surveys))
	for i := range surveys {
		s := &surveys[i]
		out = append(out, entity.SurveySummary{
			Survey:        s,
			Expired:       s.Expired(now),
			FillPath:      s.FillPath(),
			ResponseCount: counts[s.ID],
		})
	}
	return out
}

func surveyIDs(surveys []entity.Survey) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(surveys))
	for _, survey := range surveys {
		ids = append(ids, survey.ID)
	}
	return ids
}

func countResponses(ctx context.Context, responses ResponseRepository, ids []uuid.UUID, limit int) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ids))
	for _, batch := range chunk(ids, limit) {
		found, err := responses.CountResponsesBySurveys(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to count responses: %w", err)
		}
		for id, n := range found {
			counts[id] = n
		}
	}
	return counts, nil
}
