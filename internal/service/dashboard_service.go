package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
)

type (
	// ResponseCard is a response shown on the dashboard with its survey title.
	ResponseCard struct {
		Response    entity.Response `json:"response"`
		SurveyTitle string          `json:"surveyTitle"`
	}

	Dashboard struct {
		Filter    entity.DateFilter      `json:"filter"`
		Surveys   []entity.SurveySummary `json:"surveys"`
		Responses []ResponseCard         `json:"responses"`
	}
)

type DashboardService struct {
	deps Deps
	opts Options
}

func NewDashboardService(deps Deps, opts Options) *DashboardService {
	return &DashboardService{
		deps: deps.withDefaults(),
		opts: opts.withDefaults(),
	}
}

// Load returns the viewer's surveys and the responses to them that match
// filter, evaluated in the viewer's time zone. Responses are fetched in
// batches of InListLimit survey ids with the lower bound applied by the store;
// the complete filter is then applied in process.
func (s *DashboardService) Load(ctx context.Context, viewer *entity.Viewer, filter entity.DateFilter) (*Dashboard, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	filter, err := entity.ParseDateFilter(string(filter))
	if err != nil {
		return nil, err
	}

	now := viewer.Local(s.opts.Now())

	surveys, err := s.deps.Surveys.ListSurveysByOwner(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	titles := make(map[uuid.UUID]string, len(surveys))
	for _, survey := range surveys {
		titles[survey.ID] = survey.Title()
	}
	ids := surveyIDs(surveys)

	start, _ := filter.Bounds(now)

	var responses []entity.Response
	for _, batch := range chunk(ids, s.opts.InListLimit) {
		found, err := s.deps.Responses.ListResponsesBySurveys(ctx, batch, start)
		if err != nil {
			return nil, fmt.Errorf("failed to load dashboard responses: %w", err)
		}
		responses = append(responses, found...)
	}

	counts, err := countResponses(ctx, s.deps.Responses, ids, s.opts.InListLimit)
	if err != nil {
		return nil, err
	}

	matched := entity.FilterResponses(responses, filter, now)
	cards := make([]ResponseCard, 0, len(matched))
	for _, r := range matched {
		cards = append(cards, ResponseCard{Response: r, SurveyTitle: titles[r.SurveyID]})
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Response.SubmittedAt.After(cards[j].Response.SubmittedAt)
	})

	return &Dashboard{
		Filter:    filter,
		Surveys:   summarize(surveys, counts, now),
		Responses: cards,
	}, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
