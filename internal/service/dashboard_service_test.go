package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Load_Yesterday(t *testing.T) {
	deps, opts, m := setupDeps()
	service := NewDashboardService(deps, opts)

	loc := time.FixedZone("UTC+3", 3*3600)
	viewer := &entity.Viewer{ID: "owner-1", Location: loc}

	survey := ownedBy("owner-1", "Which feature do you use most?")
	m.surveys.On("ListSurveysByOwner", mock.Anything, "owner-1").Return([]entity.Survey{*survey}, nil)

	// testNow is Monday 15:00 in UTC+3
	wantSince := time.Date(2026, 10, 18, 0, 0, 0, 0, loc)
	early := entity.Response{ID: "RESP-1-1", SurveyID: survey.ID, SubmittedAt: time.Date(2026, 10, 18, 0, 0, 0, 0, loc)}
	late := entity.Response{ID: "RESP-2-2", SurveyID: survey.ID, SubmittedAt: time.Date(2026, 10, 18, 23, 59, 0, 0, loc)}
	today := entity.Response{ID: "RESP-3-3", SurveyID: survey.ID, SubmittedAt: time.Date(2026, 10, 19, 0, 0, 0, 0, loc)}
	stale := entity.Response{ID: "RESP-4-4", SurveyID: survey.ID, SubmittedAt: time.Date(2026, 10, 17, 23, 59, 0, 0, loc)}

	m.responses.On("ListResponsesBySurveys", mock.Anything, []uuid.UUID{survey.ID}, mock.MatchedBy(func(since *time.Time) bool {
		return since != nil && since.Equal(wantSince)
	})).Return([]entity.Response{early, today, late, stale}, nil)
	m.responses.On("CountResponsesBySurveys", mock.Anything, []uuid.UUID{survey.ID}).
		Return(map[uuid.UUID]int{survey.ID: 7}, nil)

	dashboard, err := service.Load(context.Background(), viewer, entity.FilterYesterday)

	require.NoError(t, err)
	assert.Equal(t, entity.FilterYesterday, dashboard.Filter)
	require.Len(t, dashboard.Surveys, 1)
	assert.Equal(t, survey.FillPath(), dashboard.Surveys[0].FillPath)
	assert.Equal(t, 7, dashboard.Surveys[0].ResponseCount)

	require.Len(t, dashboard.Responses, 2)
	assert.Equal(t, "RESP-2-2", dashboard.Responses[0].Response.ID)
	assert.Equal(t, "RESP-1-1", dashboard.Responses[1].Response.ID)
	assert.Equal(t, "Which feature do you use most?", dashboard.Responses[0].SurveyTitle)
}

func TestDashboardService_Load_Batches(t *testing.T) {
	deps, opts, m := setupDeps()
	opts.InListLimit = 30
	service := NewDashboardService(deps, opts)

	surveys := make([]entity.Survey, 65)
	for i := range surveys {
		surveys[i] = *ownedBy("owner-1", "Q1")
	}
	m.surveys.On("ListSurveysByOwner", mock.Anything, "owner-1").Return(surveys, nil)

	var sizes []int
	m.responses.On("ListResponsesBySurveys", mock.Anything, mock.Anything, mock.MatchedBy(func(since *time.Time) bool {
		return since == nil
	})).Run(func(args mock.Arguments) {
		sizes = append(sizes, len(args.Get(1).([]uuid.UUID)))
	}).Return([]entity.Response{
		{ID: "RESP-1-1", SubmittedAt: testNow.Add(-time.Hour)},
	}, nil)

	var countSizes []int
	m.responses.On("CountResponsesBySurveys", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		countSizes = append(countSizes, len(args.Get(1).([]uuid.UUID)))
	}).Return(map[uuid.UUID]int{}, nil)

	dashboard, err := service.Load(context.Background(), ownerView, entity.FilterAll)

	require.NoError(t, err)
	assert.Equal(t, []int{30, 30, 5}, sizes)
	assert.Equal(t, []int{30, 30, 5}, countSizes)
	assert.Len(t, dashboard.Surveys, 65)
	assert.Len(t, dashboard.Responses, 3)
}

func TestDashboardService_Load_NoSurveys(t *testing.T) {
	deps, opts, m := setupDeps()
	service := NewDashboardService(deps, opts)

	m.surveys.On("ListSurveysByOwner", mock.Anything, "owner-1").Return([]entity.Survey{}, nil)

	dashboard, err := service.Load(context.Background(), ownerView, "")

	require.NoError(t, err)
	assert.Equal(t, entity.FilterAll, dashboard.Filter)
	assert.Empty(t, dashboard.Surveys)
	assert.Empty(t, dashboard.Responses)
	m.responses.AssertNotCalled(t, "ListResponsesBySurveys", mock.Anything, mock.Anything, mock.Anything)
	m.responses.AssertNotCalled(t, "CountResponsesBySurveys", mock.Anything, mock.Anything)
}

func TestDashboardService_Load_CountError(t *testing.T) {
	deps, opts, m := setupDeps()
	service := NewDashboardService(deps, opts)

	survey := ownedBy("owner-1", "Q1")
	m.surveys.On("ListSurveysByOwner", mock.Anything, "owner-1").Return([]entity.Survey{*survey}, nil)
	m.responses.On("ListResponsesBySurveys", mock.Anything, mock.Anything, mock.Anything).Return([]entity.Response{}, nil)
	m.responses.On("CountResponsesBySurveys", mock.Anything, mock.Anything).Return(nil, entity.ErrStore)

	_, err := service.Load(context.Background(), ownerView, entity.FilterAll)
	assert.True(t, errors.Is(err, entity.ErrStore))
}

func TestDashboardService_Load_Errors(t *testing.T) {
	deps, opts, m := setupDeps()
	service := NewDashboardService(deps, opts)

	_, err := service.Load(context.Background(), ownerView, "lastMonth")
	assert.True(t, errors.Is(err, entity.ErrValidation))

	_, err = service.Load(context.Background(), nil, entity.FilterAll)
	assert.True(t, errors.Is(err, entity.ErrForbidden))

	m.surveys.AssertNotCalled(t, "ListSurveysByOwner", mock.Anything, mock.Anything)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2}}, chunk([]int{1, 2}, 2))
}
