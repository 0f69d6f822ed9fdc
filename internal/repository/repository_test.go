package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := Init(db, logger.NewNop())
	require.NoError(t, repo.AutoMigrate())
	t.Cleanup(func() { repo.Close() })

	return repo
}

func mustSurvey(t *testing.T, owner string, questions ...string) *entity.Survey {
	t.Helper()

	s, err := entity.NewSurvey(questions, owner, nil, time.Now())
	require.NoError(t, err)
	return s
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.Error(t, err)
}

func TestRepository_SurveyRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	survey := mustSurvey(t, "owner-1", "Q1", "Q2")
	survey.ExpiresAt = &expiry

	require.NoError(t, repo.CreateSurvey(ctx, survey))

	got, err := repo.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)

	assert.Equal(t, survey.ID, got.ID)
	assert.Equal(t, entity.StringList{"Q1", "Q2"}, got.Questions)
	assert.Empty(t, got.Responses)
	assert.Equal(t, "owner-1", got.CreatedBy)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expiry.Equal(*got.ExpiresAt))

	assert.True(t, repo.IsHealthy())
}

func TestRepository_GetSurveyNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetSurvey(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestRepository_ListSurveysByOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	older := mustSurvey(t, "owner-1", "old")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := mustSurvey(t, "owner-1", "new")
	other := mustSurvey(t, "owner-2", "foreign")

	for _, s := range []*entity.Survey{older, newer, other} {
		require.NoError(t, repo.CreateSurvey(ctx, s))
	}

	surveys, err := repo.ListSurveysByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, surveys, 2)
	assert.Equal(t, newer.ID, surveys[0].ID)
	assert.Equal(t, older.ID, surveys[1].ID)

	none, err := repo.ListSurveysByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_AppendResponseIsSetUnion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	survey := mustSurvey(t, "owner-1", "Q1")
	require.NoError(t, repo.CreateSurvey(ctx, survey))

	require.NoError(t, repo.AppendResponse(ctx, survey.ID, "RESP-1-1"))
	require.NoError(t, repo.AppendResponse(ctx, survey.ID, "RESP-2-2"))
	require.NoError(t, repo.AppendResponse(ctx, survey.ID, "RESP-1-1"))

	got, err := repo.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StringList{"RESP-1-1", "RESP-2-2"}, got.Responses)

	err = repo.AppendResponse(ctx, uuid.New(), "RESP-3-3")
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestRepository_AppendResponseConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	survey := mustSurvey(t, "owner-1", "Q1")
	require.NoError(t, repo.CreateSurvey(ctx, survey))

	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.AppendResponse(ctx, survey.ID, fmt.Sprintf("RESP-%d-%d", i, i))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, got.Responses, writers)
	for i := 0; i < writers; i++ {
		assert.True(t, got.Responses.Contains(fmt.Sprintf("RESP-%d-%d", i, i)))
	}
}

func TestRepository_SetResponses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	survey := mustSurvey(t, "owner-1", "Q1")
	require.NoError(t, repo.CreateSurvey(ctx, survey))
	require.NoError(t, repo.AppendResponse(ctx, survey.ID, "stale"))

	require.NoError(t, repo.SetResponses(ctx, survey.ID, []string{"A", "B"}))

	got, err := repo.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StringList{"A", "B"}, got.Responses)

	err = repo.SetResponses(ctx, uuid.New(), nil)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestRepository_Responses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	s1 := uuid.New()
	s2 := uuid.New()
	s3 := uuid.New()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))

	newResponse := func(surveyID uuid.UUID, at time.Time) *entity.Response {
		r, err := entity.NewResponse(surveyID, entity.Answers{0: "a", 1: "b"}, entity.SourceDigital, at)
		require.NoError(t, err)
		require.NoError(t, repo.CreateResponse(ctx, r))
		return r
	}

	r1 := newResponse(s1, base.Add(-48*time.Hour))
	r2 := newResponse(s1, base)
	r3 := newResponse(s2, base.Add(-time.Hour))
	newResponse(s3, base)

	t.Run("by survey", func(t *testing.T) {
		got, err := repo.ListResponsesBySurvey(ctx, s1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, r2.Key, got[0].Key)
		assert.Equal(t, r1.Key, got[1].Key)
		assert.Equal(t, entity.Answers{0: "a", 1: "b"}, got[0].Answers)
		assert.Equal(t, entity.SourceDigital, got[0].Source)
	})

	t.Run("by survey set", func(t *testing.T) {
		got, err := repo.ListResponsesBySurveys(ctx, []uuid.UUID{s1, s2}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("by survey set since", func(t *testing.T) {
		since := base.Add(-2 * time.Hour)
		got, err := repo.ListResponsesBySurveys(ctx, []uuid.UUID{s1, s2}, &since)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, r2.Key, got[0].Key)
		assert.Equal(t, r3.Key, got[1].Key)
	})

	t.Run("empty set", func(t *testing.T) {
		got, err := repo.ListResponsesBySurveys(ctx, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("count by survey set", func(t *testing.T) {
		counts, err := repo.CountResponsesBySurveys(ctx, []uuid.UUID{s1, s2, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]int{s1: 2, s2: 1}, counts)

		counts, err = repo.CountResponsesBySurveys(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteResponse(ctx, r1.Key))

		err := repo.DeleteResponse(ctx, r1.Key)
		assert.True(t, errors.Is(err, entity.ErrNotFound))

		got, err := repo.ListResponsesBySurvey(ctx, s1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestRepository_PhysicalScanFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	r, err := entity.NewResponse(uuid.New(), entity.Answers{0: "x"}, entity.SourcePhysicalUpload, time.Now())
	require.NoError(t, err)

	url := "https://cdn.example.com/scans/x/page.png"
	key := "scans/x/page.png"
	r.PhysicalScanURL = &url
	r.ScanKey = &key

	require.NoError(t, repo.CreateResponse(ctx, r))

	got, err := repo.ListResponsesBySurvey(ctx, r.SurveyID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].PhysicalScanURL)
	assert.Equal(t, url, *got[0].PhysicalScanURL)
	assert.Equal(t, key, *got[0].ScanKey)
	assert.Equal(t, entity.SourcePhysicalUpload, got[0].Source)
}

func TestRepository_DeleteSurvey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	survey := mustSurvey(t, "owner-1", "Q1")
	require.NoError(t, repo.CreateSurvey(ctx, survey))

	require.NoError(t, repo.DeleteSurvey(ctx, survey.ID))

	_, err := repo.GetSurvey(ctx, survey.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	err = repo.DeleteSurvey(ctx, survey.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}
