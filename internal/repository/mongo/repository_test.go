package mongo

import (
	"testing"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSurveyDocument_RoundTrip(t *testing.T) {
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	survey := &entity.Survey{
		ID:        uuid.New(),
		Questions: entity.StringList{"Q1", "Q2"},
		CreatedBy: "owner-1",
		CreatedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		ExpiresAt: &expiry,
	}

	doc := toSurveyDocument(survey)
	assert.Equal(t, []string{}, doc.Responses, "responses must be an array, never null")

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded surveyDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := decoded.toEntity()
	require.NoError(t, err)
	assert.Equal(t, survey.ID, got.ID)
	assert.Equal(t, survey.Questions, got.Questions)
	assert.Equal(t, entity.StringList{}, got.Responses)
	assert.True(t, expiry.Equal(*got.ExpiresAt))
}

func TestResponseDocument_RoundTrip(t *testing.T) {
	url := "https://cdn.example.com/scans/PHYS-1-1/a.png"
	response := &entity.Response{
		Key:             uuid.New(),
		ID:              "PHYS-1-1",
		SurveyID:        uuid.New(),
		Answers:         entity.Answers{0: "yes", 3: "no"},
		SubmittedAt:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Source:          entity.SourcePhysicalUpload,
		PhysicalScanURL: &url,
	}

	raw, err := bson.Marshal(toResponseDocument(response))
	require.NoError(t, err)

	var decoded responseDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string]string{"0": "yes", "3": "no"}, decoded.Answers)

	got, err := decoded.toEntity()
	require.NoError(t, err)
	assert.Equal(t, response.Key, got.Key)
	assert.Equal(t, response.Answers, got.Answers)
	assert.Equal(t, url, *got.PhysicalScanURL)
	assert.Nil(t, got.ScanKey)
}

func TestResponseDocument_Malformed(t *testing.T) {
	_, err := responseDocument{Key: "nope"}.toEntity()
	assert.Error(t, err)

	_, err = responseDocument{Key: uuid.NewString(), SurveyID: uuid.NewString(), Answers: map[string]string{"x": "y"}}.toEntity()
	assert.Error(t, err)
}

func TestResponsesFilter(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	filter := responsesFilter([]uuid.UUID{a, b}, nil)
	assert.Equal(t, bson.M{"surveyId": bson.M{"$in": []string{a.String(), b.String()}}}, filter)

	since := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	filter = responsesFilter([]uuid.UUID{a}, &since)
	assert.Equal(t, bson.M{"$gte": since}, filter["submittedAt"])
}

func TestCountPipeline(t *testing.T) {
	a := uuid.New()

	pipeline := countPipeline([]uuid.UUID{a})
	require.Len(t, pipeline, 2)

	assert.Equal(t, "$match", pipeline[0][0].Key)
	assert.Equal(t, bson.M{"surveyId": bson.M{"$in": []string{a.String()}}}, pipeline[0][0].Value)

	assert.Equal(t, "$group", pipeline[1][0].Key)
	group := pipeline[1][0].Value.(bson.D)
	assert.Equal(t, "$surveyId", group[0].Value)
}
