package service

import (
	"context"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSurveyRepository is a mock implementation of the SurveyRepository interface
type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) CreateSurvey(ctx context.Context, survey *entity.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) GetSurvey(ctx context.Context, id uuid.UUID) (*entity.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockSurveyRepository) ListSurveysByOwner(ctx context.Context, ownerID string) ([]entity.Survey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Survey), args.Error(1)
}

func (m *MockSurveyRepository) AppendResponse(ctx context.Context, surveyID uuid.UUID, responseID string) error {
	args := m.Called(ctx, surveyID, responseID)
	return args.Error(0)
}

func (m *MockSurveyRepository) SetResponses(ctx context.Context, surveyID uuid.UUID, responseIDs []string) error {
	args := m.Called(ctx, surveyID, responseIDs)
	return args.Error(0)
}

func (m *MockSurveyRepository) DeleteSurvey(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockResponseRepository is a mock implementation of the ResponseRepository interface
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) CreateResponse(ctx context.Context, response *entity.Response) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) ListResponsesBySurvey(ctx context.Context, surveyID uuid.UUID) ([]entity.Response, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Response), args.Error(1)
}

func (m *MockResponseRepository) ListResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID, since *time.Time) ([]entity.Response, error) {
	args := m.Called(ctx, surveyIDs, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Response), args.Error(1)
}

func (m *MockResponseRepository) CountResponsesBySurveys(ctx context.Context, surveyIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, surveyIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

func (m *MockResponseRepository) DeleteResponse(ctx context.Context, key uuid.UUID) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockPublisher is a mock implementation of the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(data any, event string) error {
	args := m.Called(data, event)
	return args.Error(0)
}

// MockCasher is a mock implementation of the Casher interface
type MockCasher struct {
	mock.Mock
}

func (m *MockCasher) AddToCash(ctx context.Context, key string, value any) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCasher) GetCashFor(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCasher) RemoveFromCash(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockObjectStore is a mock implementation of the ObjectStore interface
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockParser is a mock implementation of the DocumentParser interface
type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(filename string, data []byte) ([]string, error) {
	args := m.Called(filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mocks struct {
	surveys   *MockSurveyRepository
	responses *MockResponseRepository
	publisher *MockPublisher
	casher    *MockCasher
	objects   *MockObjectStore
	parser    *MockParser
}

var (
	testNow   = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	ownerView = &entity.Viewer{ID: "owner-1", Email: "owner@example.com", Location: time.UTC}
	otherView = &entity.Viewer{ID: "owner-2", Location: time.UTC}
)

func setupDeps() (Deps, Options, *mocks) {
	m := &mocks{
		surveys:   &MockSurveyRepository{},
		responses: &MockResponseRepository{},
		publisher: &MockPublisher{},
		casher:    &MockCasher{},
		objects:   &MockObjectStore{},
		parser:    &MockParser{},
	}

	deps := Deps{
		Surveys:   m.surveys,
		Responses: m.responses,
		Casher:    m.casher,
		Publisher: m.publisher,
		Objects:   m.objects,
		Parser:    m.parser,
	}

	opts := Options{
		BaseURL: "https://surveys.example.com/",
		Now:     func() time.Time { return testNow },
	}

	return deps, opts, m
}

func (m *mocks) assertExpectations(t mock.TestingT) {
	m.surveys.AssertExpectations(t)
	m.responses.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
	m.casher.AssertExpectations(t)
	m.objects.AssertExpectations(t)
	m.parser.AssertExpectations(t)
}

func ownedBy(owner string, questions ...string) *entity.Survey {
	return &entity.Survey{
		ID:        uuid.New(),
		Questions: entity.StringList(questions),
		CreatedBy: owner,
		CreatedAt: testNow.Add(-24 * time.Hour),
		Responses: entity.StringList{},
	}
}
