// Package entity defines the core data structures used throughout the application
package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FillPathTemplate is the public path respondents open to fill a survey.
const FillPathTemplate = "/fill/%s"

type (
	// Survey is a questionnaire extracted from an uploaded document
	Survey struct {
		ID        uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
		Questions StringList `gorm:"type:text;not null" json:"questions"`
		CreatedBy string     `gorm:"size:128;index;not null" json:"createdBy"`
		CreatedAt time.Time  `json:"createdAt"`
		ExpiresAt *time.Time `json:"expiresAt"`
		Responses StringList `gorm:"type:text" json:"responses"` // response labels, best-effort index
	}

	// SurveySummary is the dashboard view of a survey
	SurveySummary struct {
		Survey        *Survey `json:"survey"`
		Expired       bool    `json:"expired"`
		FillPath      string  `json:"fillPath"`
		ResponseCount int     `json:"responseCount"`
	}
)

// NewSurvey returns a survey ready to persist. Questions are stored exactly
// as given; an empty list or a blank question is rejected.
func NewSurvey(questions []string, ownerID string, expiresAt *time.Time, now time.Time) (*Survey, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: survey must have at least one question", ErrValidation)
	}

	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("%w: question %d is blank", ErrValidation, i)
		}
	}

	clean := make(StringList, len(questions))
	copy(clean, questions)

	return &Survey{
		ID:        uuid.New(),
		Questions: clean,
		CreatedBy: ownerID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Responses: StringList{},
	}, nil
}

func (s *Survey) Validate() error {
	if s.ID == uuid.Nil {
		return errors.New("survey ID can not be nil")
	}
	if s.CreatedBy == "" {
		return errors.New("owner ID can not be empty")
	}
	if len(s.Questions) == 0 {
		return errors.New("survey must have questions")
	}
	return nil
}

// IsExpired reports whether now is strictly after expiresAt. A survey without
// expiry never expires.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return now.After(*expiresAt)
}

func (s *Survey) Expired(now time.Time) bool {
	return IsExpired(s.ExpiresAt, now)
}

func (s *Survey) FillPath() string {
	return FillPath(s.ID)
}

func FillPath(id uuid.UUID) string {
	return fmt.Sprintf(FillPathTemplate, id.String())
}

// CheckAnswers verifies every answer index addresses one of the questions.
func (s *Survey) CheckAnswers(answers Answers) error {
	for i := range answers {
		if i < 0 || i >= len(s.Questions) {
			return fmt.Errorf("%w: question index %d out of range (survey has %d questions)",
				ErrValidation, i, len(s.Questions))
		}
	}
	return nil
}

func (s *Survey) OwnedBy(ownerID string) bool {
	return s.CreatedBy == ownerID
}

// Title is the first question shortened for selectors and report headers.
func (s *Survey) Title() string {
	if len(s.Questions) == 0 {
		return "Untitled"
	}
	return Truncate(s.Questions[0], 50)
}

// Truncate shortens text to max runes and marks the cut with "...".
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
