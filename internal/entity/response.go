package entity

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tells through which channel a response was collected.
type Source string

const (
	SourceDigital        Source = "digital"
	SourcePhysicalUpload Source = "physical_upload"
)

const (
	DigitalLabelPrefix  = "RESP"
	PhysicalLabelPrefix = "PHYS"
)

func (s Source) Valid() bool {
	switch s {
	case SourceDigital, SourcePhysicalUpload:
		return true
	}
	return false
}

// LabelPrefix returns the prefix of human readable response ids for the source.
func (s Source) LabelPrefix() string {
	if s == SourcePhysicalUpload {
		return PhysicalLabelPrefix
	}
	return DigitalLabelPrefix
}

// Response is a single submission to a survey. Key is the storage identity,
// ID the RESP-/PHYS- label shown to people.
type Response struct {
	Key             uuid.UUID `gorm:"column:response_key;type:char(36);primaryKey" json:"key"`
	ID              string    `gorm:"size:64;index;not null" json:"id"`
	SurveyID        uuid.UUID `gorm:"type:char(36);index;not null" json:"surveyId"`
	Answers         Answers   `gorm:"type:text;not null" json:"answers"`
	SubmittedAt     time.Time `gorm:"index" json:"submittedAt"`
	Source          Source    `gorm:"size:32;not null" json:"source"`
	PhysicalScanURL *string   `json:"physicalScanUrl,omitempty"`
	ScanKey         *string   `json:"scanKey,omitempty"`
}

// NewLabel builds "<prefix>-<epochMillis>-<0..999>". It is a display label and
// can collide, the storage key is a UUID.
func NewLabel(source Source, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", source.LabelPrefix(), now.UnixMilli(), rand.IntN(1000))
}

// NewResponse validates the submission input and returns an unsaved response.
func NewResponse(surveyID uuid.UUID, answers Answers, source Source, now time.Time) (*Response, error) {
	if surveyID == uuid.Nil {
		return nil, fmt.Errorf("%w: Survey ID is required", ErrValidation)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: No answers to save", ErrValidation)
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrValidation, source)
	}

	return &Response{
		Key:         uuid.New(),
		ID:          NewLabel(source, now),
		SurveyID:    surveyID,
		Answers:     answers,
		SubmittedAt: now,
		Source:      source,
	}, nil
}

// ScanObjectKey is where the scan of a physical response is stored.
func ScanObjectKey(responseID, filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "scan"
	}
	return fmt.Sprintf("scans/%s/%s", responseID, name)
}
