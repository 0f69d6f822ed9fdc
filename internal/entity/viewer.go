package entity

import (
	"fmt"
	"strings"
	"time"
)

// Viewer is the authenticated person on whose behalf an operation runs.
// Location is the viewer's local zone, used for every calendar computation.
type Viewer struct {
	ID       string
	Email    string
	Location *time.Location
}

func NewViewer(id, email string, loc *time.Location) (*Viewer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: viewer id is required", ErrValidation)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Viewer{ID: id, Email: email, Location: loc}, nil
}

// Local converts t into the viewer's zone.
func (v *Viewer) Local(t time.Time) time.Time {
	if v == nil || v.Location == nil {
		return t
	}
	return t.In(v.Location)
}
