// Package service holds the survey, response, report and dashboard use cases.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/Koyo-os/docusurvey/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultInListLimit       = 30
	defaultDeleteConcurrency = 8
	defaultMaxScanBytes      = 20 << 20
)

type (
	// Deps are the collaborators shared by every service. Casher, Publisher,
	// Objects and Metrics may be nil.
	Deps struct {
		Surveys   SurveyRepository
		Responses ResponseRepository
		Casher    Casher
		Publisher Publisher
		Objects   ObjectStore
		Parser    DocumentParser
		Metrics   *metrics.Metrics
		Logger    *logger.Logger
	}

	Options struct {
		// BaseURL prefixes the fill path in share links and QR codes.
		BaseURL           string
		InListLimit       int
		DeleteConcurrency int
		MaxScanBytes      int64
		CacheTimeout      time.Duration
		Now               func() time.Time
	}
)

func (o Options) withDefaults() Options {
	if o.InListLimit <= 0 {
		o.InListLimit = defaultInListLimit
	}
	if o.DeleteConcurrency <= 0 {
		o.DeleteConcurrency = defaultDeleteConcurrency
	}
	if o.MaxScanBytes <= 0 {
		o.MaxScanBytes = defaultMaxScanBytes
	}
	if o.CacheTimeout <= 0 {
		o.CacheTimeout = 2 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	return d
}

// publish emits an event after the store write has succeeded. A broker
// failure is logged and never fails the operation.
func (d Deps) publish(payload any, routingKey string) {
	if d.Publisher == nil {
		return
	}

	if err := d.Publisher.Publish(payload, routingKey); err != nil {
		d.Logger.Warn("error publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err))
	}
}

func requireViewer(viewer *entity.Viewer) error {
	if viewer == nil || viewer.ID == "" {
		return fmt.Errorf("%w: authentication required", entity.ErrForbidden)
	}
	return nil
}

// ownedSurvey loads the survey and checks that viewer created it.
func ownedSurvey(ctx context.Context, repo SurveyRepository, viewer *entity.Viewer, id uuid.UUID) (*entity.Survey, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	survey, err := repo.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	if !survey.OwnedBy(viewer.ID) {
		return nil, fmt.Errorf("%w: survey %s belongs to another user", entity.ErrForbidden, id)
	}

	return survey, nil
}
