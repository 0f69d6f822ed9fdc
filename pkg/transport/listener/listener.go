package listener

import (
	"context"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/config"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reconcileTimeout = 30 * time.Second

// Reconciler rebuilds a survey's response index from the response store.
type Reconciler interface {
	Reconcile(ctx context.Context, surveyID uuid.UUID) error
}

type Listener struct {
	inputChan <-chan entity.Event
	logger    *logger.Logger
	service   Reconciler
	cfg       *config.Config
}

func Init(
	inputChan <-chan entity.Event,
	logger *logger.Logger,
	cfg *config.Config,
	service Reconciler,
) *Listener {
	return &Listener{
		inputChan: inputChan,
		service:   service,
		logger:    logger,
		cfg:       cfg,
	}
}

func (list *Listener) Listen(ctx context.Context) {
	for {
		select {
		case event, ok := <-list.inputChan:
			if !ok {
				list.logger.Info("input channel closed, stopping listener")
				return
			}
			list.handle(ctx, event)

		case <-ctx.Done():
			list.logger.Info("stopping listeners...")
			return
		}
	}
}

func (list *Listener) handle(ctx context.Context, event entity.Event) {
	switch event.Type {
	case list.cfg.Reqs.ReconcileRequestType, list.cfg.Reqs.OrphanedRequestType:
	default:
		list.logger.Debug("skip event", zap.String("event_type", event.Type))
		return
	}

	surveyID, err := event.SurveyID()
	if err != nil {
		list.logger.Error("error unmarshal event payload to survey ref",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	if err = list.service.Reconcile(ctx, surveyID); err != nil {
		list.logger.Error("error reconcile survey",
			zap.String("survey_id", surveyID.String()),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	list.logger.Info("survey reconciled",
		zap.String("survey_id", surveyID.String()),
		zap.String("event_type", event.Type))
}
