package service

import (
	"context"
	"errors"

	"github.com/portfolio/backend/internal/mailer"
	"github.com/portfolio/backend/internal/metrics"
	"github.com/portfolio/backend/internal/model"
)

// VisitNotifier sends the visit notification.
type VisitNotifier interface {
	NotifyVisit(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error)
}

// VisitService relays visit pings. Nothing is stored.
type VisitService interface {
	Track(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error)
}

type visitServiceImpl struct {
	notifier VisitNotifier
}

// NewVisitService creates a VisitService.
func NewVisitService(notifier VisitNotifier) VisitService {
	return &visitServiceImpl{notifier: notifier}
}

func (s *visitServiceImpl) Track(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
	r, err := s.notifier.NotifyVisit(ctx, ev)
	if err != nil {
		metrics.VisitsTracked.WithLabelValues("send_error").Inc()
		return mailer.Receipt{}, errors.Join(ErrTransport, err)
	}
	metrics.VisitsTracked.WithLabelValues("ok").Inc()
	return r, nil
}
