package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/portfolio/backend/internal/metrics"
	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/repository"
)

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo     repository.MessageRepository // nil when STORE_BACKEND=none
	notifier ContactNotifier
	ids      *idClock
	log      *slog.Logger
}

// NewContactService creates a ContactService. repo may be nil.
func NewContactService(repo repository.MessageRepository, notifier ContactNotifier, log *slog.Logger) ContactService {
	if log == nil {
		log = slog.Default()
	}
	return &contactServiceImpl{repo: repo, notifier: notifier, ids: newIDClock(), log: log}
}

// Submit persists before notifying. A send failure after a successful
// append leaves the message stored and returns ErrTransport.
func (s *contactServiceImpl) Submit(ctx context.Context, sub model.ContactSubmission) (*SubmitResult, error) {
	result := &SubmitResult{}

	if s.repo != nil {
		msg := model.NewStoredMessage(s.ids.Next(), sub)
		start := time.Now()
		id, err := s.repo.Append(ctx, msg)
		metrics.StoreLatency.WithLabelValues("append").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ContactSubmissions.WithLabelValues("storage_error").Inc()
			return nil, errors.Join(ErrStorage, err)
		}
		result.ID = id
		s.log.InfoContext(ctx, "contact message stored", "id", id)
	}

	receipts, err := s.notifier.NotifyContact(ctx, sub)
	result.Receipts = receipts
	if err != nil {
		metrics.ContactSubmissions.WithLabelValues("send_error").Inc()
		return result, errors.Join(ErrTransport, err)
	}

	metrics.ContactSubmissions.WithLabelValues("ok").Inc()
	return result, nil
}

// List returns every stored message.
func (s *contactServiceImpl) List(ctx context.Context) ([]*model.StoredMessage, error) {
	if s.repo == nil {
		return nil, ErrStoreDisabled
	}
	start := time.Now()
	messages, err := s.repo.List(ctx)
	metrics.StoreLatency.WithLabelValues("list").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return messages, nil
}

// MarkRead flags a stored message as read.
func (s *contactServiceImpl) MarkRead(ctx context.Context, id int64) error {
	if s.repo == nil {
		return ErrStoreDisabled
	}
	err := s.repo.MarkRead(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return errors.Join(ErrStorage, err)
	}
	return nil
}
