package service

import (
	"context"

	"github.com/portfolio/backend/internal/mailer"
	"github.com/portfolio/backend/internal/model"
)

// ContactNotifier sends the emails for a contact submission.
type ContactNotifier interface {
	NotifyContact(ctx context.Context, sub model.ContactSubmission) ([]mailer.Receipt, error)
}

// SubmitResult describes an accepted submission. ID is zero when no store
// is configured.
type SubmitResult struct {
	ID       int64
	Receipts []mailer.Receipt
}

// ContactService defines the business logic for contact form submissions.
type ContactService interface {
	// Submit stores a sanitized submission (when a store is configured)
	// and then sends the owner notification and visitor acknowledgment.
	Submit(ctx context.Context, sub model.ContactSubmission) (*SubmitResult, error)

	// List returns all stored messages in creation order.
	List(ctx context.Context) ([]*model.StoredMessage, error)

	// MarkRead flags a stored message as read.
	MarkRead(ctx context.Context, id int64) error
}
