package repository

import (
	"context"

	"github.com/portfolio/backend/internal/model"
)

// MessageRepository はコンタクトメッセージ永続化のインターフェース
type MessageRepository interface {
	// Append stores msg and returns the id it was stored under.
	Append(ctx context.Context, msg *model.StoredMessage) (int64, error)
	// List returns every message in creation order.
	List(ctx context.Context) ([]*model.StoredMessage, error)
	// MarkRead flags a message as read. Unknown ids return ErrNotFound.
	MarkRead(ctx context.Context, id int64) error
}
