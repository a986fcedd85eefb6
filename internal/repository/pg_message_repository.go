package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portfolio/backend/internal/model"
)

// PgMessageRepository is the PostgreSQL implementation of MessageRepository.
// The contact_messages table is created by cmd/migrate.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

// NewPgMessageRepository creates a PgMessageRepository backed by the given pool.
func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// Ensure PgMessageRepository implements MessageRepository at compile time.
var _ MessageRepository = (*PgMessageRepository)(nil)

// appendLockKey is the pg_advisory_xact_lock key serializing id allocation
// across server instances.
const appendLockKey int64 = 0x706f7274666f6c69

// Append inserts a row. A colliding id is bumped past the current maximum
// inside the same transaction, under an advisory lock so that concurrent
// writers never compute the same id.
func (r *PgMessageRepository) Append(ctx context.Context, msg *model.StoredMessage) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO contact_messages (id, name, email, message, submitted_at, read)
			 SELECT GREATEST($1::BIGINT, COALESCE(MAX(id), 0) + 1), $2, $3, $4, $5, $6
			 FROM contact_messages
			 RETURNING id`,
			msg.ID, msg.Name, msg.Email, msg.Message, msg.Timestamp, msg.Read,
		).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	msg.ID = id
	return id, nil
}

// List returns all messages ordered by id, which is creation order.
func (r *PgMessageRepository) List(ctx context.Context) ([]*model.StoredMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, message, submitted_at, read
		 FROM contact_messages
		 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.StoredMessage{}
	for rows.Next() {
		var m model.StoredMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.Timestamp, &m.Read); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE contact_messages SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
