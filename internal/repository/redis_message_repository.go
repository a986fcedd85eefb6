package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/portfolio/backend/internal/model"
)

const (
	redisIndexKey  = "portfolio:messages"
	redisDataKey   = "portfolio:messages:data"
	redisLastIDKey = "portfolio:messages:last_id"
)

// allocID returns max(ARGV[1], last+1) and records it as the new last id.
var allocID = redis.NewScript(`
local last = tonumber(redis.call('GET', KEYS[1]) or '0')
local id = tonumber(ARGV[1])
if id <= last then id = last + 1 end
redis.call('SET', KEYS[1], id)
return id
`)

// RedisMessageRepository stores messages as JSON values in a hash, ordered
// by a sorted set scored by id.
type RedisMessageRepository struct {
	client *redis.Client
}

var _ MessageRepository = (*RedisMessageRepository)(nil)

// NewRedisMessageRepository connects to redisURL and pings it.
func NewRedisMessageRepository(ctx context.Context, redisURL string) (*RedisMessageRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisMessageRepository{client: client}, nil
}

// Close closes the Redis connection.
func (r *RedisMessageRepository) Close() error {
	return r.client.Close()
}

func (r *RedisMessageRepository) Append(ctx context.Context, msg *model.StoredMessage) (int64, error) {
	id, err := allocID.Run(ctx, r.client, []string{redisLastIDKey}, msg.ID).Int64()
	if err != nil {
		return 0, fmt.Errorf("repository: allocate id: %w", err)
	}
	msg.ID = id

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("repository: encode: %w", err)
	}
	field := strconv.FormatInt(id, 10)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisDataKey, field, data)
		p.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(id), Member: field})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *RedisMessageRepository) List(ctx context.Context) ([]*model.StoredMessage, error) {
	ids, err := r.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]*model.StoredMessage, 0, len(ids))
	if len(ids) == 0 {
		return messages, nil
	}
	values, err := r.client.HMGet(ctx, redisDataKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // index entry without data
		}
		var m model.StoredMessage
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("repository: decode message %s: %w", ids[i], err)
		}
		messages = append(messages, &m)
	}
	return messages, nil
}

func (r *RedisMessageRepository) MarkRead(ctx context.Context, id int64) error {
	field := strconv.FormatInt(id, 10)
	s, err := r.client.HGet(ctx, redisDataKey, field).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var m model.StoredMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return fmt.Errorf("repository: decode message %s: %w", field, err)
	}
	if m.Read {
		return nil
	}
	m.Read = true
	data, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("repository: encode: %w", err)
	}
	return r.client.HSet(ctx, redisDataKey, field, data).Err()
}
