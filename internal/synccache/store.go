package synccache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"trip-expense-service/internal/models"
)

// Entry statuses. A record created offline stays NewEntry however many times
// it is edited afterwards; only records that already exist server-side queue
// as UpdateEntry.
const (
	StatusNewEntry    = "NewEntry"
	StatusUpdateEntry = "UpdateEntry"
)

// Entry is one queued offline mutation awaiting replay.
type Entry struct {
	Collection string          `json:"collection"`
	LocalID    int64           `json:"localId"`
	Status     string          `json:"status"`
	Payload    json.RawMessage `json:"payload"`
}

// Store holds the offline working set: per-collection records plus the
// pending and deleted queues that Replay drains.
type Store interface {
	NextID(ctx context.Context, collection string) (int64, error)
	PutRecord(ctx context.Context, collection string, id int64, payload []byte) error
	GetRecord(ctx context.Context, collection string, id int64) ([]byte, error)
	DeleteRecord(ctx context.Context, collection string, id int64) error

	PushPending(ctx context.Context, entry Entry) error
	PendingEntries(ctx context.Context, collection string) ([]Entry, error)
	ClearPending(ctx context.Context, collection string) error

	PushDeleted(ctx context.Context, collection string, id int64) error
	DeletedIDs(ctx context.Context, collection string) ([]int64, error)
	ClearDeleted(ctx context.Context, collection string) error
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func seqKey(collection string) string {
	return fmt.Sprintf("sync:%s:seq", collection)
}

func recordKey(collection string, id int64) string {
	return fmt.Sprintf("sync:%s:record:%d", collection, id)
}

func pendingKey(collection string) string {
	return fmt.Sprintf("sync:%s:pending", collection)
}

func deletedKey(collection string) string {
	return fmt.Sprintf("sync:%s:deleted", collection)
}

func (s *redisStore) NextID(ctx context.Context, collection string) (int64, error) {
	id, err := s.client.Incr(ctx, seqKey(collection)).Result()
	if err != nil {
		return 0, fmt.Errorf("error allocating sync id: %v", err)
	}
	return id, nil
}

func (s *redisStore) PutRecord(ctx context.Context, collection string, id int64, payload []byte) error {
	if err := s.client.Set(ctx, recordKey(collection, id), payload, 0).Err(); err != nil {
		return fmt.Errorf("error storing sync record: %v", err)
	}
	return nil
}

func (s *redisStore) GetRecord(ctx context.Context, collection string, id int64) ([]byte, error) {
	payload, err := s.client.Get(ctx, recordKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.NotFoundError("Sync record")
	}
	if err != nil {
		return nil, fmt.Errorf("error loading sync record: %v", err)
	}
	return payload, nil
}

func (s *redisStore) DeleteRecord(ctx context.Context, collection string, id int64) error {
	if err := s.client.Del(ctx, recordKey(collection, id)).Err(); err != nil {
		return fmt.Errorf("error deleting sync record: %v", err)
	}
	return nil
}

func (s *redisStore) PushPending(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error encoding sync entry: %v", err)
	}
	if err := s.client.RPush(ctx, pendingKey(entry.Collection), raw).Err(); err != nil {
		return fmt.Errorf("error queueing sync entry: %v", err)
	}
	return nil
}

func (s *redisStore) PendingEntries(ctx context.Context, collection string) ([]Entry, error) {
	raws, err := s.client.LRange(ctx, pendingKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing pending sync entries: %v", err)
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("error decoding sync entry: %v", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *redisStore) ClearPending(ctx context.Context, collection string) error {
	if err := s.client.Del(ctx, pendingKey(collection)).Err(); err != nil {
		return fmt.Errorf("error clearing pending sync entries: %v", err)
	}
	return nil
}

func (s *redisStore) PushDeleted(ctx context.Context, collection string, id int64) error {
	if err := s.client.RPush(ctx, deletedKey(collection), id).Err(); err != nil {
		return fmt.Errorf("error queueing sync delete: %v", err)
	}
	return nil
}

func (s *redisStore) DeletedIDs(ctx context.Context, collection string) ([]int64, error) {
	raws, err := s.client.LRange(ctx, deletedKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing sync deletes: %v", err)
	}
	ids := make([]int64, 0, len(raws))
	for _, raw := range raws {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error decoding sync delete id: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *redisStore) ClearDeleted(ctx context.Context, collection string) error {
	if err := s.client.Del(ctx, deletedKey(collection)).Err(); err != nil {
		return fmt.Errorf("error clearing sync deletes: %v", err)
	}
	return nil
}
