// Package redis keeps booking drafts in Redis so they survive a restart and
// can be shared between instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
)

const keyPrefix = "homestay:draft:"

var ErrEmptyDraftID = errors.New("draft has no id")

type Config struct {
	L        *logger.Logger
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Store struct {
	l      *logger.Logger
	client *redis.Client
	ttl    time.Duration
}

func New(conf Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	return NewWithClient(conf.L, client, conf.TTL)
}

func NewWithClient(l *logger.Logger, client *redis.Client, ttl time.Duration) *Store {
	return &Store{l: l, client: client, ttl: ttl}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

func (s *Store) Save(ctx context.Context, draft *booking.BookingDraft) error {
	if draft.ID == "" {
		return ErrEmptyDraftID
	}

	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", draft.ID, err)
	}

	if err := s.client.Set(ctx, keyPrefix+draft.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft %s: %w", draft.ID, err)
	}

	s.l.LogDebugf("Draft %s saved for room %d", draft.ID, draft.RoomID)

	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*booking.BookingDraft, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("draft %s: %w", id, booking.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}

	var draft booking.BookingDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}

	return &draft, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("draft %s: %w", id, booking.ErrNotFound)
	}

	return nil
}

// Purge is a no-op, Redis expires drafts on its own.
func (s *Store) Purge(_ context.Context) int {
	return 0
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}

	return nil
}
