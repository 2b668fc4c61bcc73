package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const selectionKeyPrefix = "selected_company:"

type redisSelection struct {
	client *redis.Client
}

// NewRedisSelection keeps each user's selected company in redis, without
// expiry, so the choice survives new sessions and other devices.
func NewRedisSelection(client *redis.Client) *redisSelection {
	return &redisSelection{client: client}
}

func selectionKey(userID uuid.UUID) string {
	return selectionKeyPrefix + userID.String()
}

// Selected returns ErrNoSelection when the user never picked a company.
func (s *redisSelection) Selected(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := s.client.Get(ctx, selectionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSelection
	}
	if err != nil {
		return "", fmt.Errorf("reading selected company: %w", err)
	}
	return id, nil
}

func (s *redisSelection) Select(ctx context.Context, userID uuid.UUID, companyID string) error {
	if err := s.client.Set(ctx, selectionKey(userID), companyID, 0).Err(); err != nil {
		return fmt.Errorf("storing selected company: %w", err)
	}
	return nil
}

func (s *redisSelection) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, selectionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clearing selected company: %w", err)
	}
	return nil
}
