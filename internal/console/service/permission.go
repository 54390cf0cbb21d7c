package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/engine"
	"github.com/xela07ax/nosigns-guard/internal/infra"
)

// ErrGrantsReadOnly — bypass задан статически или в casbin CSV, менять его через API нельзя.
var ErrGrantsReadOnly = errors.New("bypass grants are managed outside the guard")

// PermissionService выдает и отзывает bypass, когда источник правды: Redis.
type PermissionService struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPermissionService(rdb *redis.Client, logger *zap.Logger) *PermissionService {
	return &PermissionService{rdb: rdb, logger: logger.Named("permission-service")}
}

func (s *PermissionService) List(ctx context.Context) ([]string, error) {
	if s.rdb == nil {
		return nil, ErrGrantsReadOnly
	}
	ids, err := s.rdb.SMembers(ctx, infra.RedisKeyBypassActors).Result()
	if err != nil {
		return nil, fmt.Errorf("list bypass actors: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *PermissionService) Grant(ctx context.Context, actorID string) error {
	return s.updateGrant(ctx, actorID, true)
}

func (s *PermissionService) Revoke(ctx context.Context, actorID string) error {
	return s.updateGrant(ctx, actorID, false)
}

// updateGrant — сначала Redis-множество (состояние), потом сигнал (real-time).
func (s *PermissionService) updateGrant(ctx context.Context, actorID string, granted bool) error {
	if s.rdb == nil {
		return ErrGrantsReadOnly
	}

	var err error
	if granted {
		err = s.rdb.SAdd(ctx, infra.RedisKeyBypassActors, actorID).Err()
	} else {
		err = s.rdb.SRem(ctx, infra.RedisKeyBypassActors, actorID).Err()
	}
	if err != nil {
		return fmt.Errorf("update bypass set: %w", err)
	}

	if err := s.rdb.Publish(ctx, infra.RedisChanBypass, engine.FormatSignal(actorID, granted)).Err(); err != nil {
		s.logger.Warn("runtime signal delivery failed",
			zap.String("channel", infra.RedisChanBypass),
			zap.Error(err))
	} else {
		s.logger.Info("bypass updated", zap.String("actor_id", actorID), zap.Bool("granted", granted))
	}
	return nil
}
