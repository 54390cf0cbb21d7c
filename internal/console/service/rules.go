package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/infra"
)

// RuleStore описывает требования сервиса к rules.Store
type RuleStore interface {
	Snapshot() domain.RuleConfig
	Load(ctx context.Context) (domain.RuleConfig, error)
	ReplaceTargets(ctx context.Context, keys []string) (domain.RuleConfig, error)
	AddTarget(ctx context.Context, key string) (domain.RuleConfig, error)
	RemoveTarget(ctx context.Context, key string) (domain.RuleConfig, error)
}

type RuleService struct {
	store    RuleStore
	rdb      *redis.Client // nil: одиночный инстанс, рассылать некому
	onChange func(domain.RuleConfig)
	logger   *zap.Logger
}

func NewRuleService(store RuleStore, rdb *redis.Client, onChange func(domain.RuleConfig), logger *zap.Logger) *RuleService {
	if onChange == nil {
		onChange = func(domain.RuleConfig) {}
	}
	return &RuleService{
		store:    store,
		rdb:      rdb,
		onChange: onChange,
		logger:   logger.Named("rule-service"),
	}
}

func (s *RuleService) Get() domain.RuleConfig {
	return s.store.Snapshot()
}

// Replace сохраняет новый список целиком и уведомляет остальные инстансы
func (s *RuleService) Replace(ctx context.Context, keys []string) (domain.RuleConfig, error) {
	return s.apply(ctx, "replace", func() (domain.RuleConfig, error) { return s.store.ReplaceTargets(ctx, keys) })
}

func (s *RuleService) Add(ctx context.Context, key string) (domain.RuleConfig, error) {
	return s.apply(ctx, "add", func() (domain.RuleConfig, error) { return s.store.AddTarget(ctx, key) })
}

func (s *RuleService) Remove(ctx context.Context, key string) (domain.RuleConfig, error) {
	return s.apply(ctx, "remove", func() (domain.RuleConfig, error) { return s.store.RemoveTarget(ctx, key) })
}

// Reload перечитывает хранилище (например, админ поправил JSON руками) и рассылает сигнал.
func (s *RuleService) Reload(ctx context.Context) (domain.RuleConfig, error) {
	return s.apply(ctx, "reload", func() (domain.RuleConfig, error) { return s.store.Load(ctx) })
}

func (s *RuleService) apply(ctx context.Context, action string, fn func() (domain.RuleConfig, error)) (domain.RuleConfig, error) {
	cfg, err := fn()
	if err != nil {
		s.logger.Error("rules update failed", zap.String("action", action), zap.Error(err))
		return cfg, err
	}
	s.onChange(cfg)
	s.logger.Info("rules updated",
		zap.String("action", action),
		zap.Int("blocked_targets", len(cfg.DeployableShortPrefabNames)))
	s.notifyUpdate(ctx)
	return cfg, nil
}

// notifyUpdate отправляет широковещательный сигнал в Redis.
// Все инстансы, подписанные на канал, перечитают правила из общего хранилища.
func (s *RuleService) notifyUpdate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, infra.RedisChanRulesReload, "refresh").Err(); err != nil {
		s.logger.Warn("runtime signal delivery failed",
			zap.String("channel", infra.RedisChanRulesReload),
			zap.Error(err))
	}
}
