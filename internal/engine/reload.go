package engine

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/infra"
)

// Refresher — всё, что умеет перечитать свое состояние из хранилища (правила, casbin-политики).
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc адаптирует функцию к Refresher.
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// ReloadListener слушает канал reload: админка на любом инстансе поменяла правила: перечитываем все.
type ReloadListener struct {
	rdb     *redis.Client
	targets []Refresher
	metrics *Metrics
	logger  *zap.Logger
}

func NewReloadListener(rdb *redis.Client, metrics *Metrics, logger *zap.Logger, targets ...Refresher) *ReloadListener {
	return &ReloadListener{
		rdb:     rdb,
		targets: targets,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "reload")),
	}
}

func (l *ReloadListener) StartListener(ctx context.Context) {
	ListenResilient(ctx, l.rdb, l.logger, infra.RedisChanRulesReload,
		func() error { return l.ReloadAll(ctx) },
		func(payload string) {
			l.logger.Info("reload signal received", zap.String("payload", payload))
			if err := l.ReloadAll(ctx); err != nil {
				l.logger.Error("reload failed", zap.Error(err))
			}
		},
	)
}

// ReloadAll обходит всех, даже если кто-то упал; возвращает первую ошибку.
func (l *ReloadListener) ReloadAll(ctx context.Context) error {
	var first error
	for _, t := range l.targets {
		if err := t.Refresh(ctx); err != nil {
			l.metrics.ErrorTotal.WithLabelValues("reload").Inc()
			if first == nil {
				first = err
			}
		}
	}
	return first
}
