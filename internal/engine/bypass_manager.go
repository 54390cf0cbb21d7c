package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/infra"
	"go.uber.org/zap"
)

const seedLockTTL = 30 * time.Second

// BypassManager — PermissionOracle поверх Redis: множество игроков с nosignsondeployables.ignore.
// Проверка идет только по RAM, Redis: источник правды и канал обновлений между инстансами.
type BypassManager struct {
	rdb    *redis.Client
	logger *zap.Logger
	seed   []string

	mu     sync.RWMutex
	actors map[string]struct{}
}

func NewBypassManager(rdb *redis.Client, seed []string, logger *zap.Logger) *BypassManager {
	return &BypassManager{
		rdb:    rdb,
		seed:   seed,
		actors: make(map[string]struct{}),
		logger: logger.With(zap.String("mod", "bypass")),
	}
}

// Init перечитывает множество из Redis целиком (заодно ловит отзывы, пропущенные при обрыве).
// Seed из конфига попадает в Redis только в пустое множество: отзыв через админку не откатывается рестартом.
func (m *BypassManager) Init(ctx context.Context) error {
	if err := m.seedRedis(ctx); err != nil {
		m.logger.Warn("bypass seed failed", zap.Error(err))
	}

	members, err := m.rdb.SMembers(ctx, infra.RedisKeyBypassActors).Result()
	if err != nil {
		return fmt.Errorf("failed to fetch bypass actors from Redis: %w", err)
	}
	if len(members) == 0 {
		members = m.seed
	}

	next := make(map[string]struct{}, len(members))
	for _, id := range members {
		next[id] = struct{}{}
	}

	m.mu.Lock()
	m.actors = next
	m.mu.Unlock()

	m.logger.Info("bypass actors loaded", zap.Int("count", len(next)))
	return nil
}

// seedRedis заливает seed под распределенным локом (SetNX), если множество еще пустое.
func (m *BypassManager) seedRedis(ctx context.Context) error {
	if len(m.seed) == 0 {
		return nil
	}

	ok, err := m.rdb.SetNX(ctx, infra.RedisKeyLockBypass, "processing", seedLockTTL).Result()
	if err != nil || !ok {
		return err // nil при !ok: другой инстанс уже заливает
	}

	count, err := m.rdb.SCard(ctx, infra.RedisKeyBypassActors).Result()
	if err != nil {
		return fmt.Errorf("bypass set size: %w", err)
	}
	if count > 0 {
		return nil
	}

	m.logger.Info("Redis bypass set is empty, seeding from config", zap.Int("count", len(m.seed)))
	members := make([]interface{}, 0, len(m.seed))
	for _, id := range m.seed {
		members = append(members, id)
	}
	return m.rdb.SAdd(ctx, infra.RedisKeyBypassActors, members...).Err()
}

// StartListener подписывается на выдачу и отзыв bypass в реальном времени
func (m *BypassManager) StartListener(ctx context.Context) {
	ListenStateResilient(ctx, m.rdb, m.logger, infra.RedisChanBypass,
		func() error { return m.Init(ctx) },
		m.apply,
	)
}

func (m *BypassManager) apply(actorID string, granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if granted {
		m.actors[actorID] = struct{}{}
	} else {
		delete(m.actors, actorID)
	}
	m.logger.Info("bypass updated", zap.String("actor_id", actorID), zap.Bool("granted", granted))
}

// HasPermission — максимально быстрый метод для Hot Path
func (m *BypassManager) HasPermission(actorID, permission string) bool {
	if permission != domain.PermissionIgnore {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.actors[actorID]
	return ok
}
