package rules

/*
Файл store.go содержит RuleStore, владельца текущего снапшота правил.
Горячий путь (PlacementGuard) читает снапшот через atomic.Pointer и никогда не блокируется,
а загрузка, миграция и сохранение происходят только при старте, reload-сигнале или из админки.
*/

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xela07ax/nosigns-guard/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrConfigLoad — хранилище недоступно или содержимое битое. При старте восстанавливается дефолтом.
	ErrConfigLoad = errors.New("rules: config load failed")
	// ErrConfigSave — запись не удалась. Всегда пробрасывается вызывающему.
	ErrConfigSave = errors.New("rules: config save failed")
	// ErrEmptyTargetKey — пустой ключ цели не может быть правилом.
	ErrEmptyTargetKey = errors.New("rules: target key is empty")
)

// Storage — физическое хранилище конфигурации (файл, Postgres).
// Read возвращает (nil, nil), если конфигурации еще нет.
type Storage interface {
	Read(ctx context.Context) (*domain.RuleConfig, error)
	Write(ctx context.Context, cfg domain.RuleConfig) error
}

type Store struct {
	storage Storage
	logger  *zap.Logger

	current atomic.Pointer[domain.RuleConfig]
	writeMu sync.Mutex // сериализует read-modify-write из админки и reload
	loaded  bool       // первый Load уже поставил снапшот; под writeMu
}

func NewStore(storage Storage, logger *zap.Logger) *Store {
	s := &Store{
		storage: storage,
		logger:  logger.Named("rule-store"),
	}
	def := DefaultConfig()
	s.current.Store(&def)
	return s
}

// Snapshot отдает копию текущих правил. Безопасно из любой горутины.
func (s *Store) Snapshot() domain.RuleConfig {
	return s.current.Load().Clone()
}

// Load читает хранилище, мигрирует при необходимости, ставит снапшот и сразу сохраняет,
// чтобы сохраненная копия не отставала от памяти.
// Ошибка чтения при первой загрузке не фатальна (берутся дефолты). При повторной (reload)
// снапшот и хранилище не трогаются, возвращается ErrConfigLoad. Ошибка записи возвращается всегда.
func (s *Store) Load(ctx context.Context) (domain.RuleConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	persisted, err := s.storage.Read(ctx)
	if err != nil {
		loadErr := fmt.Errorf("%w: %w", ErrConfigLoad, err)
		if s.loaded {
			s.logger.Error("config unreadable on reload, keeping current rules", zap.Error(loadErr))
			return s.current.Load().Clone(), loadErr
		}
		s.logger.Warn("config unreadable, falling back to defaults", zap.Error(loadErr))
		persisted = nil
	}

	if persisted != nil && IsOutdated(persisted.Version) {
		s.logger.Warn("config changes detected, updating",
			zap.String("from", persisted.Version),
			zap.String("to", CurrentVersion))
	}

	cfg := Load(persisted)
	s.install(cfg)
	s.loaded = true

	if err := s.save(ctx, cfg); err != nil {
		return cfg, err
	}

	s.logger.Info("rules loaded",
		zap.String("version", cfg.Version),
		zap.Int("blocked_targets", len(cfg.DeployableShortPrefabNames)))
	return cfg, nil
}

// Save сохраняет конфигурацию целиком. Снапшот в памяти не трогает.
func (s *Store) Save(ctx context.Context, cfg domain.RuleConfig) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(ctx, cfg)
}

// ReplaceTargets заменяет список целиком. Снапшот меняется только после успешной записи.
func (s *Store) ReplaceTargets(ctx context.Context, keys []string) (domain.RuleConfig, error) {
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return s.Snapshot(), ErrEmptyTargetKey
		}
	}
	return s.mutate(ctx, func(cfg *domain.RuleConfig) {
		cfg.DeployableShortPrefabNames = dedupe(append([]string{}, keys...))
	})
}

// AddTarget добавляет ключ в конец списка; повторное добавление ничего не меняет.
func (s *Store) AddTarget(ctx context.Context, key string) (domain.RuleConfig, error) {
	if strings.TrimSpace(key) == "" {
		return s.Snapshot(), ErrEmptyTargetKey
	}
	return s.mutate(ctx, func(cfg *domain.RuleConfig) {
		if !cfg.IsBlocked(key) {
			cfg.DeployableShortPrefabNames = append(cfg.DeployableShortPrefabNames, key)
		}
	})
}

// RemoveTarget убирает ключ. Отсутствующий ключ: не ошибка.
func (s *Store) RemoveTarget(ctx context.Context, key string) (domain.RuleConfig, error) {
	return s.mutate(ctx, func(cfg *domain.RuleConfig) {
		out := cfg.DeployableShortPrefabNames[:0]
		for _, k := range cfg.DeployableShortPrefabNames {
			if k != key {
				out = append(out, k)
			}
		}
		cfg.DeployableShortPrefabNames = out
	})
}

func (s *Store) mutate(ctx context.Context, fn func(cfg *domain.RuleConfig)) (domain.RuleConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.current.Load().Clone()
	fn(&next)
	next.Version = CurrentVersion

	if err := s.save(ctx, next); err != nil {
		return s.current.Load().Clone(), err
	}
	s.install(next)
	return next.Clone(), nil
}

func (s *Store) save(ctx context.Context, cfg domain.RuleConfig) error {
	if err := s.storage.Write(ctx, cfg); err != nil {
		s.logger.Error("config save failed, keeping in-memory rules", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrConfigSave, err)
	}
	return nil
}

func (s *Store) install(cfg domain.RuleConfig) {
	c := cfg.Clone()
	s.current.Store(&c)
}
