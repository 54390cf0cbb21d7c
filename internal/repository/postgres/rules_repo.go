package postgres

/*
Файл rules_repo.go хранит RuleConfig в PostgreSQL, когда несколько игровых серверов
делят один набор правил. Документ лежит одной строкой на плагин, список: jsonb.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/nosigns-guard/internal/domain"
)

const rulesSchema = `
CREATE TABLE IF NOT EXISTS guard_rules (
	plugin      TEXT PRIMARY KEY,
	version     TEXT NOT NULL,
	target_keys JSONB,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type RulesRepo struct {
	pool   *pgxpool.Pool
	plugin string
}

// NewRulesRepo поднимает пул соединений. plugin: ключ строки (по умолчанию имя плагина).
func NewRulesRepo(ctx context.Context, connString string, maxConns, minConns int32, plugin string) (*RulesRepo, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: bad connection string: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return &RulesRepo{pool: pool, plugin: plugin}, nil
}

// EnsureSchema создает таблицу при первом запуске.
func (r *RulesRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, rulesSchema); err != nil {
		return fmt.Errorf("postgres: failed to create guard_rules: %w", err)
	}
	return nil
}

// Read реализует rules.Storage. Нет строки: (nil, nil), это первый запуск.
func (r *RulesRepo) Read(ctx context.Context) (*domain.RuleConfig, error) {
	query := `SELECT version, target_keys FROM guard_rules WHERE plugin = $1`

	var (
		cfg domain.RuleConfig
		raw []byte
	)
	err := r.pool.QueryRow(ctx, query, r.plugin).Scan(&cfg.Version, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to read rules: %w", err)
	}

	// NULL в target_keys: список отсутствует, RuleStore подставит дефолт
	if raw != nil {
		if err := json.Unmarshal(raw, &cfg.DeployableShortPrefabNames); err != nil {
			return nil, fmt.Errorf("postgres: malformed target_keys: %w", err)
		}
	}
	return &cfg, nil
}

// Write реализует rules.Storage: upsert всего документа.
func (r *RulesRepo) Write(ctx context.Context, cfg domain.RuleConfig) error {
	keys, err := json.Marshal(cfg.DeployableShortPrefabNames)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode target_keys: %w", err)
	}

	query := `
		INSERT INTO guard_rules (plugin, version, target_keys, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (plugin) DO UPDATE
		SET version = EXCLUDED.version, target_keys = EXCLUDED.target_keys, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, r.plugin, cfg.Version, keys); err != nil {
		return fmt.Errorf("postgres: failed to write rules: %w", err)
	}
	return nil
}

func (r *RulesRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *RulesRepo) Close() {
	r.pool.Close()
}
