package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/nosigns-guard/internal/audit"
	"github.com/xela07ax/nosigns-guard/internal/domain"
)

const denialsSchema = `
CREATE TABLE IF NOT EXISTS placement_denials (
	id            UUID PRIMARY KEY,
	trace_id      TEXT,
	actor_id      TEXT NOT NULL,
	item_key      TEXT NOT NULL,
	target_key    TEXT NOT NULL,
	reason        TEXT NOT NULL,
	rules_version TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL
)`

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) (*AuditRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}, nil
}

func (r *AuditRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, denialsSchema); err != nil {
		return fmt.Errorf("postgres: failed to create placement_denials: %w", err)
	}
	return nil
}

const (
	// Количество колонок в таблице placement_denials
	denialFields = 8
	// Postgres принимает не больше 65535 параметров в одном запросе
	MaxDenialRowsPerInsert = 65535 / denialFields
)

// WriteBatch — пакетная вставка; пачка больше MaxDenialRowsPerInsert режется на несколько запросов.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.DenialEvent) error {
	for _, chunk := range chunkDenials(events, MaxDenialRowsPerInsert) {
		query, vals := buildDenialInsert(chunk)
		if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
			return fmt.Errorf("postgres: failed to write denials: %w", err)
		}
	}
	return nil
}

func chunkDenials(events []audit.DenialEvent, size int) [][]audit.DenialEvent {
	var out [][]audit.DenialEvent
	for len(events) > size {
		out = append(out, events[:size])
		events = events[size:]
	}
	if len(events) > 0 {
		out = append(out, events)
	}
	return out
}

func buildDenialInsert(events []audit.DenialEvent) (string, []interface{}) {
	const numFields = denialFields
	var sb strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	for i, e := range events {
		p := i * numFields
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8)
		vals = append(vals,
			e.ID, e.TraceID, e.ActorID, e.ItemKey,
			e.TargetKey, e.Reason, e.RulesVersion, e.Timestamp,
		)
	}

	query := "INSERT INTO placement_denials (id, trace_id, actor_id, item_key, target_key, reason, rules_version, timestamp) VALUES " + sb.String()
	return query, vals
}

// GetDenialStats — сводка для админки: всего отказов и топ-10 целей.
func (r *AuditRepo) GetDenialStats(ctx context.Context) (*domain.GuardStats, error) {
	stats := &domain.GuardStats{TopTargets: make(map[string]int64)}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM placement_denials`).Scan(&stats.TotalDenials); err != nil {
		return nil, fmt.Errorf("postgres: failed to count denials: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT target_key, COUNT(*) AS n
		FROM placement_denials
		GROUP BY target_key
		ORDER BY n DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to aggregate denials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		stats.TopTargets[key] = n
	}
	return stats, rows.Err()
}

func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *AuditRepo) Close() error {
	return r.db.Close()
}
