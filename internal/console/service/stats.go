package service

import (
	"context"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

// DenialStatsProvider — журнал отказов (postgres.AuditRepo). Может отсутствовать.
type DenialStatsProvider interface {
	GetDenialStats(ctx context.Context) (*domain.GuardStats, error)
}

type StatsService struct {
	rules   RuleStore
	denials DenialStatsProvider
}

func NewStatsService(rules RuleStore, denials DenialStatsProvider) *StatsService {
	return &StatsService{rules: rules, denials: denials}
}

func (s *StatsService) GetStats(ctx context.Context) (*domain.GuardStats, error) {
	stats := &domain.GuardStats{TopTargets: map[string]int64{}}
	if s.denials != nil {
		var err error
		if stats, err = s.denials.GetDenialStats(ctx); err != nil {
			return nil, err
		}
	}
	cfg := s.rules.Snapshot()
	stats.Version = cfg.Version
	stats.BlockedTargets = len(cfg.DeployableShortPrefabNames)
	return stats, nil
}
