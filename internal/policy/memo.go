package policy

import (
	"context"

	"github.com/xela07ax/nosigns-guard/internal/domain"
	"go.uber.org/zap"
)

// RuleSource — откуда брать текущий снапшот правил. Реализует rules.Store.
type RuleSource interface {
	Snapshot() domain.RuleConfig
	Load(ctx context.Context) (domain.RuleConfig, error)
}

// MemoEnforcer — In-memory PlacementGuard поверх снапшота RuleStore.
// В рантайме работает только с памятью, хранилище трогает лишь Refresh.
type MemoEnforcer struct {
	rules  RuleSource
	logger *zap.Logger
}

func NewMemoEnforcer(rules RuleSource, logger *zap.Logger) *MemoEnforcer {
	return &MemoEnforcer{
		rules:  rules,
		logger: logger.Named("enforcer"),
	}
}

// Decide — Hot Path: снапшот берется один раз, так что проверка никогда не видит полуобновленные правила.
// Вторым значением отдается версия правил, по которым принято решение (для журнала).
func (e *MemoEnforcer) Decide(attempt domain.PlacementAttempt) (domain.Decision, string) {
	rules := e.rules.Snapshot()
	return Evaluate(attempt, rules), rules.Version
}

// Refresh перечитывает правила из хранилища (reload-сигнал от админки или другого инстанса).
func (e *MemoEnforcer) Refresh(ctx context.Context) error {
	cfg, err := e.rules.Load(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("rule cache refreshed",
		zap.String("version", cfg.Version),
		zap.Int("count", len(cfg.DeployableShortPrefabNames)))
	return nil
}
