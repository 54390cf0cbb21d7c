package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/audit"
	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/notify"
)

// PermissionOracle — кто решает, есть ли у игрока грант. Static, BypassManager или CasbinOracle.
type PermissionOracle interface {
	HasPermission(actorID, permission string) bool
}

// Enforcer — PlacementGuard поверх текущего снапшота правил (policy.MemoEnforcer).
type Enforcer interface {
	Decide(attempt domain.PlacementAttempt) (domain.Decision, string)
}

const notifyTimeout = 10 * time.Second

// Guard — адаптер хоста: событие размещения -> PlacementAttempt -> решение -> сообщение игроку.
type Guard struct {
	pdp      Enforcer
	perms    PermissionOracle
	notifier notify.Notifier
	auditor  audit.Auditor
	metrics  *Metrics
	logger   *zap.Logger

	// доставка сообщений идет в фоне, Close ждет хвост.
	// closed под mu: после Close новые отправки не стартуют, Add не гонится с Wait.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewGuard(pdp Enforcer, perms PermissionOracle, notifier notify.Notifier, auditor audit.Auditor, metrics *Metrics, logger *zap.Logger) *Guard {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Guard{
		pdp:      pdp,
		perms:    perms,
		notifier: notifier,
		auditor:  auditor,
		metrics:  metrics,
		logger:   logger.Named("guard"),
	}
}

// ProcessPlacement проверяет одну попытку. Решение возвращается сразу,
// сообщение игроку при Deny уходит асинхронно и на решение не влияет.
func (g *Guard) ProcessPlacement(ctx context.Context, ev domain.PlacementEvent) domain.Decision {
	start := time.Now()
	decision, version := g.decide(ev)
	g.metrics.CheckDuration.Observe(time.Since(start).Seconds())

	if decision.Allowed {
		g.metrics.Checks.WithLabelValues("allow").Inc()
		return decision
	}

	g.metrics.Checks.WithLabelValues("deny").Inc()
	g.metrics.Denials.WithLabelValues(ev.Target).Inc()

	traceID := extractTraceID(ctx)
	g.logger.Debug("sign placement denied",
		zap.String("trace_id", traceID),
		zap.String("actor_id", ev.ActorID),
		zap.String("item", ev.ActiveItem),
		zap.String("target", ev.Target))

	g.auditor.Log(audit.DenialEvent{
		ID:           uuid.New().String(),
		TraceID:      traceID,
		ActorID:      ev.ActorID,
		ItemKey:      ev.ActiveItem,
		TargetKey:    ev.Target,
		Reason:       string(decision.Reason),
		RulesVersion: version,
		Timestamp:    start,
	})

	g.sendAsync(ctx, ev, decision.Reason.MessageKey())
	return decision
}

func (g *Guard) decide(ev domain.PlacementEvent) (domain.Decision, string) {
	// Нет игрока или пустая рука: ограничивать нечего
	if ev.ActorID == "" || ev.ActiveItem == "" {
		return domain.Allow(), ""
	}

	attempt := domain.PlacementAttempt{
		ActorID:        ev.ActorID,
		ActorHasBypass: g.perms.HasPermission(ev.ActorID, domain.PermissionIgnore),
		PlacedItemKey:  ev.ActiveItem,
		TargetKey:      ev.Target,
	}
	return g.pdp.Decide(attempt)
}

func (g *Guard) sendAsync(ctx context.Context, ev domain.PlacementEvent, messageKey string) {
	if g.notifier == nil || messageKey == "" {
		return
	}

	// Запрос хоста уже завершится, а доставка должна дожить до конца
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	sendCtx = notify.WithLocale(sendCtx, ev.Locale)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		cancel()
		g.logger.Warn("guard is closed, player message dropped",
			zap.String("actor_id", ev.ActorID),
			zap.String("message_key", messageKey))
		return
	}
	g.inflight.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.inflight.Done()
		defer cancel()
		if err := g.notifier.Send(sendCtx, ev.ActorID, messageKey); err != nil {
			g.metrics.ErrorTotal.WithLabelValues("notify").Inc()
			g.logger.Warn("failed to notify player",
				zap.String("actor_id", ev.ActorID),
				zap.String("message_key", messageKey),
				zap.Error(err))
		}
	}()
}

// Close дожидается доставки сообщений, отправленных до остановки.
// Проверки после Close продолжают работать, но сообщения игрокам уже не уходят.
func (g *Guard) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.inflight.Wait()
}
