package notify

import (
	"context"

	"github.com/xela07ax/nosigns-guard/internal/lang"
	"go.uber.org/zap"
)

// Notifier доставляет игроку локализованное сообщение. Вызывается только при Deny.
type Notifier interface {
	Send(ctx context.Context, actorID, messageKey string) error
}

type ctxKey string

const localeKey ctxKey = "locale"

// WithLocale кладет локаль игрока в контекст, Notifier сам решает, как ее использовать.
func WithLocale(ctx context.Context, locale string) context.Context {
	if locale == "" {
		return ctx
	}
	return context.WithValue(ctx, localeKey, locale)
}

func localeFrom(ctx context.Context, fallback string) string {
	if l, ok := ctx.Value(localeKey).(string); ok && l != "" {
		return l
	}
	return fallback
}

// LogNotifier — для серверов без callback: сообщение только попадает в лог.
type LogNotifier struct {
	catalog *lang.Catalog
	locale  string
	logger  *zap.Logger
}

func NewLogNotifier(catalog *lang.Catalog, locale string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{catalog: catalog, locale: locale, logger: logger.Named("notify")}
}

func (n *LogNotifier) Send(ctx context.Context, actorID, messageKey string) error {
	n.logger.Info("player notified",
		zap.String("actor_id", actorID),
		zap.String("message_key", messageKey),
		zap.String("message", n.catalog.Message(messageKey, localeFrom(ctx, n.locale))))
	return nil
}
