package policy

import (
	"strings"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

// RestrictedItemMarker — все предметы семейства деревянных табличек содержат этот фрагмент в shortname.
const RestrictedItemMarker = "sign.wooden"

// Evaluate — PlacementGuard. Чистая функция: одни и те же входы всегда дают один и тот же ответ,
// I/O и побочных эффектов нет. Сообщение игроку отправляет вызывающий.
func Evaluate(attempt domain.PlacementAttempt, rules domain.RuleConfig) domain.Decision {
	// 1. Bypass побеждает всегда
	if attempt.ActorHasBypass {
		return domain.Allow()
	}

	// 2. Ограничиваем только таблички
	if !IsRestrictedItem(attempt.PlacedItemKey) {
		return domain.Allow()
	}

	// 3. Размещение в открытом пространстве
	if attempt.TargetKey == "" {
		return domain.Allow()
	}

	if rules.IsBlocked(attempt.TargetKey) {
		return domain.Deny(domain.ReasonCannotPlaceOnTarget)
	}
	return domain.Allow()
}

func IsRestrictedItem(itemKey string) bool {
	return strings.Contains(itemKey, RestrictedItemMarker)
}
