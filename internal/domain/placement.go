package domain

// ReasonCode объясняет, почему попытка размещения отклонена.
type ReasonCode string

const (
	ReasonNone                ReasonCode = ""
	ReasonCannotPlaceOnTarget ReasonCode = "CANNOT_PLACE_ON_TARGET"
)

// MessageCannotPlaceSign — ключ локализованного сообщения для игрока.
const MessageCannotPlaceSign = "CannotPlaceSign"

// MessageKey сопоставляет причину отказа с ключом локализации.
func (r ReasonCode) MessageKey() string {
	switch r {
	case ReasonCannotPlaceOnTarget:
		return MessageCannotPlaceSign
	default:
		return ""
	}
}

// PlacementEvent — то, что присылает хост: кто строит, что у него в активном слоте и куда он целится.
// Пустые поля означают отсутствие сущности (нет игрока, пустая рука, размещение в открытом пространстве).
type PlacementEvent struct {
	ActorID    string `json:"actor_id"`
	ActiveItem string `json:"active_item"`
	Target     string `json:"target,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// PlacementAttempt — одноразовый вход для PlacementGuard, живет ровно одну проверку.
type PlacementAttempt struct {
	ActorID        string
	ActorHasBypass bool
	PlacedItemKey  string
	TargetKey      string // "": цели нет
}

// Decision — результат проверки: Allow или Deny(reason). Побочных эффектов не несет.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  ReasonCode `json:"reason,omitempty"`
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason ReasonCode) Decision { return Decision{Allowed: false, Reason: reason} }

func (d Decision) String() string {
	if d.Allowed {
		return "ALLOW"
	}
	return "DENY(" + string(d.Reason) + ")"
}
