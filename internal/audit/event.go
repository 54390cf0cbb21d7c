package audit

import "time"

// DenialEvent — запись об отклоненной попытке повесить табличку.
type DenialEvent struct {
	ID           string    `json:"id"`       // UUID события
	TraceID      string    `json:"trace_id"` // Сквозной ID запроса от хоста
	ActorID      string    `json:"actor_id"`
	ItemKey      string    `json:"item_key"`
	TargetKey    string    `json:"target_key"`
	Reason       string    `json:"reason"`
	RulesVersion string    `json:"rules_version"`
	Timestamp    time.Time `json:"timestamp"`
}
