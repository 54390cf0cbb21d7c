package domain

// GuardStats — сводка для админки: что сейчас запрещено и сколько было отказов.
type GuardStats struct {
	Version        string           `json:"version"`
	BlockedTargets int              `json:"blocked_targets"`
	TotalDenials   int64            `json:"total_denials"`
	TopTargets     map[string]int64 `json:"top_targets"`
}
