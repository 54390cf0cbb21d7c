package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "nosigns"
)

// Ключи для Sets (состояние)
const (
	RedisKeyBypassActors = RedisNamespace + ":perm:ignore_set"
	RedisKeyLockBypass   = RedisNamespace + ":lock:warmup:ignore"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanBypass — "actor_id:on" / "actor_id:off" при выдаче и отзыве bypass.
	RedisChanBypass = RedisNamespace + ":perm:ignore-signal"
	// RedisChanRulesReload — админка поменяла правила, всем инстансам перечитать хранилище.
	RedisChanRulesReload = RedisNamespace + ":rules:reload"
)
