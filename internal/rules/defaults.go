package rules

import "github.com/xela07ax/nosigns-guard/internal/domain"

// DefaultConfig — каноничный набор деплояблов. Чистая функция, каждый вызов отдает новый слайс.
func DefaultConfig() domain.RuleConfig {
	return domain.RuleConfig{
		Version: CurrentVersion,
		DeployableShortPrefabNames: []string{
			"locker.deployed",
			"woodbox_deployed",
			"box.wooden.large",
			"furnace",
			"workbench1.deployed",
			"workbench2.deployed",
			"workbench3.deployed",
		},
	}
}

// Load превращает сохраненную конфигурацию в рабочую.
// nil — хранилище пустое, отдаем дефолт. Устаревшая версия уходит в Migrate.
func Load(persisted *domain.RuleConfig) domain.RuleConfig {
	if persisted == nil {
		return DefaultConfig()
	}
	cfg := normalize(persisted.Clone())
	if IsOutdated(cfg.Version) {
		return Migrate(cfg)
	}
	return cfg
}

// Migrate — пороговая политика: до BreakingVersion данные выбрасываются и заменяются дефолтом.
// Начиная с порога список сохраняется, меняется только штамп версии.
func Migrate(old domain.RuleConfig) domain.RuleConfig {
	if isBeforeBreaking(old.Version) {
		return DefaultConfig()
	}
	cfg := normalize(old.Clone())
	cfg.Version = CurrentVersion
	return cfg
}

// normalize держит инвариант списка: не nil и без дублей, порядок первого вхождения.
func normalize(cfg domain.RuleConfig) domain.RuleConfig {
	if cfg.DeployableShortPrefabNames == nil {
		cfg.DeployableShortPrefabNames = DefaultConfig().DeployableShortPrefabNames
		return cfg
	}
	cfg.DeployableShortPrefabNames = dedupe(cfg.DeployableShortPrefabNames)
	return cfg
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
