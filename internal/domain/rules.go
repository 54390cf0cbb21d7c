package domain

// PermissionIgnore — единственный грант, освобождающий игрока от всех ограничений размещения.
const PermissionIgnore = "nosignsondeployables.ignore"

// RuleConfig — версионированная конфигурация правил, в том виде, в каком она лежит в хранилище.
// Ключи JSON совпадают с форматом конфига, который админы серверов уже правят руками.
type RuleConfig struct {
	Version string `json:"Version"`

	// DeployableShortPrefabNames — short prefab name деплояблов, на которые нельзя вешать табличку.
	// Порядок сохраняется только ради стабильной сериализации, семантика: множество.
	DeployableShortPrefabNames []string `json:"Deployable Short Prefab Names"`
}

// Clone возвращает глубокую копию: снапшоты правил не должны делить backing array.
func (c RuleConfig) Clone() RuleConfig {
	out := RuleConfig{Version: c.Version}
	if c.DeployableShortPrefabNames != nil {
		out.DeployableShortPrefabNames = append(make([]string, 0, len(c.DeployableShortPrefabNames)), c.DeployableShortPrefabNames...)
	}
	return out
}

// IsBlocked — точное, регистрозависимое совпадение ключа цели.
func (c RuleConfig) IsBlocked(targetKey string) bool {
	for _, k := range c.DeployableShortPrefabNames {
		if k == targetKey {
			return true
		}
	}
	return false
}
