package permission

import "github.com/xela07ax/nosigns-guard/internal/domain"

// Static — фиксированный список игроков с bypass из конфига. Для серверов без Redis и для тестов.
type Static struct {
	actors map[string]struct{}
}

func NewStatic(actors []string) *Static {
	s := &Static{actors: make(map[string]struct{}, len(actors))}
	for _, a := range actors {
		s.actors[a] = struct{}{}
	}
	return s
}

func (s *Static) HasPermission(actorID, permission string) bool {
	if permission != domain.PermissionIgnore {
		return false
	}
	_, ok := s.actors[actorID]
	return ok
}
