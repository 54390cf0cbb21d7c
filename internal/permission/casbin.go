package permission

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"go.uber.org/zap"
)

// DefaultModel — RBAC без доменов: игрок (или группа через g) получает permission как объект.
//
//	p, admin, nosignsondeployables.ignore
//	g, 76561198000000000, admin
const DefaultModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// CasbinOracle — группы и гранты как в oxide groups, только в casbin CSV.
type CasbinOracle struct {
	enforcer *casbin.Enforcer
	logger   *zap.Logger
}

// NewCasbinOracle: при пустом modelPath используем DefaultModel.
func NewCasbinOracle(modelPath, policyPath string, logger *zap.Logger) (*CasbinOracle, error) {
	var m model.Model
	var err error
	if modelPath == "" {
		m, err = model.NewModelFromString(DefaultModel)
	} else {
		m, err = model.NewModelFromFile(modelPath)
	}
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	return &CasbinOracle{enforcer: enforcer, logger: logger.Named("casbin")}, nil
}

// HasPermission: ошибка enforcer-а трактуется как отсутствие гранта.
func (o *CasbinOracle) HasPermission(actorID, permission string) bool {
	ok, err := o.enforcer.Enforce(actorID, permission)
	if err != nil {
		o.logger.Error("permission check failed",
			zap.String("actor_id", actorID),
			zap.String("permission", permission),
			zap.Error(err))
		return false
	}
	return ok
}

// Reload перечитывает CSV политики.
func (o *CasbinOracle) Reload() error {
	return o.enforcer.LoadPolicy()
}

// Refresh — для reload-сигнала из Redis.
func (o *CasbinOracle) Refresh(context.Context) error {
	return o.Reload()
}
