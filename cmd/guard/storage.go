package main

import (
	"context"
	"fmt"

	"github.com/xela07ax/nosigns-guard/internal/infra"
	"github.com/xela07ax/nosigns-guard/internal/repository/postgres"
	"github.com/xela07ax/nosigns-guard/internal/rules"
)

// openRuleStorage выбирает бэкенд по rules.storage. closer всегда не nil.
func openRuleStorage(ctx context.Context, cfg *infra.Config) (rules.Storage, func(), error) {
	switch cfg.Rules.Storage {
	case "postgres":
		repo, err := postgres.NewRulesRepo(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns, cfg.Rules.Plugin)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "file":
		return rules.NewFileStorage(cfg.Rules.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown rules storage %q", cfg.Rules.Storage)
	}
}
