package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/rules"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and migrate the rule configuration",
	}
	cmd.AddCommand(newRulesShowCmd(a), newRulesMigrateCmd(a))
	return cmd
}

// rules show печатает то, что лежит в хранилище, без миграции и записи.
func newRulesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored rule configuration as is",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, closeFn, err := openRuleStorage(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if fileStorage, ok := storage.(*rules.FileStorage); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", fileStorage.Path())
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "source: postgres, plugin %s\n", a.cfg.Rules.Plugin)
			}

			doc, err := storage.Read(cmd.Context())
			if err != nil {
				return err
			}
			if doc == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored configuration, defaults apply")
				return nil
			}

			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if rules.IsOutdated(doc.Version) {
				fmt.Fprintf(cmd.OutOrStdout(), "version %q is older than %s, run `guard rules migrate`\n", doc.Version, rules.CurrentVersion)
			}
			return nil
		},
	}
}

// rules migrate: то же, что делает serve при старте, но ошибка записи фатальна.
func newRulesMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Load, migrate and write back the rule configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, closeFn, err := openRuleStorage(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := rules.NewStore(storage, a.logger).Load(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("rules migrated",
				zap.String("version", cfg.Version),
				zap.Int("blocked_targets", len(cfg.DeployableShortPrefabNames)))
			return nil
		},
	}
}
