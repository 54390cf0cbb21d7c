package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/infra"
)

// app — общее состояние команд: конфиг и логгер поднимаются один раз в PersistentPreRunE.
type app struct {
	configPath string
	cfg        *infra.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "guard",
		Short:         "No Signs On Deployables placement guard",
		Long:          "Blocks wooden signs from being attached to configured deployables unless the player holds nosignsondeployables.ignore.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			logger, err := infra.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml or ./configs/config.yaml)")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newRulesCmd(a))
	return cmd
}
