package commands

import (
	"github.com/spf13/cobra"

	"banks-etl/services"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full extract, transform and load pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd)
		},
	}
	addRunFlags(cmd.Flags(), a)
	return cmd
}

func (a *app) runPipeline(cmd *cobra.Command) error {
	a.logger.Info("=== banks-etl starting ===")
	a.logger.Info("Source: %s | rates: %s | store: %s/%s",
		a.cfg.Source.URL, a.cfg.Rates.Path, a.cfg.Store.Driver, a.cfg.Store.Table)

	p, err := services.NewPipeline(a.cfg, a.logger, services.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	if err := p.Run(cmd.Context()); err != nil {
		a.logger.Error("Pipeline aborted: %v", err)
		return err
	}

	a.logger.Info("Done. CSV -> %s | table -> %s | log -> %s",
		a.cfg.Output.CSVPath, a.cfg.Store.Table, a.cfg.Log.ProgressPath)
	return nil
}
