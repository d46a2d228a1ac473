package commands

import (
	"github.com/spf13/cobra"

	"banks-etl/services"
	"banks-etl/storage"
)

func newQueryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one SQL statement against the store and print the result",
		Example: `  banks-etl query "SELECT Name FROM Largest_banks LIMIT 5"
  banks-etl query --driver postgres "SELECT AVG(MC_USD_Billion) FROM Largest_banks"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := storage.NewSQLStore(cmd.Context(), a.cfg.Store.Driver, a.cfg.StoreDSN())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			_, err = services.NewQueryRunner(store, cmd.OutOrStdout(), a.logger).Run(cmd.Context(), args[0])
			return err
		},
	}
}
