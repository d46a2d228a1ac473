// Package commands defines the banks-etl command line.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"banks-etl/config"
	"banks-etl/utils"
)

// app carries state shared by every subcommand once PersistentPreRunE ran.
type app struct {
	cfg    *config.Config
	logger *utils.Logger

	url          string
	rates        string
	csvPath      string
	table        string
	progressPath string
	driver       string
	dsn          string
	fetchMode    string
	rounding     string
	loadEnriched bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
// Running it without a subcommand runs the pipeline.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "banks-etl",
		Short: "Extract, convert and load the largest banks by market capitalization",
		Long: "Scrapes the largest-banks table from an archived wiki page, converts market caps " +
			"to GBP, EUR and INR, writes a CSV and a database table, then prints three report queries.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.driver, "driver", "", "store driver: sqlite, postgres or pgx")
	pf.StringVar(&a.dsn, "dsn", "", "store data source name")
	pf.StringVar(&a.table, "table", "", "table to replace and query")
	addRunFlags(rootCmd.Flags(), a)

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newQueryCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))

	return rootCmd
}

func addRunFlags(fs *pflag.FlagSet, a *app) {
	fs.StringVar(&a.url, "url", "", "source page URL")
	fs.StringVar(&a.rates, "rates", "", "exchange rate file (.csv or .xlsx)")
	fs.StringVar(&a.csvPath, "csv", "", "CSV output path")
	fs.StringVar(&a.progressPath, "log", "", "progress log path")
	fs.StringVar(&a.fetchMode, "fetcher", "", "page fetcher: http or browser")
	fs.StringVar(&a.rounding, "rounding", "", "rounding rule: half_even or decimal")
	fs.BoolVar(&a.loadEnriched, "load-enriched", false, "store the converted records instead of the extracted ones")
}

func (a *app) init(fs *pflag.FlagSet) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.applyFlags(cfg, fs)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := utils.NewLoggerWithConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func (a *app) applyFlags(cfg *config.Config, fs *pflag.FlagSet) {
	set := func(name string, dst *string, val string) {
		if fs.Changed(name) {
			*dst = val
		}
	}
	set("url", &cfg.Source.URL, a.url)
	set("rates", &cfg.Rates.Path, a.rates)
	set("csv", &cfg.Output.CSVPath, a.csvPath)
	set("log", &cfg.Log.ProgressPath, a.progressPath)
	set("fetcher", &cfg.Fetch.Mode, a.fetchMode)
	set("rounding", &cfg.Transform.Rounding, a.rounding)
	set("driver", &cfg.Store.Driver, a.driver)
	set("dsn", &cfg.Store.DSN, a.dsn)
	set("table", &cfg.Store.Table, a.table)
	if fs.Changed("load-enriched") {
		cfg.Store.LoadEnriched = a.loadEnriched
	}
}
