package services

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"

	"banks-etl/config"
	"banks-etl/models"
	"banks-etl/scraper"
	"banks-etl/scraper/banks"
	"banks-etl/storage"
	"banks-etl/utils"
)

// Progress log messages, one per stage boundary.
const (
	MsgStart       = "Preliminaries complete. Initiating ETL process"
	MsgExtracted   = "Data extraction complete. Initiating Transformation process"
	MsgTransformed = "Data transformation complete. Initiating loading process"
	MsgCSVSaved    = "Data has saved to csv file."
	MsgConnected   = "SQL Connection initiated."
	MsgTableLoaded = "Data loaded to Database as table. Running the query"
	MsgComplete    = "Process Complete."
)

// Extractor produces the raw record set from a source page.
type Extractor interface {
	Extract(ctx context.Context, url string) ([]*models.BankRecord, error)
}

// StoreOpener acquires a store connection for one run.
type StoreOpener func(ctx context.Context) (storage.Store, error)

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithOutput redirects query output (stdout by default).
func WithOutput(w io.Writer) Option { return func(p *Pipeline) { p.out = w } }

// WithExtractor replaces the page extractor.
func WithExtractor(e Extractor) Option { return func(p *Pipeline) { p.extractor = e } }

// WithStoreOpener replaces how the relational store is opened.
func WithStoreOpener(fn StoreOpener) Option { return func(p *Pipeline) { p.openStore = fn } }

// Pipeline runs extract, transform and load in a fixed order.
type Pipeline struct {
	cfg         *config.Config
	logger      *utils.Logger
	progress    *utils.ProgressLog
	extractor   Extractor
	transformer *Transformer
	openStore   StoreOpener
	out         io.Writer
}

// NewPipeline wires a Pipeline from cfg.
func NewPipeline(cfg *config.Config, logger *utils.Logger, opts ...Option) (*Pipeline, error) {
	round, err := RounderFor(cfg.Transform.Rounding)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:         cfg,
		logger:      logger,
		progress:    utils.NewProgressLog(cfg.Log.ProgressPath),
		transformer: NewTransformer(logger, round),
		out:         os.Stdout,
		openStore: func(ctx context.Context) (storage.Store, error) {
			return storage.NewSQLStore(ctx, cfg.Store.Driver, cfg.StoreDSN())
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.extractor == nil {
		fetcher, err := scraper.New(cfg.Fetch, logger)
		if err != nil {
			return nil, err
		}
		p.extractor = banks.New(fetcher, logger)
	}
	return p, nil
}

// Queries returns the fixed report queries for table. The average is taken
// over MC_GBP_Billion when the enriched set is stored and over
// MC_USD_Billion otherwise, since the raw table has no GBP column.
func Queries(table string, enriched bool) []string {
	avgColumn := "MC_USD_Billion"
	if enriched {
		avgColumn = "MC_GBP_Billion"
	}
	return []string{
		"SELECT * FROM " + table,
		"SELECT AVG(" + avgColumn + ") FROM " + table,
		"SELECT Name FROM " + table + " LIMIT 5",
	}
}

// Run executes one full pass. Any stage error aborts the run; progress
// lines written before the failure are kept. The store connection is
// closed on every exit path once opened.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	log := p.logger.With("run_id", uuid.NewString())

	if err := p.progress.Log(MsgStart); err != nil {
		return err
	}

	raw, err := p.extractor.Extract(ctx, p.cfg.Source.URL)
	if err != nil {
		log.Error("[pipeline] Extraction failed: %v", err)
		return err
	}

	rates, err := storage.LoadRates(p.cfg.Rates.Path)
	if err != nil {
		log.Error("[pipeline] Loading exchange rates failed: %v", err)
		return err
	}
	log.Info("[pipeline] Extracted %d banks, loaded %d exchange rates", len(raw), len(rates))
	if err := p.progress.Log(MsgExtracted); err != nil {
		return err
	}

	enriched, err := p.transformer.Transform(raw, rates)
	if err != nil {
		log.Error("[pipeline] Transformation failed: %v", err)
		return err
	}
	if err := p.progress.Log(MsgTransformed); err != nil {
		return err
	}

	if err := storage.WriteCSV(p.cfg.Output.CSVPath, enriched); err != nil {
		log.Error("[pipeline] CSV write failed: %v", err)
		return err
	}
	log.Info("[pipeline] Enriched records saved to %s", p.cfg.Output.CSVPath)
	if err := p.progress.Log(MsgCSVSaved); err != nil {
		return err
	}

	store, err := p.openStore(ctx)
	if err != nil {
		log.Error("[pipeline] Opening %s store failed: %v", p.cfg.Store.Driver, err)
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := p.progress.Log(MsgConnected); err != nil {
		return err
	}

	// The raw set is what goes to the table unless load_enriched is set,
	// so by default the table and the CSV disagree.
	var rows any = raw
	if p.cfg.Store.LoadEnriched {
		rows = enriched
	}
	if err := store.ReplaceTable(ctx, p.cfg.Store.Table, rows); err != nil {
		log.Error("[pipeline] Table load failed: %v", err)
		return err
	}
	log.Info("[pipeline] Table %s replaced (enriched=%t)", p.cfg.Store.Table, p.cfg.Store.LoadEnriched)
	if err := p.progress.Log(MsgTableLoaded); err != nil {
		return err
	}

	runner := NewQueryRunner(store, p.out, log)
	for _, q := range Queries(p.cfg.Store.Table, p.cfg.Store.LoadEnriched) {
		if _, err := runner.Run(ctx, q); err != nil {
			log.Error("[pipeline] Query failed: %v", err)
			return err
		}
	}

	return p.progress.Log(MsgComplete)
}
