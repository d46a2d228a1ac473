package models

import "github.com/rotisserie/eris"

// BankRecord is one row of the source table, exactly as extracted.
// It is never modified after the extractor creates it.
type BankRecord struct {
	Rank         int     `csv:"-" db:"-"`
	Name         string  `csv:"Name" db:"Name"`
	MCUSDBillion float64 `csv:"MC_USD_Billion" db:"MC_USD_Billion"`
}

// EnrichedBankRecord is a BankRecord with the market cap converted into
// the reporting currencies. MCUSDBillion has already been rescaled by the
// GBP rate, so it no longer holds a USD figure.
type EnrichedBankRecord struct {
	Name         string  `csv:"Name" db:"Name"`
	MCUSDBillion float64 `csv:"MC_USD_Billion" db:"MC_USD_Billion"`
	MCGBPBillion float64 `csv:"MC_GBP_Billion" db:"MC_GBP_Billion"`
	MCEURBillion float64 `csv:"MC_EUR_Billion" db:"MC_EUR_Billion"`
	MCINRBillion float64 `csv:"MC_INR_Billion" db:"MC_INR_Billion"`
}

// RateTable maps an upper-case ISO 4217 code to its exchange rate against USD.
type RateTable map[string]float64

// Rate returns the rate for code, or ErrMissingRate.
func (t RateTable) Rate(code string) (float64, error) {
	r, ok := t[code]
	if !ok {
		return 0, Classify(ErrMissingRate, eris.Errorf("currency %s not in rate table", code))
	}
	return r, nil
}

// QueryResult holds the rows returned by a literal SQL query.
type QueryResult struct {
	Query   string
	Columns []string
	Rows    [][]any
}

// Scalar returns the single value of a 1x1 result.
func (r *QueryResult) Scalar() (any, bool) {
	if len(r.Rows) != 1 || len(r.Rows[0]) != 1 {
		return nil, false
	}
	return r.Rows[0][0], true
}
