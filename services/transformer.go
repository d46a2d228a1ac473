package services

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"banks-etl/models"
	"banks-etl/utils"
)

// Rounder rounds a value to two decimal places.
type Rounder func(float64) float64

// RoundHalfEven scales by 100, rounds half to even and scales back. This is
// the arithmetic numpy's round uses, so binary representation error is kept:
// 1.005*100 is 100.49999999999999 and rounds to 1.0; an exact tie such as
// 0.125 goes to the even neighbour 0.12.
func RoundHalfEven(f float64) float64 {
	return math.RoundToEven(f*100) / 100
}

// RoundDecimal rounds the shortest decimal representation of f half away
// from zero: 1.005 rounds to 1.01 and 0.125 to 0.13.
func RoundDecimal(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

// RounderFor maps a transform.rounding config value to a Rounder.
func RounderFor(name string) (Rounder, error) {
	switch name {
	case "", "half_even":
		return RoundHalfEven, nil
	case "decimal":
		return RoundDecimal, nil
	}
	return nil, eris.Errorf("transform: unknown rounding %q", name)
}

// Transformer converts extracted bank records into the reporting currencies.
type Transformer struct {
	logger *utils.Logger
	round  Rounder
}

// NewTransformer creates a Transformer. A nil round means RoundHalfEven.
func NewTransformer(logger *utils.Logger, round Rounder) *Transformer {
	if round == nil {
		round = RoundHalfEven
	}
	return &Transformer{logger: logger, round: round}
}

// Transform returns new enriched records; the input is left untouched.
//
// The market cap is first rescaled by the GBP rate and the GBP, EUR and INR
// columns are then derived from that rescaled value. MCUSDBillion therefore
// ends up holding round(usd*GBP, 2), not a USD figure.
func (t *Transformer) Transform(records []*models.BankRecord, rates models.RateTable) ([]*models.EnrichedBankRecord, error) {
	gbp, err := rates.Rate("GBP")
	if err != nil {
		return nil, err
	}
	eur, err := rates.Rate("EUR")
	if err != nil {
		return nil, err
	}
	inr, err := rates.Rate("INR")
	if err != nil {
		return nil, err
	}

	out := make([]*models.EnrichedBankRecord, 0, len(records))
	for _, r := range records {
		usd := t.round(r.MCUSDBillion * gbp)
		out = append(out, &models.EnrichedBankRecord{
			Name:         r.Name,
			MCUSDBillion: usd,
			MCGBPBillion: t.round(usd * gbp),
			MCEURBillion: t.round(usd * eur),
			MCINRBillion: t.round(usd * inr),
		})
	}

	t.logger.Info("[transform] Converted %d records (GBP=%v EUR=%v INR=%v)", len(out), gbp, eur, inr)
	return out, nil
}
