// Package score applies the deterministic risk formulas. Scoring is a pure
// function of its inputs: no I/O, no clock, no randomness. Every factor
// carries the numbers and band table it was derived from so a reviewer can
// replay the arithmetic by hand.
package score

import (
	"fmt"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Band tables. Sub-score curves are step functions: a banded threshold is
// auditable against published criteria in a way interpolated points are not.
var (
	jeonseRatioBands = []band{
		{min: 90, points: 40},
		{min: 80, points: 25},
		{min: 70, points: 10},
		{min: 0, points: 0},
	}
	mortgageRatioBands = []band{
		{min: 70, points: 30},
		{min: 50, points: 20},
		{min: 30, points: 10},
		{min: 0, points: 0},
	}
	pricePremiumBands = []band{
		{min: 20, points: 40},
		{min: 10, points: 25},
		{min: 0.0001, points: 10}, // any premium at all
		{min: -1 << 20, points: 0},
	}
	locationRiskBands = []band{
		{min: 75, points: 40},
		{min: 50, points: 25},
		{min: 25, points: 10},
		{min: 0, points: 0},
	}
)

type band struct {
	min    float64 // inclusive lower bound, percent
	points int
}

// lookup returns the points for the first band whose lower bound v meets.
func lookup(bands []band, v float64) int {
	for _, b := range bands {
		if v >= b.min {
			return b.points
		}
	}
	return 0
}

// bandTable renders a band list for a factor's Data map.
func bandTable(bands []band) []string {
	rows := make([]string, 0, len(bands))
	for _, b := range bands {
		rows = append(rows, fmt.Sprintf(">=%.4g%% -> %d", b.min, b.points))
	}
	return rows
}

// Scorer computes a RiskScore from contract terms, registry facts and
// market statistics. Either optional input may be nil; the corresponding
// factors are then omitted rather than guessed, and the score is partial.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score runs the formula for the contract type. Lease contracts are scored
// on deposit exposure (jeonse ratio, mortgage ratio, encumbrances); sale
// contracts on price premium, location demand and legal risk.
func (s *Scorer) Score(terms model.ContractTerms, reg *model.RegistryDocument, mkt *model.MarketSnapshot) model.RiskScore {
	var result model.RiskScore

	if terms.ContractType.IsLease() {
		result = s.scoreLease(terms, reg, mkt)
	} else {
		result = s.scoreSale(terms, reg, mkt)
	}

	if reg == nil {
		result.Missing = append(result.Missing, "registry")
	}
	if mkt == nil {
		result.Missing = append(result.Missing, "market")
	}
	result.Partial = len(result.Missing) > 0
	result.Level = model.LevelFromScore(result.Total)
	return result
}

// scoreLease: jeonse ratio 0–40, mortgage ratio 0–30, encumbrance 0–30.
func (s *Scorer) scoreLease(terms model.ContractTerms, reg *model.RegistryDocument, mkt *model.MarketSnapshot) model.RiskScore {
	var result model.RiskScore
	value := mkt.EstimatedValue()

	if factor, ok := s.jeonseRatio(terms.Deposit, value); ok {
		result.Total += factor.Points
		result.Factors = append(result.Factors, factor)
	} else if mkt != nil && value == nil {
		// Market data arrived but held no sale comparables.
		result.Missing = append(result.Missing, "market_value")
	}

	if reg != nil {
		if factor, ok := s.mortgageRatio(reg, value); ok {
			result.Total += factor.Points
			result.Factors = append(result.Factors, factor)
		}
		factor := s.encumbrance(reg)
		result.Total += factor.Points
		result.Factors = append(result.Factors, factor)
	}

	return result
}

// scoreSale: price premium 0–40, location/demand 0–40, legal risk 0–20.
func (s *Scorer) scoreSale(terms model.ContractTerms, reg *model.RegistryDocument, mkt *model.MarketSnapshot) model.RiskScore {
	var result model.RiskScore

	var mean *int64
	if mkt != nil && mkt.Sale != nil {
		mean = mkt.Sale.TrimmedMean
	}
	if factor, ok := s.pricePremium(terms.Price, mean); ok {
		result.Total += factor.Points
		result.Factors = append(result.Factors, factor)
	} else if mkt != nil && mean == nil {
		result.Missing = append(result.Missing, "market_value")
	}

	if mkt != nil {
		if factor, ok := s.locationDemand(mkt.Location); ok {
			result.Total += factor.Points
			result.Factors = append(result.Factors, factor)
		} else {
			result.Missing = append(result.Missing, "location")
		}
	}

	if reg != nil {
		factor := s.legalRisk(reg)
		result.Total += factor.Points
		result.Factors = append(result.Factors, factor)
	}

	return result
}

// jeonseRatio scores deposit / estimated value. Omitted when either side
// is unknown: a missing value must never read as a 0% ratio.
func (s *Scorer) jeonseRatio(deposit, value *int64) (model.Factor, bool) {
	if deposit == nil || value == nil || *value <= 0 {
		return model.Factor{}, false
	}

	ratio := float64(*deposit) / float64(*value) * 100
	points := lookup(jeonseRatioBands, ratio)

	return model.Factor{
		Name:   "jeonse_ratio",
		Points: points,
		Max:    40,
		Reason: fmt.Sprintf("Deposit is %.1f%% of the estimated property value", ratio),
		Data: map[string]interface{}{
			"deposit":         *deposit,
			"estimated_value": *value,
			"ratio_pct":       ratio,
			"bands":           bandTable(jeonseRatioBands),
		},
	}, true
}

// mortgageRatio scores registered lien total / estimated value.
func (s *Scorer) mortgageRatio(reg *model.RegistryDocument, value *int64) (model.Factor, bool) {
	if value == nil || *value <= 0 {
		return model.Factor{}, false
	}

	total := reg.MortgageTotal()
	unknown := reg.UnknownAmountLiens()
	ratio := float64(total) / float64(*value) * 100
	points := lookup(mortgageRatioBands, ratio)

	reason := fmt.Sprintf("Registered liens total %.1f%% of the estimated property value", ratio)
	if unknown > 0 {
		reason = fmt.Sprintf("Readable liens total %.1f%% of the estimated property value; %d lien(s) with unreadable amount excluded", ratio, unknown)
	}

	return model.Factor{
		Name:   "mortgage_ratio",
		Points: points,
		Max:    30,
		Reason: reason,
		Data: map[string]interface{}{
			"mortgage_total":       total,
			"estimated_value":      *value,
			"lien_count":           len(reg.Liens),
			"liens_unknown_amount": unknown,
			"ratio_pct":            ratio,
			"bands":                bandTable(mortgageRatioBands),
		},
	}, true
}

// encumbrance scores registered creditor actions: +10 for any seizure, +10
// for any provisional attachment. The remaining 10 points are reserved for
// an ownership-dispute signal with no data source yet; they score 0.
func (s *Scorer) encumbrance(reg *model.RegistryDocument) model.Factor {
	points := 0
	if reg.HasSeizure() {
		points += 10
	}
	if reg.HasProvisionalAttachment() {
		points += 10
	}

	reason := "No seizures or provisional attachments registered"
	if points > 0 {
		reason = fmt.Sprintf("Registered creditor actions present (seizure=%t, provisional attachment=%t)",
			reg.HasSeizure(), reg.HasProvisionalAttachment())
	}

	return model.Factor{
		Name:   "encumbrance",
		Points: points,
		Max:    30,
		Reason: reason,
		Data: map[string]interface{}{
			"seizure":                reg.HasSeizure(),
			"provisional_attachment": reg.HasProvisionalAttachment(),
			"ownership_dispute":      "reserved, not yet sourced",
		},
	}
}

// pricePremium scores the asking price against the trimmed market mean.
func (s *Scorer) pricePremium(price, mean *int64) (model.Factor, bool) {
	if price == nil || mean == nil || *mean <= 0 {
		return model.Factor{}, false
	}

	premium := (float64(*price) - float64(*mean)) / float64(*mean) * 100
	points := lookup(pricePremiumBands, premium)

	return model.Factor{
		Name:   "price_premium",
		Points: points,
		Max:    40,
		Reason: fmt.Sprintf("Asking price is %+.1f%% against the trimmed market mean", premium),
		Data: map[string]interface{}{
			"price":       *price,
			"market_mean": *mean,
			"premium_pct": premium,
			"bands":       bandTable(pricePremiumBands),
		},
	}, true
}

// locationDemand averages whichever demand indicators are present. Each
// sub-factor is independently nullable; with none present the factor is
// omitted entirely.
func (s *Scorer) locationDemand(loc *model.LocationProfile) (model.Factor, bool) {
	if loc == nil {
		return model.Factor{}, false
	}

	data := map[string]interface{}{}
	var sum float64
	var n int
	add := func(name string, v *float64) {
		if v == nil {
			return
		}
		data[name] = *v
		sum += *v
		n++
	}
	add("school_district", loc.SchoolDistrict)
	add("oversupply", loc.Oversupply)
	add("job_demand", loc.JobDemand)

	if n == 0 {
		return model.Factor{}, false
	}

	riskPct := sum / float64(n) * 100
	points := lookup(locationRiskBands, riskPct)
	data["risk_pct"] = riskPct
	data["indicators_present"] = n
	data["bands"] = bandTable(locationRiskBands)

	return model.Factor{
		Name:   "location_demand",
		Points: points,
		Max:    40,
		Reason: fmt.Sprintf("Location risk %.0f%% across %d demand indicator(s)", riskPct, n),
		Data:   data,
	}, true
}

// legalRisk is non-zero only when registry facts show encumbrances.
func (s *Scorer) legalRisk(reg *model.RegistryDocument) model.Factor {
	points := 0
	if reg.HasSeizure() {
		points += 10
	}
	if reg.HasProvisionalAttachment() {
		points += 5
	}
	if len(reg.Liens) > 0 {
		points += 5
	}
	if points > 20 {
		points = 20
	}

	reason := "Registry shows no encumbrances"
	if points > 0 {
		reason = fmt.Sprintf("Registry shows encumbrances (%d lien(s), seizure=%t, provisional attachment=%t)",
			len(reg.Liens), reg.HasSeizure(), reg.HasProvisionalAttachment())
	}

	return model.Factor{
		Name:   "legal_risk",
		Points: points,
		Max:    20,
		Reason: reason,
		Data: map[string]interface{}{
			"lien_count":             len(reg.Liens),
			"seizure":                reg.HasSeizure(),
			"provisional_attachment": reg.HasProvisionalAttachment(),
		},
	}
}
