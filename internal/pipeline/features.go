package pipeline

import "github.com/hyeonwoo-dev/jipcheck/internal/model"

// BuildFeatures flattens the scoring inputs and result into the single
// prompt-ready, test-ready view. A Done run always produces one, even when
// every optional field is nil.
func BuildFeatures(c *model.Case, reg *model.RegistryDocument, mkt *model.MarketSnapshot, riskScore model.RiskScore) model.RiskFeatures {
	features := model.RiskFeatures{
		ContractType: c.ContractType,
		Deposit:      c.Deposit,
		Price:        c.Price,
		MonthlyRent:  c.MonthlyRent,
		Total:        riskScore.Total,
		Level:        riskScore.Level,
		Partial:      riskScore.Partial,
	}

	if reg != nil {
		features.LienCount = len(reg.Liens)
		total := reg.MortgageTotal()
		features.MortgageTotal = &total
		for _, s := range reg.Seizures {
			switch s.Kind {
			case model.SeizureAttachment:
				features.SeizureCount++
			case model.SeizureProvisional:
				features.ProvisionalCount++
			}
		}
		features.LeaseRightCount = len(reg.LeaseRights)
	}

	if mkt != nil {
		code := mkt.RegionCode
		features.RegionCode = &code
		features.EstimatedValue = mkt.EstimatedValue()
		features.RecoveryValue = mkt.RecoveryValue

		primary := mkt.Sale
		if c.ContractType.IsLease() && mkt.Lease != nil {
			primary = mkt.Lease
		}
		if primary != nil {
			count := primary.SampleCount
			features.MarketSampleCount = &count
			features.MarketMean = primary.TrimmedMean
		}

		if value := mkt.EstimatedValue(); value != nil && *value > 0 {
			if c.Deposit != nil {
				ratio := float64(*c.Deposit) / float64(*value) * 100
				features.JeonseRatioPct = &ratio
			}
			if reg != nil {
				ratio := float64(reg.MortgageTotal()) / float64(*value) * 100
				features.MortgageRatioPct = &ratio
			}
		}
	}

	return features
}
