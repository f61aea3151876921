package model

// RiskLevel is the banded classification of a total risk score.
type RiskLevel string

const (
	LevelSafe    RiskLevel = "safe"    // < 25
	LevelCaution RiskLevel = "caution" // 25–49
	LevelDanger  RiskLevel = "danger"  // 50–74
	LevelSevere  RiskLevel = "severe"  // >= 75
)

// LevelFromScore maps a total score to its band. Bounds are inclusive on the
// lower end: 25 is caution, 75 is severe.
func LevelFromScore(total int) RiskLevel {
	switch {
	case total >= 75:
		return LevelSevere
	case total >= 50:
		return LevelDanger
	case total >= 25:
		return LevelCaution
	default:
		return LevelSafe
	}
}

// Factor is one scored risk component with its transparent inputs. Data holds
// the numbers and band table the points were derived from so a reviewer can
// replay the arithmetic.
type Factor struct {
	Name   string                 `json:"name"`
	Points int                    `json:"points"`
	Max    int                    `json:"max"`
	Reason string                 `json:"reason"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// RiskScore is the deterministic scoring result for one case.
type RiskScore struct {
	Total   int       `json:"total"` // 0–100
	Level   RiskLevel `json:"level"`
	Factors []Factor  `json:"factors"`
	Partial bool      `json:"partial"`           // one or more optional inputs were unavailable
	Missing []string  `json:"missing,omitempty"` // which inputs were absent (registry, market)
}

// RiskFeatures is the flattened view of everything that went into scoring:
// registry facts, contract terms and market statistics in one prompt-ready,
// test-ready structure. A Done analysis always carries a RiskFeatures value,
// even when every optional field is nil.
type RiskFeatures struct {
	ContractType ContractType `json:"contract_type"`
	Deposit      *int64       `json:"deposit,omitempty"`
	Price        *int64       `json:"price,omitempty"`
	MonthlyRent  *int64       `json:"monthly_rent,omitempty"`

	LienCount        int    `json:"lien_count"`
	MortgageTotal    *int64 `json:"mortgage_total,omitempty"` // nil when no registry document
	SeizureCount     int    `json:"seizure_count"`
	ProvisionalCount int    `json:"provisional_attachment_count"`
	LeaseRightCount  int    `json:"lease_right_count"`

	RegionCode        *string  `json:"region_code,omitempty"`
	MarketSampleCount *int     `json:"market_sample_count,omitempty"`
	MarketMean        *int64   `json:"market_mean,omitempty"`      // trimmed mean of the primary window
	EstimatedValue    *int64   `json:"estimated_value,omitempty"`  // sale-equivalent value
	RecoveryValue     *int64   `json:"recovery_value,omitempty"`   // auction-recovery-adjusted value
	JeonseRatioPct    *float64 `json:"jeonse_ratio_pct,omitempty"` // deposit / estimated value * 100
	MortgageRatioPct  *float64 `json:"mortgage_ratio_pct,omitempty"`

	Total   int       `json:"total"`
	Level   RiskLevel `json:"level"`
	Partial bool      `json:"partial"`
}
