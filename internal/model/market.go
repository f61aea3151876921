package model

import "time"

// TransactionKind separates comparable sale and lease records.
type TransactionKind string

const (
	TransactionSale  TransactionKind = "sale"
	TransactionLease TransactionKind = "lease"
)

// Transaction is one comparable transaction reported for a region and month.
// Amount is the sale price for sales and the deposit for leases.
type Transaction struct {
	Kind         TransactionKind `json:"kind"`
	Amount       int64           `json:"amount"` // KRW
	MonthlyRent  *int64          `json:"monthly_rent,omitempty"`
	AreaM2       *float64        `json:"area_m2,omitempty"`
	ContractDate string          `json:"contract_date,omitempty"` // YYYY-MM-DD as reported
	YearMonth    string          `json:"year_month"`              // YYYYMM window the record came from
}

// WindowStats aggregates one trailing transaction window.
// TrimmedMean is nil when the window held no samples; with one or two samples
// the mean is computed without trimming.
type WindowStats struct {
	Kind         TransactionKind `json:"kind"`
	Months       int             `json:"months"` // trailing window length
	SampleCount  int             `json:"sample_count"`
	TrimmedMean  *int64          `json:"trimmed_mean,omitempty"` // KRW
	Transactions []Transaction   `json:"transactions"`
	MonthsFailed []string        `json:"months_failed,omitempty"` // YYYYMM fetches that exhausted retries
}

// Region is a resolved administrative district: the fixed-length legal code
// plus whatever demand indicators the lookup service reported for it. Every
// indicator is optional; the region service does not cover all districts.
type Region struct {
	Code     string           `json:"code"`
	Name     string           `json:"name,omitempty"`
	Location *LocationProfile `json:"location,omitempty"`
}

// LocationProfile carries the location/demand indicators used by the sale
// scoring formula. Each value is a 0.0–1.0 risk fraction (higher is worse)
// and is nil when the lookup service had no data for that indicator.
type LocationProfile struct {
	SchoolDistrict *float64 `json:"school_district,omitempty"` // weak school district
	Oversupply     *float64 `json:"oversupply,omitempty"`      // local oversupply risk
	JobDemand      *float64 `json:"job_demand,omitempty"`      // weak employment demand
}

// MarketSnapshot holds the comparable-market statistics gathered for a case.
// Lease-type contracts carry both a lease window (rental market average) and
// a sale window (sale-equivalent value); sale contracts carry only the sale
// window for the current month.
type MarketSnapshot struct {
	RegionCode    string           `json:"region_code"`
	AsOf          time.Time        `json:"as_of"`
	Lease         *WindowStats     `json:"lease,omitempty"`
	Sale          *WindowStats     `json:"sale,omitempty"`
	RecoveryValue *int64           `json:"recovery_value,omitempty"` // auction-recovery-adjusted sale value, KRW
	Location      *LocationProfile `json:"location,omitempty"`       // demand indicators from the region lookup
}

// EstimatedValue returns the sale-equivalent property value, nil when the
// sale window produced no mean.
func (s *MarketSnapshot) EstimatedValue() *int64 {
	if s == nil || s.Sale == nil {
		return nil
	}
	return s.Sale.TrimmedMean
}
