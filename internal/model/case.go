package model

import (
	"errors"
	"time"
)

// ErrCaseNotFound is the only fatal condition in the pipeline: without a
// case there is nothing to analyze.
var ErrCaseNotFound = errors.New("case not found")

// ContractType identifies how the property changes hands.
type ContractType string

const (
	ContractSale             ContractType = "sale"                    // outright purchase
	ContractLeaseDeposit     ContractType = "lease-deposit"           // jeonse: lump-sum refundable deposit, no rent
	ContractLeaseDepositRent ContractType = "lease-deposit-plus-rent" // deposit plus monthly rent
)

// IsLease reports whether the contract is one of the lease-type structures.
func (t ContractType) IsLease() bool {
	return t == ContractLeaseDeposit || t == ContractLeaseDepositRent
}

// Valid reports whether t is a known contract type.
func (t ContractType) Valid() bool {
	switch t {
	case ContractSale, ContractLeaseDeposit, ContractLeaseDepositRent:
		return true
	}
	return false
}

// Case is one property transaction under review. Cases are created outside
// the analysis core (import CLI, upstream service) and are read-only here.
type Case struct {
	ID           string       `json:"id"`
	Address      string       `json:"address"` // free-text property address
	ContractType ContractType `json:"contract_type"`
	Deposit      *int64       `json:"deposit,omitempty"`      // KRW, lease deposit (jeonse lump sum)
	Price        *int64       `json:"price,omitempty"`        // KRW, declared sale price
	MonthlyRent  *int64       `json:"monthly_rent,omitempty"` // KRW, only for deposit-plus-rent
	RegionCode   *string      `json:"region_code,omitempty"`  // legal district code, nil until resolved
	CreatedAt    time.Time    `json:"created_at"`
}

// Terms extracts the contract figures the scorer needs. Absent figures stay
// nil; the scorer must never read a missing value as zero.
func (c *Case) Terms() ContractTerms {
	return ContractTerms{
		ContractType: c.ContractType,
		Deposit:      c.Deposit,
		Price:        c.Price,
		MonthlyRent:  c.MonthlyRent,
	}
}

// ContractTerms is the scoring-relevant slice of a Case.
type ContractTerms struct {
	ContractType ContractType `json:"contract_type"`
	Deposit      *int64       `json:"deposit,omitempty"`
	Price        *int64       `json:"price,omitempty"`
	MonthlyRent  *int64       `json:"monthly_rent,omitempty"`
}

// SourceArtifact references a stored registry document for a case. At most
// one per case; a case without an artifact follows the lower-confidence path.
type SourceArtifact struct {
	CaseID      string    `json:"case_id"`
	StoragePath string    `json:"storage_path"`
	ContentType string    `json:"content_type,omitempty"` // application/pdf, text/html, text/plain
	UploadedAt  time.Time `json:"uploaded_at"`
}
