package model

import "time"

// Lien is a registered mortgage-type security interest (근저당권).
type Lien struct {
	Amount   *int64 `json:"amount,omitempty"` // registered maximum claim (채권최고액), KRW; nil when unreadable
	Creditor string `json:"creditor"`         // 근저당권자
}

// SeizureKind distinguishes registered creditor actions.
type SeizureKind string

const (
	SeizureAttachment  SeizureKind = "seizure"                // 압류
	SeizureProvisional SeizureKind = "provisional_attachment" // 가압류
)

// Seizure records one seizure or provisional attachment entry.
type Seizure struct {
	Kind SeizureKind `json:"kind"`
	Date *time.Time  `json:"date,omitempty"` // registration date when parsed
}

// LeaseRight records a registered jeonse right or housing lease right
// (전세권, 주택임차권).
type LeaseRight struct {
	Holder  string `json:"holder"`
	Deposit *int64 `json:"deposit,omitempty"` // KRW, nil when not stated
}

// RegistryDocument holds the risk-relevant facts parsed from registry text.
// Every field resolves independently: an unparsed field is nil or an empty
// slice, never a zero value standing in for "unknown". The unmasked document
// exists for scoring only; anything shown to a person goes through Mask.
type RegistryDocument struct {
	Owner           *string      `json:"owner,omitempty"`             // 소유자 name
	OwnerResidentNo *string      `json:"owner_resident_no,omitempty"` // 주민등록번호 as printed
	Address         *string      `json:"address,omitempty"`           // 소재지번 raw address
	Liens           []Lien       `json:"liens"`
	Seizures        []Seizure    `json:"seizures"`
	LeaseRights     []LeaseRight `json:"lease_rights"`
}

// MortgageTotal sums the lien amounts that parsed. Liens with an
// unreadable amount still exist in Liens; UnknownAmountLiens counts them.
func (d *RegistryDocument) MortgageTotal() int64 {
	var total int64
	for _, l := range d.Liens {
		if l.Amount != nil {
			total += *l.Amount
		}
	}
	return total
}

// UnknownAmountLiens counts liens whose registered amount could not be read.
func (d *RegistryDocument) UnknownAmountLiens() int {
	var n int
	for _, l := range d.Liens {
		if l.Amount == nil {
			n++
		}
	}
	return n
}

// HasSeizure reports whether any plain seizure entry exists.
func (d *RegistryDocument) HasSeizure() bool {
	for _, s := range d.Seizures {
		if s.Kind == SeizureAttachment {
			return true
		}
	}
	return false
}

// HasProvisionalAttachment reports whether any 가압류 entry exists.
func (d *RegistryDocument) HasProvisionalAttachment() bool {
	for _, s := range d.Seizures {
		if s.Kind == SeizureProvisional {
			return true
		}
	}
	return false
}

// MaskedRegistry is the display-safe projection of a RegistryDocument.
// Personally identifying fragments are redacted deterministically; the
// payload serializes directly for UI or logs.
type MaskedRegistry struct {
	Owner           string       `json:"owner,omitempty"`
	OwnerResidentNo string       `json:"owner_resident_no,omitempty"`
	Address         string       `json:"address,omitempty"`
	Liens           []MaskedLien `json:"liens"`
	Seizures        []Seizure    `json:"seizures"` // no personal data, passed through
	LeaseRights     []MaskedLien `json:"lease_rights"`
}

// MaskedLien mirrors Lien/LeaseRight with the party name masked.
type MaskedLien struct {
	Amount *int64 `json:"amount,omitempty"`
	Party  string `json:"party"`
}
