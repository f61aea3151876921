package registry

import (
	"strings"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// corporateMarkers identify party names that are institutions, not
// people. Institutional creditors stay readable; only person names are
// personal data.
var corporateMarkers = []string{"주식회사", "은행", "보험", "금고", "캐피탈", "저축", "신협", "공사", "조합"}

// Mask produces the display-safe projection of a registry document.
// Redaction is deterministic and field-by-field; the same input always
// masks the same way. The unmasked document never leaves the scoring
// path.
func Mask(doc *model.RegistryDocument) model.MaskedRegistry {
	masked := model.MaskedRegistry{
		Liens:       []model.MaskedLien{},
		Seizures:    []model.Seizure{},
		LeaseRights: []model.MaskedLien{},
	}
	if doc == nil {
		return masked
	}

	if doc.Owner != nil {
		masked.Owner = maskName(*doc.Owner)
	}
	if doc.OwnerResidentNo != nil {
		masked.OwnerResidentNo = maskResidentNo(*doc.OwnerResidentNo)
	}
	if doc.Address != nil {
		masked.Address = maskAddress(*doc.Address)
	}

	for _, lien := range doc.Liens {
		entry := model.MaskedLien{Party: maskParty(lien.Creditor)}
		if lien.Amount != nil {
			amount := *lien.Amount
			entry.Amount = &amount
		}
		masked.Liens = append(masked.Liens, entry)
	}

	masked.Seizures = append(masked.Seizures, doc.Seizures...)

	for _, right := range doc.LeaseRights {
		entry := model.MaskedLien{Party: maskParty(right.Holder)}
		if right.Deposit != nil {
			deposit := *right.Deposit
			entry.Amount = &deposit
		}
		masked.LeaseRights = append(masked.LeaseRights, entry)
	}

	return masked
}

// maskName keeps the first and last characters of a person's name:
// 홍길동 → 홍*동, 김수 → 김*.
func maskName(name string) string {
	runes := []rune(name)
	switch {
	case len(runes) <= 1:
		return name
	case len(runes) == 2:
		return string(runes[0]) + "*"
	default:
		return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
	}
}

// maskParty masks person names but leaves institutional names
// readable: a bank as creditor is public record, a person is not.
func maskParty(party string) string {
	if party == "" {
		return ""
	}
	for _, marker := range corporateMarkers {
		if strings.Contains(party, marker) {
			return party
		}
	}
	return maskName(party)
}

// maskResidentNo keeps the birth-date half and masks the serial half:
// 800101-1234567 → 800101-*******.
func maskResidentNo(no string) string {
	if idx := strings.Index(no, "-"); idx >= 0 {
		return no[:idx] + "-" + strings.Repeat("*", len([]rune(no[idx+1:])))
	}
	runes := []rune(no)
	if len(runes) <= 6 {
		return no
	}
	return string(runes[:6]) + strings.Repeat("*", len(runes)-6)
}

// maskAddress keeps the address through its district token (구/군, or
// the city when no district is present) and drops the rest.
func maskAddress(addr string) string {
	fields := strings.Fields(addr)
	if len(fields) == 0 {
		return ""
	}

	keep := 0
	for i, field := range fields {
		if strings.HasSuffix(field, "구") || strings.HasSuffix(field, "군") {
			keep = i
		}
	}
	if keep == 0 && !strings.HasSuffix(fields[0], "구") && !strings.HasSuffix(fields[0], "군") {
		// No district found: keep only the leading token (city/province).
		return fields[0] + " ***"
	}
	if keep == len(fields)-1 {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:keep+1], " ") + " ***"
}
