package registry

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

func strPtr(s string) *string { return &s }

func krw(n int64) *int64 { return &n }

func TestMask_PersonFields(t *testing.T) {
	deposit := int64(200_000_000)
	doc := &model.RegistryDocument{
		Owner:           strPtr("홍길동"),
		OwnerResidentNo: strPtr("800101-1234567"),
		Address:         strPtr("서울특별시 강남구 역삼동 123-45 역삼아파트 제3동 제502호"),
		Liens: []model.Lien{
			{Amount: krw(360_000_000), Creditor: "주식회사 국민은행"},
			{Amount: krw(50_000_000), Creditor: "김철수"},
		},
		LeaseRights: []model.LeaseRight{
			{Holder: "이영희", Deposit: &deposit},
		},
	}

	masked := Mask(doc)

	if masked.Owner != "홍*동" {
		t.Errorf("Expected 홍*동, got %q", masked.Owner)
	}
	if masked.OwnerResidentNo != "800101-*******" {
		t.Errorf("Expected masked serial, got %q", masked.OwnerResidentNo)
	}
	if masked.Address != "서울특별시 강남구 ***" {
		t.Errorf("Expected address cut at the district, got %q", masked.Address)
	}

	// Institutional creditor stays readable, person does not.
	if masked.Liens[0].Party != "주식회사 국민은행" {
		t.Errorf("Expected institutional creditor unmasked, got %q", masked.Liens[0].Party)
	}
	if masked.Liens[1].Party != "김*수" {
		t.Errorf("Expected person creditor masked, got %q", masked.Liens[1].Party)
	}
	if masked.Liens[0].Amount == nil || *masked.Liens[0].Amount != 360_000_000 {
		t.Errorf("Amounts must survive masking, got %v", masked.Liens[0].Amount)
	}

	if masked.LeaseRights[0].Party != "이*희" {
		t.Errorf("Expected lease holder masked, got %q", masked.LeaseRights[0].Party)
	}
	if masked.LeaseRights[0].Amount == nil || *masked.LeaseRights[0].Amount != deposit {
		t.Errorf("Lease deposit must survive masking, got %v", masked.LeaseRights[0].Amount)
	}
}

func TestMask_NoIdentityLeaksInSerializedForm(t *testing.T) {
	doc := &model.RegistryDocument{
		Owner:           strPtr("홍길동"),
		OwnerResidentNo: strPtr("800101-1234567"),
		Address:         strPtr("서울특별시 강남구 역삼동 123-45"),
		Liens:           []model.Lien{{Amount: krw(10_000_000), Creditor: "박민준"}},
	}

	masked := Mask(doc)
	data, err := json.Marshal(masked)
	if err != nil {
		t.Fatalf("Marshal masked registry: %v", err)
	}
	serialized := string(data)

	for _, leak := range []string{"1234567", "홍길동", "박민준", "역삼동"} {
		if strings.Contains(serialized, leak) {
			t.Errorf("Masked registry leaked %q: %s", leak, serialized)
		}
	}
}

func TestMaskName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"홍길동", "홍*동"},
		{"김수", "김*"},
		{"남궁민수", "남**수"},
		{"김", "김"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := maskName(tt.in); got != tt.want {
			t.Errorf("maskName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskParty_CorporateMarkers(t *testing.T) {
	for _, name := range []string{"주식회사 국민은행", "신한은행", "한국주택금융공사", "새마을금고", "농협조합"} {
		if got := maskParty(name); got != name {
			t.Errorf("Expected institutional party %q unmasked, got %q", name, got)
		}
	}
	if got := maskParty("홍길동"); got != "홍*동" {
		t.Errorf("Expected person masked, got %q", got)
	}
}

func TestMaskResidentNo_WithoutHyphen(t *testing.T) {
	if got := maskResidentNo("8001011234567"); got != "800101*******" {
		t.Errorf("Expected birth half kept, got %q", got)
	}
	if got := maskResidentNo("800101"); got != "800101" {
		t.Errorf("A bare birth date is not a serial, got %q", got)
	}
}

func TestMaskAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"서울특별시 강남구 역삼동 123-45", "서울특별시 강남구 ***"},
		{"부산광역시 해운대구", "부산광역시 해운대구"},
		{"세종특별자치시 한솔동 100", "세종특별자치시 ***"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := maskAddress(tt.in); got != tt.want {
			t.Errorf("maskAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMask_NilDocument(t *testing.T) {
	masked := Mask(nil)
	if masked.Owner != "" || len(masked.Liens) != 0 || len(masked.Seizures) != 0 {
		t.Errorf("Expected an empty masked view, got %+v", masked)
	}
}

func TestMask_UnknownAmountStaysAbsent(t *testing.T) {
	doc := &model.RegistryDocument{
		Liens: []model.Lien{{Creditor: "김철수"}},
	}
	masked := Mask(doc)
	if masked.Liens[0].Amount != nil {
		t.Errorf("Unknown amount must stay absent after masking, got %v", *masked.Liens[0].Amount)
	}
}

func TestMask_SeizuresCarriedThrough(t *testing.T) {
	doc := &model.RegistryDocument{
		Seizures: []model.Seizure{{Kind: "seizure"}, {Kind: "provisional_attachment"}},
	}
	masked := Mask(doc)
	if len(masked.Seizures) != 2 {
		t.Fatalf("Expected 2 seizures, got %d", len(masked.Seizures))
	}
}
