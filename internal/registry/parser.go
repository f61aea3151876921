// Package registry turns raw 등기부등본 text into the structured facts
// the risk formulas need. Extraction is pattern-based, not model-based,
// so the same text always yields the same document. Every field
// resolves independently: a field that cannot be read is absent, never
// guessed, and one bad field never aborts the rest of the parse.
package registry

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyeonwoo-dev/jipcheck/internal/audit"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

var (
	reOwner      = regexp.MustCompile(`소유자\s*[:：]?\s*([가-힣]{2,10})`)
	reResidentNo = regexp.MustCompile(`\b(\d{6})\s*-\s*([0-9*]{7})`)
	reAddrHeader = regexp.MustCompile(`\[(?:집합건물|건물|토지)\]\s*([^\n]+)`)
	reAddrField  = regexp.MustCompile(`소재지번?\s*[:：]?\s*([^\n]+)`)
	reMaxClaim   = regexp.MustCompile(`채권최고액\s*[:：]?\s*금\s*([0-9,억만천\s]+)\s*원`)
	reCreditor   = regexp.MustCompile(`근저당권자\s*[:：]?\s*(\S+)(?:\s+(\S+))?`)
	reHolder     = regexp.MustCompile(`(?:전세권자|임차권자)\s*[:：]?\s*(\S+)(?:\s+(\S+))?`)
	reJeonseAmt  = regexp.MustCompile(`전세금\s*[:：]?\s*금\s*([0-9,억만천\s]+)\s*원`)
	reLeaseAmt   = regexp.MustCompile(`임차보증금\s*[:：]?\s*금\s*([0-9,억만천\s]+)\s*원`)
	reDate       = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월\s*(\d{1,2})일`)
)

// entryKeywords start a new rights entry; they bound the lookahead
// window used for wrapped rows.
var entryKeywords = []string{"근저당권설정", "가압류", "압류", "전세권설정", "주택임차권", "임차권등기"}

// Parser extracts a RegistryDocument from raw registry text.
type Parser struct {
	sink audit.Sink
}

// NewParser creates a Parser reporting coverage problems to sink.
func NewParser(sink audit.Sink) *Parser {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Parser{sink: sink}
}

// Parse never fails: the worst outcome is a document with every field
// absent. Cancelled (말소) entries are skipped; they no longer bind the
// property.
func (p *Parser) Parse(ctx context.Context, caseID, rawText string) *model.RegistryDocument {
	doc := &model.RegistryDocument{
		Liens:       []model.Lien{},
		Seizures:    []model.Seizure{},
		LeaseRights: []model.LeaseRight{},
	}

	p.parseHeader(doc, rawText)

	lines := strings.Split(rawText, "\n")
	for i, line := range lines {
		if strings.Contains(line, "말소") {
			continue
		}
		switch {
		case strings.Contains(line, "근저당권설정"):
			doc.Liens = append(doc.Liens, parseLien(entryWindow(lines, i)))
		case strings.Contains(line, "가압류"):
			doc.Seizures = append(doc.Seizures, model.Seizure{
				Kind: model.SeizureProvisional,
				Date: parseEntryDate(line),
			})
		case strings.Contains(line, "압류"):
			doc.Seizures = append(doc.Seizures, model.Seizure{
				Kind: model.SeizureAttachment,
				Date: parseEntryDate(line),
			})
		case strings.Contains(line, "전세권설정"),
			strings.Contains(line, "주택임차권"),
			strings.Contains(line, "임차권등기"):
			doc.LeaseRights = append(doc.LeaseRights, parseLeaseRight(entryWindow(lines, i)))
		}
	}

	// A registry that carries a rights section but yielded nothing is
	// suspicious: probably bad OCR, not a clean property.
	if len(doc.Liens) == 0 && len(doc.Seizures) == 0 && strings.Contains(rawText, "을구") {
		p.sink.Record(ctx, audit.Event{
			Type:     audit.EventLowCoverage,
			Severity: audit.SeverityWarning,
			CaseID:   caseID,
			Metadata: map[string]interface{}{
				"text_chars": len([]rune(rawText)),
			},
		})
	}

	return doc
}

// parseHeader pulls owner, resident number and address. Each resolves
// independently.
func (p *Parser) parseHeader(doc *model.RegistryDocument, rawText string) {
	if m := reOwner.FindStringSubmatch(rawText); m != nil {
		owner := m[1]
		doc.Owner = &owner
	}
	if m := reResidentNo.FindStringSubmatch(rawText); m != nil {
		no := m[1] + "-" + m[2]
		doc.OwnerResidentNo = &no
	}
	if m := reAddrHeader.FindStringSubmatch(rawText); m != nil {
		addr := strings.TrimSpace(m[1])
		doc.Address = &addr
	} else if m := reAddrField.FindStringSubmatch(rawText); m != nil {
		addr := strings.TrimSpace(m[1])
		doc.Address = &addr
	}
}

// entryWindow joins an entry line with up to two continuation lines,
// stopping early when the next entry starts. Registry rows wrap.
func entryWindow(lines []string, start int) string {
	parts := []string{lines[start]}
	for j := start + 1; j < len(lines) && j <= start+2; j++ {
		if isEntryLine(lines[j]) {
			break
		}
		parts = append(parts, lines[j])
	}
	return strings.Join(parts, " ")
}

func isEntryLine(line string) bool {
	for _, kw := range entryKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// parseLien reads the maximum claim amount and creditor from one
// 근저당권설정 entry. An entry whose amount cannot be read is still a
// lien; its Amount stays nil so an unreadable figure never passes for
// a registered zero.
func parseLien(window string) model.Lien {
	var lien model.Lien
	if m := reMaxClaim.FindStringSubmatch(window); m != nil {
		if amount, ok := parseKoreanAmount(m[1]); ok {
			lien.Amount = &amount
		}
	}
	lien.Creditor = joinPartyTokens(reCreditor.FindStringSubmatch(window))
	return lien
}

// parseLeaseRight reads holder and deposit from a 전세권/임차권 entry.
func parseLeaseRight(window string) model.LeaseRight {
	var right model.LeaseRight
	right.Holder = joinPartyTokens(reHolder.FindStringSubmatch(window))
	if m := reJeonseAmt.FindStringSubmatch(window); m != nil {
		if amount, ok := parseKoreanAmount(m[1]); ok {
			right.Deposit = &amount
		}
	} else if m := reLeaseAmt.FindStringSubmatch(window); m != nil {
		if amount, ok := parseKoreanAmount(m[1]); ok {
			right.Deposit = &amount
		}
	}
	return right
}

// joinPartyTokens rebuilds a party name from the capture groups. A
// bare 주식회사 token is the corporate prefix split from its name.
func joinPartyTokens(m []string) string {
	if m == nil {
		return ""
	}
	if m[1] == "주식회사" && len(m) > 2 && m[2] != "" {
		return m[1] + " " + m[2]
	}
	return m[1]
}

// parseEntryDate reads the first date on the entry line.
func parseEntryDate(line string) *time.Time {
	m := reDate.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &date
}
