package pipeline

import (
	"fmt"
	"strings"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// BuildPrompt renders the single prompt string owed to the narrative
// generator: risk features, contract terms and market figures. The core
// never parses the generator's response. Only display-safe material goes
// in: amounts and counts, never the unmasked registry fields.
func BuildPrompt(c *model.Case, features model.RiskFeatures, riskScore model.RiskScore, mkt *model.MarketSnapshot) string {
	var b strings.Builder

	b.WriteString("You are writing a risk assessment narrative for a Korean property transaction.\n")
	b.WriteString("Use ONLY the figures below. Do not invent numbers, parties, or registry entries.\n")
	b.WriteString("If an input is marked unavailable, say so explicitly instead of guessing.\n\n")

	fmt.Fprintf(&b, "Contract:\n- Type: %s\n", c.ContractType)
	writeAmount(&b, "Deposit", features.Deposit)
	writeAmount(&b, "Price", features.Price)
	writeAmount(&b, "Monthly rent", features.MonthlyRent)

	b.WriteString("\nRegistry facts:\n")
	if features.MortgageTotal != nil {
		fmt.Fprintf(&b, "- Liens: %d (total %s KRW)\n", features.LienCount, formatKRW(*features.MortgageTotal))
		fmt.Fprintf(&b, "- Seizures: %d, provisional attachments: %d\n", features.SeizureCount, features.ProvisionalCount)
		fmt.Fprintf(&b, "- Registered lease rights: %d\n", features.LeaseRightCount)
	} else {
		b.WriteString("- Registry document unavailable for this case\n")
	}

	b.WriteString("\nMarket:\n")
	if mkt != nil {
		fmt.Fprintf(&b, "- Region: %s\n", mkt.RegionCode)
		if features.MarketMean != nil {
			count := 0
			if features.MarketSampleCount != nil {
				count = *features.MarketSampleCount
			}
			fmt.Fprintf(&b, "- Trimmed mean of %d comparable transaction(s): %s KRW\n", count, formatKRW(*features.MarketMean))
		} else {
			b.WriteString("- No comparable transactions found in the queried windows\n")
		}
		writeAmount(&b, "Sale-equivalent value", features.EstimatedValue)
		writeAmount(&b, "Auction-recovery value", features.RecoveryValue)
		if features.JeonseRatioPct != nil {
			fmt.Fprintf(&b, "- Jeonse ratio: %.1f%%\n", *features.JeonseRatioPct)
		}
	} else {
		b.WriteString("- Market data unavailable for this case\n")
	}

	fmt.Fprintf(&b, "\nRisk score: %d/100 (%s)\n", riskScore.Total, riskScore.Level)
	if riskScore.Partial {
		fmt.Fprintf(&b, "Score is PARTIAL; missing inputs: %s\n", strings.Join(riskScore.Missing, ", "))
	}
	if len(riskScore.Factors) > 0 {
		b.WriteString("Scored factors:\n")
		for _, factor := range riskScore.Factors {
			fmt.Fprintf(&b, "- %s (%d/%d): %s\n", factor.Name, factor.Points, factor.Max, factor.Reason)
		}
	}

	b.WriteString("\nWrite 4-6 sentences: overall risk, the main drivers, and what the reader should verify before signing.")
	return b.String()
}

func writeAmount(b *strings.Builder, label string, v *int64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "- %s: %s KRW\n", label, formatKRW(*v))
}

// formatKRW groups digits for readability: 50000000 -> 50,000,000.
func formatKRW(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}
