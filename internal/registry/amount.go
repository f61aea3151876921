package registry

import (
	"strconv"
	"strings"
)

// parseKoreanAmount converts a registry amount expression to KRW. Both
// plain digit runs ("120,000,000") and sino-Korean unit forms
// ("1억2,000만", "1억2천만") appear in practice, sometimes mixed.
// Returns false when nothing parseable remains.
func parseKoreanAmount(s string) (int64, bool) {
	s = strings.NewReplacer(",", "", " ", "", "\t", "").Replace(s)
	if s == "" {
		return 0, false
	}

	var total int64
	rest := s

	if i := strings.Index(rest, "억"); i >= 0 {
		n, ok := parseUnitPart(rest[:i])
		if !ok {
			return 0, false
		}
		total += n * 100_000_000
		rest = rest[i+len("억"):]
	}

	if i := strings.Index(rest, "만"); i >= 0 {
		part := rest[:i]
		if part != "" {
			n, ok := parseUnitPart(part)
			if !ok {
				return 0, false
			}
			total += n * 10_000
		}
		rest = rest[i+len("만"):]
	}

	if rest != "" {
		n, ok := parseUnitPart(rest)
		if !ok {
			return 0, false
		}
		total += n
	}

	return total, true
}

// parseUnitPart parses one segment, resolving an embedded 천 unit
// ("2천" = 2000, "2천5" stays literal tail).
func parseUnitPart(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if i := strings.Index(s, "천"); i >= 0 {
		head := int64(1)
		if s[:i] != "" {
			n, err := strconv.ParseInt(s[:i], 10, 64)
			if err != nil {
				return 0, false
			}
			head = n
		}
		total := head * 1000
		if tail := s[i+len("천"):]; tail != "" {
			n, err := strconv.ParseInt(tail, 10, 64)
			if err != nil {
				return 0, false
			}
			total += n
		}
		return total, true
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
