package commerce

import (
	"regexp"
	"strings"
)

var orderKeywords = []string{
	"order", "purchase", "tracking", "delivery", "shipment", "status",
	"where is my", "when will", "receipt",
}

var (
	orderNumberPattern = regexp.MustCompile(`(?i)(?:order|#)\s*(\d+)`)
	bareNumberPattern  = regexp.MustCompile(`\b(\d{4,})\b`)
)

// HasOrderIntent reports whether text looks like an order-status question.
func HasOrderIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range orderKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractOrderNumber prefers a number after "order" or "#", then the first
// standalone run of four or more digits.
func ExtractOrderNumber(text string) string {
	if m := orderNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
