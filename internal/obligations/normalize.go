package obligations

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/obligation-finder/internal/model"
)

// ProjectionMultiplier derives a record's alternative value from its
// obligated amount. It is a fixed presentation projection.
const ProjectionMultiplier = 1.1

// AmountFallback is the value used when an obligated amount cannot be parsed.
const AmountFallback = 0.0

// ParseAmount converts a raw obligated amount to a finite float64.
// Surrounding whitespace, a leading "$" and thousands separators are accepted.
// Empty, non-numeric, NaN and infinite inputs return AmountFallback and false,
// as do values whose projection would overflow.
func ParseAmount(a model.Amount) (float64, bool) {
	s := strings.TrimSpace(string(a))
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || (neg && strings.HasPrefix(s, "-")) {
		return AmountFallback, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.IsInf(v*ProjectionMultiplier, 0) {
		return AmountFallback, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// Normalize maps raw API records to display records, preserving order.
// It never returns nil; an empty input yields an empty slice.
func Normalize(results []model.RawObligationRecord) []model.NormalizedRecord {
	out := make([]model.NormalizedRecord, 0, len(results))
	for _, r := range results {
		v, _ := ParseAmount(r.ObligatedAmount)
		out = append(out, model.NormalizedRecord{
			Name:        r.AccountTitle,
			Value:       v,
			Alternative: v * ProjectionMultiplier,
		})
	}
	return out
}

// TotalValue sums Value in sequence order. Zero for an empty slice.
func TotalValue(records []model.NormalizedRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Value
	}
	return total
}

// RecordCount returns the number of records.
func RecordCount(records []model.NormalizedRecord) int {
	return len(records)
}

// countFallbacks reports how many raw records hit the amount fallback.
func countFallbacks(results []model.RawObligationRecord) int {
	n := 0
	for _, r := range results {
		if _, ok := ParseAmount(r.ObligatedAmount); !ok {
			n++
		}
	}
	return n
}
