package rules

import "strings"

// StaticOffsets is the built-in offset catalog used when no per-deployment
// rule configuration is supplied. Pairs key on the exact (status, tracking1)
// combination; base offsets key on status alone.
type StaticOffsets struct {
	pairs map[string]int
	base  map[string]int
}

func pairKey(statusCode, tracking1 string) string {
	return statusCode + "\x00" + strings.TrimSpace(tracking1)
}

// NewStaticOffsets builds the default catalog.
func NewStaticOffsets() *StaticOffsets {
	return &StaticOffsets{
		pairs: map[string]int{
			pairKey("Screening scheduled", "Confirm completion"): 30,
			pairKey("Screening scheduled", "Awaiting report"):    14,
			pairKey("Order placed", "Awaiting scheduling"):       21,
			pairKey("Order placed", "Patient to call"):           45,
			pairKey("Referral sent", "Awaiting specialist"):      60,
			pairKey("Patient declined", "Revisit next visit"):    180,
		},
		base: map[string]int{
			"Completed":                  365,
			"Screening completed":        365,
			"Screening scheduled":        30,
			"Order placed":               30,
			"Referral sent":              90,
			"Results pending":            14,
			"Patient declined":           365,
			"Patient unreachable":        90,
			"Left message":               14,
			"HgbA1c at goal":             180,
			"HgbA1c not at goal":         90,
			"Annual wellness visit due":  30,
			"Annual wellness visit done": 365,
		},
	}
}

// TrackingOffset implements OffsetLookup.
func (o *StaticOffsets) TrackingOffset(statusCode, tracking1 string) (int, bool) {
	offset, ok := o.pairs[pairKey(statusCode, tracking1)]
	return offset, ok
}

// StatusOffset implements OffsetLookup.
func (o *StaticOffsets) StatusOffset(statusCode string) (int, bool) {
	offset, ok := o.base[statusCode]
	return offset, ok
}
