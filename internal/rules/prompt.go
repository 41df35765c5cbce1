package rules

import "strings"

// PromptLookup supplies a per-status date prompt from deployment configuration.
// Nil lookups fall through to the static table.
type PromptLookup interface {
	Prompt(statusCode string) (string, bool)
}

// Tracking values whose prompt overrides any per-status configuration.
const (
	trackingDeceased = "patient deceased"
	trackingHospice  = "patient in hospice"
)

// fallbackPrompts covers the known status vocabulary when no configuration is
// available. The label answers "what date is the operator being asked for?".
var fallbackPrompts = map[string]string{
	"Completed":                  "Date Completed",
	"Screening completed":        "Date Completed",
	"Screening scheduled":        "Date Scheduled",
	"Screening discussed":        "Date Discussed",
	"Screening ordered":          "Date Ordered",
	"Order placed":               "Date Ordered",
	"Order expired":              "Date Expired",
	"Referral sent":              "Date Referred",
	"Referral completed":         "Date Completed",
	"Results pending":            "Date Performed",
	"Results received":           "Date Received",
	"Results reviewed":           "Date Reviewed",
	"Patient declined":           "Date Declined",
	"Patient refused":            "Date Refused",
	"Patient unreachable":        "Date Attempted",
	"Patient deceased":           "Date of Death",
	"Patient in hospice":         "Date Reported",
	"Patient transferred care":   "Date Transferred",
	"Patient moved":              "Date Reported",
	"Left message":               "Date Called",
	"Letter sent":                "Date Mailed",
	"Mammogram completed":        "Date Performed",
	"Mammogram scheduled":        "Date Scheduled",
	"Colonoscopy completed":      "Date Performed",
	"Colonoscopy scheduled":      "Date Scheduled",
	"Cologuard ordered":          "Date Ordered",
	"Cologuard completed":        "Date Collected",
	"FIT test ordered":           "Date Ordered",
	"FIT test completed":         "Date Collected",
	"Pap smear completed":        "Date Performed",
	"Pap smear scheduled":        "Date Scheduled",
	"Bone density completed":     "Date Performed",
	"Bone density scheduled":     "Date Scheduled",
	"Eye exam completed":         "Date Performed",
	"Eye exam referred":          "Date Referred",
	"HgbA1c at goal":             "Date Drawn",
	"HgbA1c not at goal":         "Date Drawn",
	"HgbA1c ordered":             "Date Ordered",
	"Vaccine administered":       "Date Administered",
	"Vaccine declined":           "Date Declined",
	"Annual wellness visit due":  "Date Scheduled",
	"Annual wellness visit done": "Date of Visit",
	"Not applicable":             "Date Determined",
}

// KnownStatus reports whether a status code belongs to the recognized
// vocabulary.
func KnownStatus(statusCode string) bool {
	_, ok := fallbackPrompts[statusCode]
	return ok
}

// DatePrompt resolves the label shown next to the status-date field. The
// tracking special cases win over any configured per-status prompt; the static
// table applies when configuration has nothing. Empty means no prompt.
func DatePrompt(statusCode, tracking1 string, lookup PromptLookup) string {
	switch strings.ToLower(strings.TrimSpace(tracking1)) {
	case trackingDeceased:
		return "Date of Death"
	case trackingHospice:
		return "Date Reported"
	}

	if lookup != nil {
		if label, ok := lookup.Prompt(statusCode); ok {
			return label
		}
	}

	return fallbackPrompts[statusCode]
}
