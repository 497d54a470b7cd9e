package complaint

import "strings"

// Legacy spellings seen in historical data, keyed by normalized token
var (
	statusAliases = map[string]Status{
		"open":       StatusPending,
		"new":        StatusPending,
		"submitted":  StatusPending,
		"inprogress": StatusInProgress,
		"processing": StatusInProgress,
		"assigned":   StatusInProgress,
		"closed":     StatusResolved,
		"done":       StatusResolved,
		"completed":  StatusResolved,
		"fixed":      StatusResolved,
		"declined":   StatusRejected,
		"dismissed":  StatusRejected,
		"invalid":    StatusRejected,
	}

	priorityAliases = map[string]Priority{
		"minor":     PriorityLow,
		"medium":    PriorityNormal,
		"moderate":  PriorityNormal,
		"critical":  PriorityUrgent,
		"emergency": PriorityUrgent,
	}

	issueTypeAliases = map[string]IssueType{
		"streetlight":      IssueTypeStreetLight,
		"street_lights":    IssueTypeStreetLight,
		"road_damage":      IssueTypePothole,
		"street_repair":    IssueTypePothole,
		"waste_management": IssueTypeGarbage,
		"cleanliness":      IssueTypeGarbage,
		"trash":            IssueTypeGarbage,
		"water_leakage":    IssueTypeWaterLeak,
		"water_supply":     IssueTypeWaterLeak,
		"traffic_light":    IssueTypeTrafficSignal,
		"traffic_sign":     IssueTypeTrafficSignal,
		"sidewalk":         IssueTypeSidewalkDamage,
		"sewage_issue":     IssueTypeDrainage,
	}
)

// normalizeToken lowercases and joins words with underscores
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// ParseStatus maps free text, including legacy spellings, to a Status
func ParseStatus(s string) (Status, bool) {
	token := normalizeToken(s)
	for _, st := range Statuses {
		if string(st) == token {
			return st, true
		}
	}
	st, ok := statusAliases[token]
	return st, ok
}

// ParsePriority maps free text, including legacy spellings, to a Priority
func ParsePriority(s string) (Priority, bool) {
	token := normalizeToken(s)
	for _, p := range Priorities {
		if string(p) == token {
			return p, true
		}
	}
	p, ok := priorityAliases[token]
	return p, ok
}

// ParseIssueType maps free text, including legacy spellings, to an IssueType
func ParseIssueType(s string) (IssueType, bool) {
	token := normalizeToken(s)
	for _, t := range IssueTypes {
		if string(t) == token {
			return t, true
		}
	}
	t, ok := issueTypeAliases[token]
	return t, ok
}
