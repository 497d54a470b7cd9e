// internal/service/complaint/filter.go

package complaint

import (
	"net/url"
	"strings"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// Apply returns the complaints matching every set field of spec, in input order
func Apply(complaints []complaint.Complaint, spec complaint.FilterSpec) []complaint.Complaint {
	if spec.IsZero() {
		out := make([]complaint.Complaint, len(complaints))
		copy(out, complaints)
		return out
	}

	search := strings.ToLower(strings.TrimSpace(spec.SearchText))

	out := make([]complaint.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if matches(c, spec, search) {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether a single complaint satisfies spec
func Matches(c complaint.Complaint, spec complaint.FilterSpec) bool {
	return matches(c, spec, strings.ToLower(strings.TrimSpace(spec.SearchText)))
}

func matches(c complaint.Complaint, spec complaint.FilterSpec, search string) bool {
	if spec.Status != "" && c.Status != spec.Status {
		return false
	}
	if spec.Priority != "" && c.Priority != spec.Priority {
		return false
	}
	if spec.IssueType != "" && c.IssueType != spec.IssueType {
		return false
	}
	if spec.Department != "" && !strings.EqualFold(strings.TrimSpace(c.Department), strings.TrimSpace(spec.Department)) {
		return false
	}
	if search != "" {
		if !strings.Contains(strings.ToLower(c.Description), search) &&
			!strings.Contains(strings.ToLower(c.Location.Address), search) {
			return false
		}
	}
	return true
}

// ParseFilterSpec reads a FilterSpec from query parameters. Missing values
// and the literal "all" leave a field unconstrained; unrecognized enum
// values yield a ValidationError.
func ParseFilterSpec(q url.Values) (complaint.FilterSpec, error) {
	var spec complaint.FilterSpec

	if raw := queryValue(q, "status"); raw != "" {
		s, ok := complaint.ParseStatus(raw)
		if !ok {
			return spec, complaint.NewValidationError("", "unknown status filter "+raw, nil)
		}
		spec.Status = s
	}

	if raw := queryValue(q, "priority"); raw != "" {
		p, ok := complaint.ParsePriority(raw)
		if !ok {
			return spec, complaint.NewValidationError("", "unknown priority filter "+raw, nil)
		}
		spec.Priority = p
	}

	if raw := queryValue(q, "issue_type"); raw != "" {
		it, ok := complaint.ParseIssueType(raw)
		if !ok {
			return spec, complaint.NewValidationError("", "unknown issue type filter "+raw, nil)
		}
		spec.IssueType = it
	}

	spec.Department = queryValue(q, "department")
	spec.SearchText = strings.TrimSpace(q.Get("search"))

	return spec, nil
}

func queryValue(q url.Values, key string) string {
	v := strings.TrimSpace(q.Get(key))
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
