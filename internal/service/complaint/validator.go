// internal/service/complaint/validator.go

package complaint

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// AnonymousSubmitter is recorded when a record carries no submitter
const AnonymousSubmitter = "anonymous"

// Validator normalizes raw records into complaints
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new record validator
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Normalize checks a record's shape and maps it onto a Complaint.
//
// Empty status and priority take the intake defaults. Unknown issue types
// fall back to "other"; unknown status or priority values are rejected.
func (v *Validator) Normalize(r complaint.Record) (complaint.Complaint, error) {
	r.ID = strings.TrimSpace(r.ID)

	if err := v.validate.Struct(r); err != nil {
		return complaint.Complaint{}, complaint.NewValidationError(r.ID, "invalid record", err)
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		return complaint.Complaint{}, complaint.NewValidationError(r.ID, "latitude and longitude must be set together", nil)
	}

	status := complaint.StatusPending
	if strings.TrimSpace(r.Status) != "" {
		s, ok := complaint.ParseStatus(r.Status)
		if !ok {
			return complaint.Complaint{}, complaint.NewValidationError(r.ID, "unknown status "+r.Status, nil)
		}
		status = s
	}

	priority := complaint.PriorityNormal
	if strings.TrimSpace(r.Priority) != "" {
		p, ok := complaint.ParsePriority(r.Priority)
		if !ok {
			return complaint.Complaint{}, complaint.NewValidationError(r.ID, "unknown priority "+r.Priority, nil)
		}
		priority = p
	}

	issueType, ok := complaint.ParseIssueType(r.IssueType)
	if !ok {
		issueType = complaint.IssueTypeOther
	}

	department := strings.TrimSpace(r.Department)
	if department == "" {
		department = DepartmentFor(issueType)
	}

	submitter := strings.TrimSpace(r.SubmitterID)
	if submitter == "" {
		submitter = AnonymousSubmitter
	}

	c := complaint.Complaint{
		ID:              r.ID,
		IssueType:       issueType,
		Status:          status,
		Priority:        priority,
		Department:      department,
		Location:        complaint.Location{Address: strings.TrimSpace(r.Address)},
		Description:     strings.TrimSpace(r.Description),
		FormalComplaint: r.FormalComplaint,
		ImagePath:       r.ImagePath,
		SubmitterID:     submitter,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}

	if r.Latitude != nil {
		c.Location.Coords = &complaint.LatLng{Lat: *r.Latitude, Lng: *r.Longitude}
	}

	// updatedAt >= createdAt
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		c.UpdatedAt = c.CreatedAt
	}

	return c, nil
}
