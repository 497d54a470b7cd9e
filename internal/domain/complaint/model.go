package complaint

import (
	"strings"
	"time"
)

// IssueType is the closed set of reportable civic issues
type IssueType string

// Issue types
const (
	IssueTypePothole        IssueType = "pothole"
	IssueTypeStreetLight    IssueType = "street_light"
	IssueTypeGarbage        IssueType = "garbage"
	IssueTypeWaterLeak      IssueType = "water_leak"
	IssueTypeTrafficSignal  IssueType = "traffic_signal"
	IssueTypeSidewalkDamage IssueType = "sidewalk_damage"
	IssueTypeDrainage       IssueType = "drainage"
	IssueTypeOther          IssueType = "other"
)

// IssueTypes lists every known issue type in display order
var IssueTypes = []IssueType{
	IssueTypePothole,
	IssueTypeStreetLight,
	IssueTypeGarbage,
	IssueTypeWaterLeak,
	IssueTypeTrafficSignal,
	IssueTypeSidewalkDamage,
	IssueTypeDrainage,
	IssueTypeOther,
}

// Label renders the issue type for humans ("street_light" -> "Street Light")
func (t IssueType) Label() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Status is the lifecycle state of a complaint
type Status string

// Statuses
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Statuses lists every known status
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
}

// Terminal reports whether no transition leaves this status
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Priority is the triage urgency of a complaint
type Priority string

// Priorities
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every known priority, lowest first
var Priorities = []Priority{
	PriorityLow,
	PriorityNormal,
	PriorityHigh,
	PriorityUrgent,
}

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is where a complaint was reported. Coords is nil when the
// reporter did not share a position.
type Location struct {
	Coords  *LatLng `json:"coords,omitempty"`
	Address string  `json:"address"`
}

// Complaint is a normalized citizen complaint
type Complaint struct {
	ID              string    `json:"id"`
	IssueType       IssueType `json:"issueType"`
	Status          Status    `json:"status"`
	Priority        Priority  `json:"priority"`
	Department      string    `json:"department"`
	Location        Location  `json:"location"`
	Description     string    `json:"description"`
	FormalComplaint string    `json:"formalComplaint,omitempty"`
	ImagePath       string    `json:"imagePath,omitempty"`
	SubmitterID     string    `json:"submitterId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasCoordinates reports whether the complaint can be placed on a map
func (c Complaint) HasCoordinates() bool {
	return c.Location.Coords != nil
}

// Clone returns a copy that shares no pointers with c
func (c Complaint) Clone() Complaint {
	if c.Location.Coords != nil {
		coords := *c.Location.Coords
		c.Location.Coords = &coords
	}
	return c
}

// Record is the raw shape of a complaint as it arrives from a backing
// store or a client. Enum fields are free text until normalized.
type Record struct {
	ID              string    `json:"id" firestore:"-" validate:"required,max=128"`
	IssueType       string    `json:"issue_type" firestore:"issue_type" validate:"max=64"`
	Status          string    `json:"status" firestore:"status" validate:"max=32"`
	Priority        string    `json:"priority" firestore:"priority" validate:"max=32"`
	Department      string    `json:"department" firestore:"department" validate:"max=128"`
	Latitude        *float64  `json:"latitude" firestore:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64  `json:"longitude" firestore:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Address         string    `json:"address" firestore:"address" validate:"max=512"`
	Description     string    `json:"description" firestore:"description" validate:"max=5000"`
	FormalComplaint string    `json:"formal_complaint" firestore:"formal_complaint"`
	ImagePath       string    `json:"image_path" firestore:"image_path" validate:"max=1024"`
	SubmitterID     string    `json:"user_id" firestore:"user_id" validate:"max=128"`
	CreatedAt       time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" firestore:"updated_at"`
}

// ToRecord converts a complaint back into its storage shape
func (c Complaint) ToRecord() Record {
	r := Record{
		ID:              c.ID,
		IssueType:       string(c.IssueType),
		Status:          string(c.Status),
		Priority:        string(c.Priority),
		Department:      c.Department,
		Address:         c.Location.Address,
		Description:     c.Description,
		FormalComplaint: c.FormalComplaint,
		ImagePath:       c.ImagePath,
		SubmitterID:     c.SubmitterID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.Location.Coords != nil {
		lat, lng := c.Location.Coords.Lat, c.Location.Coords.Lng
		r.Latitude = &lat
		r.Longitude = &lng
	}
	return r
}

// FilterSpec narrows a complaint set. Every zero field imposes no constraint.
type FilterSpec struct {
	Status     Status    `json:"status,omitempty"`
	Priority   Priority  `json:"priority,omitempty"`
	IssueType  IssueType `json:"issueType,omitempty"`
	Department string    `json:"department,omitempty"`
	SearchText string    `json:"search,omitempty"`
}

// IsZero reports whether the filter constrains nothing
func (f FilterSpec) IsZero() bool {
	return f == FilterSpec{}
}

// Summary holds count-based statistics over a complaint subset
type Summary struct {
	Total       int               `json:"total"`
	ByStatus    map[Status]int    `json:"byStatus"`
	ByPriority  map[Priority]int  `json:"byPriority"`
	ByIssueType map[IssueType]int `json:"byIssueType"`
	Urgent      int               `json:"urgent"`
}

// StatusUpdate is a single atomic write of a status transition, optionally
// carrying a priority change.
type StatusUpdate struct {
	ID       string
	From     Status
	To       Status
	Priority *Priority
	ActorID  string
	At       time.Time
}

// CheckStored rejects the update when the stored status has moved on from From
func (u StatusUpdate) CheckStored(stored Status) error {
	if stored != u.From {
		return NewTransitionError(u.ID, stored, u.To)
	}
	return nil
}

// TransitionEvent is emitted after a status transition has been written
type TransitionEvent struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaintId"`
	From        Status    `json:"fromStatus"`
	To          Status    `json:"toStatus"`
	Priority    *Priority `json:"priority,omitempty"`
	ActorID     string    `json:"actorId"`
	Timestamp   time.Time `json:"timestamp"`
}

// Role is the kind of consumer looking at complaints
type Role string

// Roles
const (
	RoleCitizen    Role = "citizen"
	RoleDepartment Role = "department"
	RoleAdmin      Role = "admin"
)

// Actor identifies who is acting or viewing
type Actor struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}

// Classification is an opaque classifier verdict on an image
type Classification struct {
	IssueType  IssueType `json:"issueType"`
	Confidence float64   `json:"confidence"`
}
