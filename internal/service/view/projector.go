// internal/service/view/projector.go

package view

import (
	"strings"
	"sync"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
)

// Projection is what a single dashboard renders
type Projection struct {
	Visible  []complaint.Complaint `json:"visibleComplaints"`
	Stats    complaint.Summary     `json:"stats"`
	HotZones []geo.Cluster         `json:"hotZones,omitempty"`
}

// CanSee is the visibility predicate. Citizens see their own complaints,
// department officials see their department's, admins see everything.
func CanSee(viewer complaint.Actor, c complaint.Complaint) bool {
	switch viewer.Role {
	case complaint.RoleAdmin:
		return true
	case complaint.RoleDepartment:
		dept := strings.TrimSpace(viewer.Department)
		return dept != "" && strings.EqualFold(dept, strings.TrimSpace(c.Department))
	case complaint.RoleCitizen:
		return viewer.ID != "" && c.SubmitterID == viewer.ID
	default:
		return false
	}
}

// Scope keeps the complaints viewer may see, in input order
func Scope(complaints []complaint.Complaint, viewer complaint.Actor) []complaint.Complaint {
	out := make([]complaint.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if CanSee(viewer, c) {
			out = append(out, c)
		}
	}
	return out
}

// Project scopes a snapshot to viewer, applies spec and summarizes the
// result. Hot zones are computed only when clusterer is non-nil.
func Project(
	snapshot []complaint.Complaint,
	viewer complaint.Actor,
	spec complaint.FilterSpec,
	clusterer geo.Clusterer,
) Projection {
	visible := complaintService.Apply(Scope(snapshot, viewer), spec)

	p := Projection{
		Visible: visible,
		Stats:   complaintService.Summarize(visible),
	}
	if clusterer != nil {
		p.HotZones = clusterer.Cluster(visible)
	}
	return p
}

// Source is a live complaint set that can be subscribed to
type Source interface {
	Subscribe(onChange func([]complaint.Complaint)) (unsubscribe func())
}

// Projector keeps one view's projection current. It recomputes on every
// snapshot from its source and whenever the filter changes, and hands each
// result to emit. Calls to emit never overlap.
type Projector struct {
	viewer    complaint.Actor
	clusterer geo.Clusterer
	emit      func(Projection)

	mu       sync.Mutex
	spec     complaint.FilterSpec
	snapshot []complaint.Complaint
	ready    bool
	closed   bool

	unsubscribe func()
}

// NewProjector subscribes a new view to source. Pass a nil clusterer for
// views without a map.
func NewProjector(
	source Source,
	viewer complaint.Actor,
	spec complaint.FilterSpec,
	clusterer geo.Clusterer,
	emit func(Projection),
) *Projector {
	p := &Projector{
		viewer:    viewer,
		clusterer: clusterer,
		emit:      emit,
		spec:      spec,
	}
	p.unsubscribe = source.Subscribe(p.onSnapshot)
	return p
}

func (p *Projector) onSnapshot(snapshot []complaint.Complaint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.snapshot = snapshot
	p.ready = true
	p.emit(Project(p.snapshot, p.viewer, p.spec, p.clusterer))
}

// SetFilter replaces the active filter and recomputes if a snapshot has
// already arrived.
func (p *Projector) SetFilter(spec complaint.FilterSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.spec = spec
	if p.ready {
		p.emit(Project(p.snapshot, p.viewer, p.spec, p.clusterer))
	}
}

// Current returns the latest projection, or false before the first snapshot
func (p *Projector) Current() (Projection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return Projection{}, false
	}
	return Project(p.snapshot, p.viewer, p.spec, p.clusterer), true
}

// Close stops the view. emit is not called after Close returns.
func (p *Projector) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.unsubscribe()
}
