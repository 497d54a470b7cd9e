package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
	geoService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/live"
)

func fixture() []complaint.Complaint {
	return []complaint.Complaint{
		{ID: "1", Status: complaint.StatusPending, Priority: complaint.PriorityNormal, Department: "Public Works", SubmitterID: "alice"},
		{ID: "2", Status: complaint.StatusResolved, Priority: complaint.PriorityNormal, Department: "Water", SubmitterID: "bob"},
		{ID: "3", Status: complaint.StatusInProgress, Priority: complaint.PriorityUrgent, Department: "public works ", SubmitterID: "bob"},
	}
}

func visibleIDs(p Projection) []string {
	out := make([]string, 0, len(p.Visible))
	for _, c := range p.Visible {
		out = append(out, c.ID)
	}
	return out
}

func TestProject_DepartmentScenario(t *testing.T) {
	snapshot := []complaint.Complaint{
		{ID: "1", Status: complaint.StatusPending, Department: "Public Works"},
		{ID: "2", Status: complaint.StatusResolved, Department: "Water"},
	}
	viewer := complaint.Actor{ID: "officer", Role: complaint.RoleDepartment, Department: "Public Works"}

	p := Project(snapshot, viewer, complaint.FilterSpec{}, nil)

	assert.Equal(t, []string{"1"}, visibleIDs(p))
	assert.Equal(t, 1, p.Stats.Total)
	assert.Nil(t, p.HotZones)
}

func TestProject_Visibility(t *testing.T) {
	tests := []struct {
		name   string
		viewer complaint.Actor
		want   []string
	}{
		{"citizen sees own", complaint.Actor{ID: "bob", Role: complaint.RoleCitizen}, []string{"2", "3"}},
		{"department ignores case", complaint.Actor{ID: "o", Role: complaint.RoleDepartment, Department: "PUBLIC WORKS"}, []string{"1", "3"}},
		{"admin sees all", complaint.Actor{ID: "root", Role: complaint.RoleAdmin}, []string{"1", "2", "3"}},
		{"department without name sees nothing", complaint.Actor{ID: "o", Role: complaint.RoleDepartment}, []string{}},
		{"anonymous citizen sees nothing", complaint.Actor{Role: complaint.RoleCitizen}, []string{}},
		{"unknown role sees nothing", complaint.Actor{ID: "bob", Role: "guest"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(fixture(), tt.viewer, complaint.FilterSpec{}, nil)
			assert.Equal(t, tt.want, visibleIDs(p))
			assert.Equal(t, len(tt.want), p.Stats.Total)
		})
	}
}

func TestProject_FilterCannotWidenVisibility(t *testing.T) {
	viewer := complaint.Actor{ID: "alice", Role: complaint.RoleCitizen}

	p := Project(fixture(), viewer, complaint.FilterSpec{Department: "Water"}, nil)
	assert.Empty(t, p.Visible)

	p = Project(fixture(), viewer, complaint.FilterSpec{Status: complaint.StatusPending}, nil)
	assert.Equal(t, []string{"1"}, visibleIDs(p))
}

func TestProject_WithHotZones(t *testing.T) {
	coords := complaint.LatLng{Lat: 12.97, Lng: 77.59}
	snapshot := []complaint.Complaint{
		{ID: "1", Department: "Public Works", Location: complaint.Location{Coords: &coords}},
		{ID: "2", Department: "Public Works"},
	}
	viewer := complaint.Actor{ID: "root", Role: complaint.RoleAdmin}

	p := Project(snapshot, viewer, complaint.FilterSpec{}, geoService.NewClusterer(geoService.DefaultClustererConfig()))
	require.Len(t, p.HotZones, 1)
	assert.Equal(t, []string{"1"}, p.HotZones[0].MemberIDs)
	assert.Equal(t, 2, p.Stats.Total)
}

func record(id, dept string) complaint.Record {
	return complaint.Record{ID: id, Department: dept, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestProjector_FollowsStoreAndFilter(t *testing.T) {
	store := live.NewStore(complaintService.NewValidator(), nil)
	defer store.Close()

	out := make(chan Projection, 16)
	viewer := complaint.Actor{ID: "o", Role: complaint.RoleDepartment, Department: "Sanitation"}
	p := NewProjector(store, viewer, complaint.FilterSpec{}, nil, func(pr Projection) { out <- pr })

	next := func() Projection {
		select {
		case pr := <-out:
			return pr
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for projection")
			return Projection{}
		}
	}

	assert.Empty(t, next().Visible)

	store.Upsert(record("a", "Sanitation"))
	assert.Equal(t, []string{"a"}, visibleIDs(next()))

	store.Upsert(record("b", "Water Department"))
	assert.Equal(t, []string{"a"}, visibleIDs(next()))

	p.SetFilter(complaint.FilterSpec{Status: complaint.StatusResolved})
	assert.Empty(t, next().Visible)

	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, 0, current.Stats.Total)

	p.Close()
	store.Upsert(record("c", "Sanitation"))
	p.SetFilter(complaint.FilterSpec{})

	select {
	case <-out:
		t.Fatal("projection emitted after close")
	case <-time.After(20 * time.Millisecond):
	}
}

var _ geo.Clusterer = (*geoService.Clusterer)(nil)
