// internal/service/geo/clusterer.go

package geo

import (
	"math"
	"sort"
	"time"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
)

// Members at which a hot zone renders at full heat
const intensitySaturation = 5.0

// priorityWeights is each priority's contribution when weighting is enabled
var priorityWeights = map[complaint.Priority]float64{
	complaint.PriorityLow:    0.5,
	complaint.PriorityNormal: 1,
	complaint.PriorityHigh:   1.5,
	complaint.PriorityUrgent: 2,
}

// ClustererConfig contains configuration for hot zone grouping
type ClustererConfig struct {
	RadiusMeters      float64
	HighDensityWeight float64
	PriorityWeighted  bool
}

// DefaultClustererConfig returns the default clustering configuration
func DefaultClustererConfig() ClustererConfig {
	return ClustererConfig{
		RadiusMeters:      100,
		HighDensityWeight: 4,
	}
}

// Clusterer groups complaints into hot zones. Two complaints share a zone
// when a chain of complaints, each closer than the radius to the next,
// links them.
type Clusterer struct {
	config ClustererConfig
}

// NewClusterer creates a new clusterer
func NewClusterer(config ClustererConfig) *Clusterer {
	defaults := DefaultClustererConfig()
	if config.RadiusMeters <= 0 {
		config.RadiusMeters = defaults.RadiusMeters
	}
	if config.HighDensityWeight <= 0 {
		config.HighDensityWeight = defaults.HighDensityWeight
	}
	return &Clusterer{config: config}
}

// Cluster groups every complaint that has coordinates. The result is
// ordered by weight, heaviest first, then by first member id.
func (c *Clusterer) Cluster(complaints []complaint.Complaint) []geo.Cluster {
	start := time.Now()
	defer func() {
		metrics.ClusterDuration.Observe(time.Since(start).Seconds())
	}()

	points := make([]complaint.Complaint, 0, len(complaints))
	for _, cp := range complaints {
		if cp.HasCoordinates() {
			points = append(points, cp)
		}
	}
	if len(points) == 0 {
		return []geo.Cluster{}
	}

	// Process in id order so membership does not depend on input order
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].ID < points[j].ID
	})

	radiusKm := c.config.RadiusMeters / 1000
	// Latitude alone bounds the distance from below
	maxDLat := radiusKm / earthRadiusKm * 180 / math.Pi

	// TODO: bucket points into radius-sized grid cells before the pairwise
	// pass once live sets grow past a few thousand complaints.
	uf := newUnionFind(len(points))
	for i := 0; i < len(points); i++ {
		a := *points[i].Location.Coords
		for j := i + 1; j < len(points); j++ {
			b := *points[j].Location.Coords
			if math.Abs(a.Lat-b.Lat) >= maxDLat {
				continue
			}
			if Distance(a, b) < radiusKm {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	roots := make([]int, 0)
	for i := range points {
		root := uf.find(i)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], i)
	}

	clusters := make([]geo.Cluster, 0, len(roots))
	for _, root := range roots {
		clusters = append(clusters, c.build(points, groups[root]))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Weight != clusters[j].Weight {
			return clusters[i].Weight > clusters[j].Weight
		}
		return clusters[i].MemberIDs[0] < clusters[j].MemberIDs[0]
	})

	return clusters
}

// build summarizes one group; members arrive in id order.
// Longitudes are taken relative to the first member so a group spanning
// the antimeridian averages correctly; its bounds then have MinLng > MaxLng.
func (c *Clusterer) build(points []complaint.Complaint, members []int) geo.Cluster {
	first := *points[members[0]].Location.Coords
	minLng, maxLng := first.Lng, first.Lng
	bounds := geo.Bounds{MinLat: first.Lat, MaxLat: first.Lat}

	var sumLat, sumLng, weight float64
	ids := make([]string, 0, len(members))
	for _, idx := range members {
		p := points[idx]
		coords := *p.Location.Coords
		lng := unwrapLng(coords.Lng, first.Lng)

		ids = append(ids, p.ID)
		sumLat += coords.Lat
		sumLng += lng
		weight += c.weightOf(p)

		bounds.MinLat = math.Min(bounds.MinLat, coords.Lat)
		bounds.MaxLat = math.Max(bounds.MaxLat, coords.Lat)
		minLng = math.Min(minLng, lng)
		maxLng = math.Max(maxLng, lng)
	}
	bounds.MinLng = normalizeLng(minLng)
	bounds.MaxLng = normalizeLng(maxLng)

	n := float64(len(members))
	tier := geo.TierMedium
	if weight >= c.config.HighDensityWeight {
		tier = geo.TierHigh
	}

	return geo.Cluster{
		Center:    complaint.LatLng{Lat: sumLat / n, Lng: normalizeLng(sumLng / n)},
		MemberIDs: ids,
		Weight:    weight,
		Tier:      tier,
		Count:     len(members),
		Intensity: math.Min(n/intensitySaturation, 1),
		Bounds:    bounds,
	}
}

// unwrapLng shifts lng by whole turns to lie within 180 degrees of ref
func unwrapLng(lng, ref float64) float64 {
	for lng-ref > 180 {
		lng -= 360
	}
	for lng-ref < -180 {
		lng += 360
	}
	return lng
}

// normalizeLng maps lng into [-180, 180]
func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

func (c *Clusterer) weightOf(p complaint.Complaint) float64 {
	if !c.config.PriorityWeighted {
		return 1
	}
	if w, ok := priorityWeights[p.Priority]; ok {
		return w
	}
	return 1
}

// unionFind keeps the smallest index of each set as its root
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
