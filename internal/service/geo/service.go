// internal/service/geo/service.go

package geo

import (
	"math"
	"sort"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between two points in kilometers
func Distance(a, b complaint.LatLng) float64 {
	// Convert latitude and longitude from degrees to radians
	lat1 := a.Lat * math.Pi / 180.0
	lon1 := a.Lng * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	lon2 := b.Lng * math.Pi / 180.0

	// Haversine formula
	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// IsWithinBounds checks if a point lies within radiusKm of center
func IsWithinBounds(point, center complaint.LatLng, radiusKm float64) bool {
	return Distance(point, center) <= radiusKm
}

// WithinRadius returns the complaints within radiusKm of center, nearest
// first. Complaints without coordinates are skipped.
func WithinRadius(complaints []complaint.Complaint, center complaint.LatLng, radiusKm float64) []geo.Nearby {
	nearby := make([]geo.Nearby, 0)
	for _, c := range complaints {
		if !c.HasCoordinates() {
			continue
		}
		d := Distance(*c.Location.Coords, center)
		if d <= radiusKm {
			nearby = append(nearby, geo.Nearby{Complaint: c, DistanceKm: d})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		if nearby[i].DistanceKm != nearby[j].DistanceKm {
			return nearby[i].DistanceKm < nearby[j].DistanceKm
		}
		return nearby[i].Complaint.ID < nearby[j].Complaint.ID
	})

	return nearby
}
