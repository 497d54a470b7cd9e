// internal/domain/geo/service.go

package geo

import (
	"context"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// Address is a structured reverse-geocoding result
type Address struct {
	Street         string `json:"street"`
	Area           string `json:"area"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postalCode"`
	Country        string `json:"country"`
	DisplayAddress string `json:"displayAddress"`
}

// Tier is the visual density tier of a hot zone
type Tier string

// Tiers
const (
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Bounds is the bounding box of a cluster's members. MinLng exceeds
// MaxLng when the box crosses the antimeridian.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// Cluster is a hot zone: complaints grouped by proximity
type Cluster struct {
	Center    complaint.LatLng `json:"center"`
	MemberIDs []string         `json:"memberIds"`
	Weight    float64          `json:"weight"`
	Tier      Tier             `json:"tier"`
	Count     int              `json:"count"`
	Intensity float64          `json:"intensity"`
	Bounds    Bounds           `json:"bounds"`
}

// Nearby is a complaint annotated with its distance from a query point
type Nearby struct {
	Complaint  complaint.Complaint `json:"complaint"`
	DistanceKm float64             `json:"distanceKm"`
}

// Geocoder turns coordinates into a structured address
type Geocoder interface {
	// ReverseGeocode returns the address at lat/lng
	ReverseGeocode(ctx context.Context, lat, lng float64) (Address, error)
}

// Clusterer groups complaints into hot zones
type Clusterer interface {
	// Cluster groups every complaint that has coordinates
	Cluster(complaints []complaint.Complaint) []Cluster
}
