// internal/adapter/geocode/googlemaps.go

package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
)

// ErrNoResults is returned when the provider knows nothing at a point
var ErrNoResults = errors.New("no geocoding results")

// GoogleMapsGeocoder reverse geocodes through the Google Maps API
type GoogleMapsGeocoder struct {
	client *maps.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder
func NewGoogleMapsGeocoder(apiKey string) (*GoogleMapsGeocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("maps API key is required")
	}

	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating maps client: %w", err)
	}

	return &GoogleMapsGeocoder{client: client}, nil
}

// ReverseGeocode implements geo.Geocoder
func (g *GoogleMapsGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (geo.Address, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return geo.Address{}, fmt.Errorf("error reverse geocoding: %w", err)
	}

	if len(results) == 0 {
		return geo.Address{}, ErrNoResults
	}

	return addressFromResult(results[0]), nil
}

// addressFromResult picks the structured parts out of a geocoding result
func addressFromResult(result maps.GeocodingResult) geo.Address {
	addr := geo.Address{DisplayAddress: result.FormattedAddress}

	var number, route string
	for _, component := range result.AddressComponents {
		for _, t := range component.Types {
			switch t {
			case "street_number":
				number = component.LongName
			case "route":
				route = component.LongName
			case "sublocality", "sublocality_level_1", "neighborhood":
				if addr.Area == "" {
					addr.Area = component.LongName
				}
			case "locality":
				addr.City = component.LongName
			case "administrative_area_level_2":
				if addr.City == "" {
					addr.City = component.LongName
				}
			case "administrative_area_level_1":
				addr.State = component.LongName
			case "postal_code":
				addr.PostalCode = component.LongName
			case "country":
				addr.Country = component.LongName
			}
		}
	}

	switch {
	case number != "" && route != "":
		addr.Street = number + " " + route
	default:
		addr.Street = route
	}

	return addr
}
