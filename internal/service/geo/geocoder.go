// internal/service/geo/geocoder.go

package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
)

// CoordinateAddress formats coordinates as a last-resort address
func CoordinateAddress(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

// FallbackGeocoder wraps a geocoder so a lookup never fails. When the
// upstream errors, times out or returns nothing usable, the address is the
// coordinate string.
type FallbackGeocoder struct {
	upstream geo.Geocoder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFallbackGeocoder creates a new fallback geocoder. upstream may be nil.
func NewFallbackGeocoder(upstream geo.Geocoder, timeout time.Duration, logger *slog.Logger) *FallbackGeocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackGeocoder{
		upstream: upstream,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve returns the address at lat/lng, degrading to the coordinate string
func (g *FallbackGeocoder) Resolve(ctx context.Context, lat, lng float64) geo.Address {
	fallback := geo.Address{DisplayAddress: CoordinateAddress(lat, lng)}
	if g.upstream == nil {
		return fallback
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	addr, err := g.upstream.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("geocoder").Inc()
		g.logger.Warn("reverse geocoding failed, using coordinates",
			"lat", lat,
			"lng", lng,
			"error", err,
		)
		return fallback
	}

	if strings.TrimSpace(addr.DisplayAddress) == "" {
		addr.DisplayAddress = fallback.DisplayAddress
	}
	return addr
}
