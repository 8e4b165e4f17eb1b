package maps

import (
	"fmt"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// LatLngBounds is a latitude/longitude aligned rectangle.
type LatLngBounds struct {
	Southwest LatLng
	Northeast LatLng
}

// Point is a screen position in physical pixels.
type Point struct {
	X float64
	Y float64
}

// Offset is a fractional anchor within an image, (0,0) top-left.
type Offset struct {
	U float64
	V float64
}

// CameraPosition describes the map camera.
type CameraPosition struct {
	Target  LatLng  `mapstructure:"target"`
	Zoom    float64 `mapstructure:"zoom"`
	Bearing float64 `mapstructure:"bearing"`
	Tilt    float64 `mapstructure:"tilt"`
}

// toJSON renders a position as {target:{lat,lng},zoom,bearing,tilt}.
func (p CameraPosition) toJSON() map[string]any {
	return map[string]any{
		"target": map[string]any{
			"lat": p.Target.Latitude,
			"lng": p.Target.Longitude,
		},
		"zoom":    p.Zoom,
		"bearing": p.Bearing,
		"tilt":    p.Tilt,
	}
}

// parseLatLng accepts [lat, lng], {lat, lng} or {latitude, longitude}.
func parseLatLng(v any) (LatLng, error) {
	if list, err := platform.AsList(v); err == nil {
		if len(list) != 2 {
			return LatLng{}, fmt.Errorf("%w: LatLng needs 2 values, got %d", platform.ErrInvalidArguments, len(list))
		}
		lat, err := platform.AsFloat64(list[0])
		if err != nil {
			return LatLng{}, err
		}
		lng, err := platform.AsFloat64(list[1])
		if err != nil {
			return LatLng{}, err
		}
		return LatLng{Latitude: lat, Longitude: lng}, nil
	}
	m, err := platform.AsMap(v)
	if err != nil {
		return LatLng{}, fmt.Errorf("%w: LatLng must be a list or map, got %T", platform.ErrInvalidArguments, v)
	}
	latKey, lngKey := "lat", "lng"
	if _, ok := m["latitude"]; ok {
		latKey, lngKey = "latitude", "longitude"
	}
	lat, err := platform.AsFloat64(m[latKey])
	if err != nil {
		return LatLng{}, fmt.Errorf("%s: %w", latKey, err)
	}
	lng, err := platform.AsFloat64(m[lngKey])
	if err != nil {
		return LatLng{}, fmt.Errorf("%s: %w", lngKey, err)
	}
	return LatLng{Latitude: lat, Longitude: lng}, nil
}

// parseLatLngBounds accepts [southwest, northeast].
func parseLatLngBounds(v any) (LatLngBounds, error) {
	list, err := platform.AsList(v)
	if err != nil || len(list) != 2 {
		return LatLngBounds{}, fmt.Errorf("%w: bounds must be [southwest, northeast]", platform.ErrInvalidArguments)
	}
	sw, err := parseLatLng(list[0])
	if err != nil {
		return LatLngBounds{}, err
	}
	ne, err := parseLatLng(list[1])
	if err != nil {
		return LatLngBounds{}, err
	}
	return LatLngBounds{Southwest: sw, Northeast: ne}, nil
}

// parsePair reads a two-number list.
func parsePair(v any) (float64, float64, error) {
	list, err := platform.AsList(v)
	if err != nil || len(list) != 2 {
		return 0, 0, fmt.Errorf("%w: expected [x, y]", platform.ErrInvalidArguments)
	}
	x, err := platform.AsFloat64(list[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := platform.AsFloat64(list[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
