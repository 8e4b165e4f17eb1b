package replay

import (
	"fmt"

	"github.com/go-drift/mapbridge/pkg/maps"
	"github.com/go-drift/mapbridge/pkg/maps/simmap"
	"github.com/go-drift/mapbridge/pkg/platform"
)

// native simulates user input on a view's map. The callbacks it queues run
// when the runner settles.
func (r *Runner) native(action string, viewID int64, rawArgs map[string]any) error {
	if viewID == 0 {
		viewID = r.defaultView()
	}
	r.mu.Lock()
	view, ok := r.simViews[viewID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("native %s: no view %d", action, viewID)
	}
	m := view.Map()
	args, _ := r.substitute(rawArgs).(map[string]any)

	switch action {
	case "loaded":
		m.Loaded()
	case "tap", "longTap", "tapMyLocation":
		at, err := latLngArg(args, "at")
		if err != nil {
			return fmt.Errorf("native %s: %w", action, err)
		}
		switch action {
		case "tap":
			m.Tap(at)
		case "longTap":
			m.LongTap(at)
		default:
			m.TapMyLocation(at)
		}
	case "tapMyLocationButton":
		device, err := latLngArg(args, "device")
		if err != nil {
			return fmt.Errorf("native %s: %w", action, err)
		}
		m.TapMyLocationButton(device)
	case "pan":
		dx, err := platform.AsFloat64(args["dx"])
		if err != nil {
			return fmt.Errorf("native pan: dx: %w", err)
		}
		dy, err := platform.AsFloat64(args["dy"])
		if err != nil {
			return fmt.Errorf("native pan: dy: %w", err)
		}
		m.Pan(dx, dy)
	case "tapMarker", "tapInfoWindow", "dragMarker":
		id, err := platform.AsString(args["marker"])
		if err != nil {
			return fmt.Errorf("native %s: marker: %w", action, err)
		}
		switch action {
		case "tapMarker":
			m.TapMarker(id)
		case "tapInfoWindow":
			m.TapInfoWindow(id)
		default:
			to, err := latLngArg(args, "to")
			if err != nil {
				return fmt.Errorf("native %s: %w", action, err)
			}
			m.DragMarker(id, to)
		}
	case "tapPolygon":
		id, err := platform.AsString(args["polygon"])
		if err != nil {
			return fmt.Errorf("native tapPolygon: polygon: %w", err)
		}
		m.TapPolygon(id)
	case "grantLocation":
		granted := true
		if v, ok := args["granted"]; ok {
			b, err := platform.AsBool(v)
			if err != nil {
				return fmt.Errorf("native grantLocation: granted: %w", err)
			}
			granted = b
		}
		m.GrantLocationPermission(granted)
	default:
		return fmt.Errorf("unknown native action %q", action)
	}
	return nil
}

// View returns the simulated view behind a platform view id.
func (r *Runner) View(viewID int64) (*simmap.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.simViews[viewID]
	return v, ok
}

func latLngArg(args map[string]any, key string) (maps.LatLng, error) {
	pair, err := platform.AsList(args[key])
	if err != nil || len(pair) != 2 {
		return maps.LatLng{}, fmt.Errorf("%s: want [lat, lng]", key)
	}
	lat, err := platform.AsFloat64(pair[0])
	if err != nil {
		return maps.LatLng{}, fmt.Errorf("%s: %w", key, err)
	}
	lng, err := platform.AsFloat64(pair[1])
	if err != nil {
		return maps.LatLng{}, fmt.Errorf("%s: %w", key, err)
	}
	return maps.LatLng{Latitude: lat, Longitude: lng}, nil
}
