package maps

import (
	"fmt"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// CameraUpdateKind names a camera movement.
type CameraUpdateKind string

const (
	CameraNewPosition   CameraUpdateKind = "newCameraPosition"
	CameraNewLatLng     CameraUpdateKind = "newLatLng"
	CameraNewBounds     CameraUpdateKind = "newLatLngBounds"
	CameraNewLatLngZoom CameraUpdateKind = "newLatLngZoom"
	CameraScrollBy      CameraUpdateKind = "scrollBy"
	CameraZoomBy        CameraUpdateKind = "zoomBy"
	CameraZoomIn        CameraUpdateKind = "zoomIn"
	CameraZoomOut       CameraUpdateKind = "zoomOut"
	CameraZoomTo        CameraUpdateKind = "zoomTo"
)

// CameraUpdate is a decoded camera movement. Which fields are meaningful
// depends on Kind. Pixel quantities are already scaled by the display density.
type CameraUpdate struct {
	Kind     CameraUpdateKind
	Position CameraPosition // newCameraPosition
	Target   LatLng         // newLatLng, newLatLngZoom
	Bounds   LatLngBounds   // newLatLngBounds
	Padding  float64        // newLatLngBounds
	Zoom     float64        // newLatLngZoom, zoomTo
	Amount   float64        // zoomBy
	Focus    *Point         // zoomBy, optional
	DX, DY   float64        // scrollBy
}

// parseCameraUpdate decodes the list wire form, e.g. ["newLatLngZoom", [1, 2], 11].
func parseCameraUpdate(raw any, density float64) (CameraUpdate, error) {
	list, err := platform.AsList(raw)
	if err != nil || len(list) == 0 {
		return CameraUpdate{}, fmt.Errorf("%w: cameraUpdate must be a non-empty list", platform.ErrInvalidArguments)
	}
	name, err := platform.AsString(list[0])
	if err != nil {
		return CameraUpdate{}, fmt.Errorf("cameraUpdate kind: %w", err)
	}
	args := list[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d arguments, got %d", platform.ErrInvalidArguments, name, n, len(args))
		}
		return nil
	}

	u := CameraUpdate{Kind: CameraUpdateKind(name)}
	switch u.Kind {
	case CameraNewPosition:
		if err := need(1); err != nil {
			return u, err
		}
		u.Position, err = decodeArgs[CameraPosition](args[0], "cameraPosition")
	case CameraNewLatLng:
		if err := need(1); err != nil {
			return u, err
		}
		u.Target, err = parseLatLng(args[0])
	case CameraNewBounds:
		if err := need(2); err != nil {
			return u, err
		}
		if u.Bounds, err = parseLatLngBounds(args[0]); err != nil {
			return u, err
		}
		u.Padding, err = platform.AsFloat64(args[1])
		u.Padding *= density
	case CameraNewLatLngZoom:
		if err := need(2); err != nil {
			return u, err
		}
		if u.Target, err = parseLatLng(args[0]); err != nil {
			return u, err
		}
		u.Zoom, err = platform.AsFloat64(args[1])
	case CameraScrollBy:
		if err := need(2); err != nil {
			return u, err
		}
		if u.DX, err = platform.AsFloat64(args[0]); err != nil {
			return u, err
		}
		u.DY, err = platform.AsFloat64(args[1])
		u.DX *= density
		u.DY *= density
	case CameraZoomBy:
		if err := need(1); err != nil {
			return u, err
		}
		if u.Amount, err = platform.AsFloat64(args[0]); err != nil {
			return u, err
		}
		if len(args) > 1 && args[1] != nil {
			x, y, perr := parsePair(args[1])
			if perr != nil {
				return u, perr
			}
			u.Focus = &Point{X: x * density, Y: y * density}
		}
	case CameraZoomIn, CameraZoomOut:
	case CameraZoomTo:
		if err := need(1); err != nil {
			return u, err
		}
		u.Zoom, err = platform.AsFloat64(args[0])
	default:
		return u, fmt.Errorf("%w: cannot interpret %q as CameraUpdate", platform.ErrInvalidArguments, name)
	}
	if err != nil {
		return CameraUpdate{}, err
	}
	return u, nil
}
