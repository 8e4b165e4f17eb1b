package simmap

import "github.com/go-drift/mapbridge/pkg/maps"

// The methods below simulate user input. Each queues the callbacks the
// native SDK would deliver; nothing runs until the Scheduler is flushed.

// Loaded reports that tiles finished loading.
func (m *Map) Loaded() {
	m.post(func(l maps.Listeners) {
		if l.OnMapLoaded != nil {
			l.OnMapLoaded()
		}
	})
}

// Tap taps the map at a coordinate.
func (m *Map) Tap(at maps.LatLng) {
	m.post(func(l maps.Listeners) {
		if l.OnMapTap != nil {
			l.OnMapTap(at)
		}
	})
}

// LongTap long-presses the map at a coordinate.
func (m *Map) LongTap(at maps.LatLng) {
	m.post(func(l maps.Listeners) {
		if l.OnMapLongTap != nil {
			l.OnMapLongTap(at)
		}
	})
}

// Pan drags the map by (dx, dy) pixels.
func (m *Map) Pan(dx, dy float64) {
	m.moveCamera(maps.CameraUpdate{Kind: maps.CameraScrollBy, DX: dx, DY: dy}, true)
}

// TapMarker taps a marker. When the tap is not consumed the map shows the
// marker's info window, which is then tappable.
func (m *Map) TapMarker(id string) {
	m.post(func(l maps.Listeners) {
		if l.OnMarkerTap == nil {
			return
		}
		consumed := l.OnMarkerTap(id)
		m.mu.Lock()
		if mk, ok := m.markers[id]; ok {
			mk.infoShown = !consumed && mk.opts.InfoWindow != nil
		}
		m.mu.Unlock()
	})
}

// TapInfoWindow taps the info window of a marker if it is shown.
func (m *Map) TapInfoWindow(id string) {
	m.post(func(l maps.Listeners) {
		m.mu.Lock()
		mk, ok := m.markers[id]
		shown := ok && mk.infoShown
		m.mu.Unlock()
		if shown && l.OnInfoWindowTap != nil {
			l.OnInfoWindowTap(id)
		}
	})
}

// DragMarker drags a draggable marker to a coordinate, delivering start,
// drag and end callbacks. Markers that are not draggable do not move.
func (m *Map) DragMarker(id string, to maps.LatLng) {
	m.post(func(l maps.Listeners) {
		m.mu.Lock()
		mk, ok := m.markers[id]
		draggable := ok && !mk.removed && mk.opts.Draggable != nil && *mk.opts.Draggable
		m.mu.Unlock()
		if !draggable {
			return
		}
		if l.OnMarkerDragStart != nil {
			l.OnMarkerDragStart(id)
		}
		m.mu.Lock()
		mk.opts.Position = &to
		m.mu.Unlock()
		if l.OnMarkerDrag != nil {
			l.OnMarkerDrag(id)
		}
		if l.OnMarkerDragEnd != nil {
			l.OnMarkerDragEnd(id)
		}
	})
}

// TapPolygon taps a polygon. Only clickable polygons report taps.
func (m *Map) TapPolygon(id string) {
	m.post(func(l maps.Listeners) {
		m.mu.Lock()
		pg, ok := m.polygons[id]
		clickable := ok && !pg.removed && pg.opts.Clickable != nil && *pg.opts.Clickable
		m.mu.Unlock()
		if clickable && l.OnPolygonTap != nil {
			l.OnPolygonTap(id)
		}
	})
}

// TapMyLocationButton taps the my-location button. When the tap is not
// consumed the camera centers on the given device location.
func (m *Map) TapMyLocationButton(device maps.LatLng) {
	m.post(func(l maps.Listeners) {
		if !m.MyLocationEnabled() || l.OnMyLocationButtonTap == nil {
			return
		}
		if !l.OnMyLocationButtonTap() {
			m.moveCamera(maps.CameraUpdate{Kind: maps.CameraNewLatLng, Target: device}, false)
		}
	})
}

// TapMyLocation taps the my-location dot.
func (m *Map) TapMyLocation(at maps.LatLng) {
	m.post(func(l maps.Listeners) {
		if m.MyLocationEnabled() && l.OnMyLocationTap != nil {
			l.OnMyLocationTap(at)
		}
	})
}
