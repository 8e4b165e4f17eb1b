package maps

import (
	"log/slog"
)

// onMapReady installs the native listeners, applies the settings that
// arrived before the map did, and releases every waiting map#waitForMap.
func (c *Controller) onMapReady(m NativeMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		c.logger.Debug("map delivered after dispose")
		return
	}
	if c.nativeMap != nil {
		return
	}
	c.nativeMap = m
	m.SetListeners(c.listeners())
	if c.initialCamera != nil {
		m.MoveCamera(CameraUpdate{Kind: CameraNewPosition, Position: *c.initialCamera})
		c.initialCamera = nil
	}
	if c.pendingOptions.hasNativeFields() {
		m.ApplyOptions(c.pendingOptions)
	}
	c.pendingOptions = MapOptions{}
	c.updateMyLocationLocked()

	pending := c.pendingReady
	c.pendingReady = nil
	for _, r := range pending {
		r.Success(nil)
	}
	c.logger.Debug("map ready", slog.Int("waiters", len(pending)))
}

// updateMyLocationLocked pushes the my-location flag to the map when the
// host has granted location permission.
func (c *Controller) updateMyLocationLocked() {
	if c.nativeMap == nil {
		return
	}
	if c.nativeMap.HasLocationPermission() {
		c.nativeMap.SetMyLocationEnabled(c.myLocationEnabled)
		return
	}
	if c.myLocationEnabled {
		c.logger.Warn("cannot enable my-location layer: location permission not granted")
	}
}

// listeners builds the native callbacks. Each one takes the controller lock
// and emits at most one event.
func (c *Controller) listeners() Listeners {
	return Listeners{
		OnMapLoaded: func() {
			c.emit("map#onLoaded", nil)
		},
		OnCameraMoveStarted: func(isGesture bool) {
			c.emit("camera#onMoveStarted", map[string]any{"isGesture": isGesture})
		},
		OnCameraMove: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.trackCameraPosition || c.nativeMap == nil {
				return
			}
			c.emitLocked("camera#onMove", map[string]any{
				"position": c.nativeMap.CameraPosition().toJSON(),
			})
		},
		OnCameraIdle: func() {
			c.emit("camera#onIdle", nil)
		},
		OnInfoWindowTap: func(markerID string) {
			c.emit("infoWindow#onTap", map[string]any{"marker": markerID})
		},
		OnMarkerTap: func(markerID string) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			mc, ok := c.markers.lookup(markerID)
			if !ok || c.disposed {
				return false
			}
			return mc.onTap()
		},
		OnMarkerDragStart: func(markerID string) {
			c.markerDrag(markerID, "marker#onDragStart")
		},
		OnMarkerDrag: func(markerID string) {
			c.markerDrag(markerID, "marker#onDrag")
		},
		OnMarkerDragEnd: func(markerID string) {
			c.markerDrag(markerID, "marker#onDragEnd")
		},
		OnPolygonTap: func(polygonID string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if pc, ok := c.polygons.lookup(polygonID); ok {
				pc.onTap()
			}
		},
		OnMapTap: func(at LatLng) {
			c.emit("map#onTap", latLngArgs(at))
		},
		OnMapLongTap: func(at LatLng) {
			c.emit("map#onLongTap", latLngArgs(at))
		},
		OnMyLocationButtonTap: func() bool {
			c.emit("location#buttonClick", nil)
			return false
		},
		OnMyLocationTap: func(at LatLng) {
			c.emit("location#locationClick", latLngArgs(at))
		},
	}
}

func (c *Controller) markerDrag(markerID, method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mc, ok := c.markers.lookup(markerID); ok {
		mc.onDrag(method)
	}
}

func latLngArgs(at LatLng) map[string]any {
	return map[string]any{"latitude": at.Latitude, "longitude": at.Longitude}
}
