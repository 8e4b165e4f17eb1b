package maps

import "image"

// EmbeddedView is the lifecycle surface of the native map view. Its methods
// must be called in the same cumulative order the host goes through.
type EmbeddedView interface {
	OnCreate(savedState map[string]any)
	OnStart()
	OnResume()
	OnPause()
	OnStop()
	OnSaveInstanceState(out map[string]any)
	OnDestroy()

	// GetMapAsync requests the map. ready is called once, from the host's
	// scheduler, when the map can accept commands.
	GetMapAsync(ready func(NativeMap))
}

// NativeMap is the command surface of a ready map.
type NativeMap interface {
	// SetListeners replaces every callback the map delivers.
	SetListeners(l Listeners)

	// ApplyOptions applies the UI fields of opts. Nil fields are left alone.
	// Camera tracking and the my-location layer are handled by the controller.
	ApplyOptions(opts MapOptions)
	HasLocationPermission() bool
	SetMyLocationEnabled(enabled bool)

	CameraPosition() CameraPosition
	MoveCamera(update CameraUpdate)
	AnimateCamera(update CameraUpdate)

	AddMarker(id string, opts MarkerOptions) (Marker, error)
	AddPolygon(id string, opts PolygonOptions) (Polygon, error)

	// Snapshot renders the map and calls ready with the image, or nil when
	// rendering failed.
	Snapshot(ready func(image.Image))
}

// Marker is a native point annotation.
type Marker interface {
	Apply(opts MarkerOptions)
	Position() LatLng
	Remove()
}

// Polygon is a native closed region annotation.
type Polygon interface {
	Apply(opts PolygonOptions)
	Remove()
}

// Listeners holds one handler per native callback. Ids are the identifiers
// the entity was added with.
type Listeners struct {
	OnMapLoaded         func()
	OnCameraMoveStarted func(isGesture bool)
	OnCameraMove        func()
	OnCameraIdle        func()

	OnInfoWindowTap func(markerID string)
	// OnMarkerTap reports whether the tap was consumed.
	OnMarkerTap       func(markerID string) bool
	OnMarkerDragStart func(markerID string)
	OnMarkerDrag      func(markerID string)
	OnMarkerDragEnd   func(markerID string)

	OnPolygonTap func(polygonID string)

	OnMapTap     func(at LatLng)
	OnMapLongTap func(at LatLng)

	// OnMyLocationButtonTap reports whether the tap was consumed.
	OnMyLocationButtonTap func() bool
	OnMyLocationTap       func(at LatLng)
}
