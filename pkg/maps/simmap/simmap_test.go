package simmap

import (
	"image"
	"math"
	"reflect"
	"testing"

	"github.com/go-drift/mapbridge/pkg/maps"
)

type recorder struct {
	events []string
	ready  maps.NativeMap
}

func (r *recorder) listeners(consume bool) maps.Listeners {
	add := func(name string) { r.events = append(r.events, name) }
	return maps.Listeners{
		OnMapLoaded:           func() { add("loaded") },
		OnCameraMoveStarted:   func(g bool) { add(map[bool]string{true: "moveStarted:gesture", false: "moveStarted"}[g]) },
		OnCameraMove:          func() { add("move") },
		OnCameraIdle:          func() { add("idle") },
		OnMarkerTap:           func(string) bool { add("markerTap"); return consume },
		OnInfoWindowTap:       func(string) { add("infoWindowTap") },
		OnMarkerDragStart:     func(string) { add("dragStart") },
		OnMarkerDrag:          func(string) { add("drag") },
		OnMarkerDragEnd:       func(string) { add("dragEnd") },
		OnPolygonTap:          func(string) { add("polygonTap") },
		OnMapTap:              func(maps.LatLng) { add("tap") },
		OnMapLongTap:          func(maps.LatLng) { add("longTap") },
		OnMyLocationButtonTap: func() bool { add("locationButton"); return false },
		OnMyLocationTap:       func(maps.LatLng) { add("locationTap") },
	}
}

func TestGetMapAsyncDeliversOnFlush(t *testing.T) {
	var sched Scheduler
	v := NewView(&sched, 64, 64)
	var got maps.NativeMap
	v.GetMapAsync(func(m maps.NativeMap) { got = m })

	if got != nil {
		t.Fatal("map delivered before flush")
	}
	if n := sched.Flush(); n != 1 {
		t.Errorf("flushed %d callbacks, want 1", n)
	}
	if got != v.Map() {
		t.Error("delivered a different map")
	}
}

func TestCameraUpdates(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 256, 256).Map()
	r := &recorder{}
	m.SetListeners(r.listeners(false))

	m.MoveCamera(maps.CameraUpdate{Kind: maps.CameraNewLatLngZoom, Target: maps.LatLng{Latitude: 10, Longitude: 20}, Zoom: 2})
	m.MoveCamera(maps.CameraUpdate{Kind: maps.CameraZoomIn})
	sched.Flush()

	pos := m.CameraPosition()
	if pos.Target != (maps.LatLng{Latitude: 10, Longitude: 20}) || pos.Zoom != 3 {
		t.Errorf("camera = %+v", pos)
	}
	want := []string{"moveStarted", "move", "idle", "moveStarted", "move", "idle"}
	if !reflect.DeepEqual(r.events, want) {
		t.Errorf("events = %v, want %v", r.events, want)
	}
}

func TestZoomClampedByPreference(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 256, 256).Map()
	limit := 5.0
	m.ApplyOptions(maps.MapOptions{MinMaxZoomPreference: &maps.ZoomPreference{Max: &limit}})

	m.MoveCamera(maps.CameraUpdate{Kind: maps.CameraZoomTo, Zoom: 12})
	if z := m.CameraPosition().Zoom; z != 5 {
		t.Errorf("zoom = %g, want 5", z)
	}
}

func TestPanIsGesture(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 256, 256).Map()
	r := &recorder{}
	m.SetListeners(r.listeners(false))

	m.Pan(256, 0)
	sched.Flush()

	if r.events[0] != "moveStarted:gesture" {
		t.Errorf("events = %v", r.events)
	}
	if lng := m.CameraPosition().Target.Longitude; math.Abs(lng-360) > 1e-9 {
		t.Errorf("longitude = %g, want 360 after one world width at zoom 0", lng)
	}
}

func TestMarkerInput(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 64, 64).Map()
	r := &recorder{}
	m.SetListeners(r.listeners(false))
	yes := true
	title := "hi"
	mk, _ := m.AddMarker("a", maps.MarkerOptions{Draggable: &yes, InfoWindow: &maps.InfoWindow{Title: &title}})
	m.AddMarker("fixed", maps.MarkerOptions{})

	m.TapInfoWindow("a")
	m.TapMarker("a")
	m.TapInfoWindow("a")
	m.DragMarker("a", maps.LatLng{Latitude: 1, Longitude: 2})
	m.DragMarker("fixed", maps.LatLng{Latitude: 1, Longitude: 2})
	sched.Flush()

	want := []string{"markerTap", "infoWindowTap", "dragStart", "drag", "dragEnd"}
	if !reflect.DeepEqual(r.events, want) {
		t.Errorf("events = %v, want %v", r.events, want)
	}
	if mk.Position() != (maps.LatLng{Latitude: 1, Longitude: 2}) {
		t.Errorf("position = %+v", mk.Position())
	}
	mk.Remove()
	if got := m.Markers(); !reflect.DeepEqual(got, []string{"fixed"}) {
		t.Errorf("markers = %v", got)
	}
}

func TestPolygonTapNeedsClickable(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 64, 64).Map()
	r := &recorder{}
	m.SetListeners(r.listeners(false))
	yes := true
	m.AddPolygon("plain", maps.PolygonOptions{})
	m.AddPolygon("clickable", maps.PolygonOptions{Clickable: &yes})

	m.TapPolygon("plain")
	m.TapPolygon("clickable")
	sched.Flush()

	if !reflect.DeepEqual(r.events, []string{"polygonTap"}) {
		t.Errorf("events = %v", r.events)
	}
}

func TestMyLocationInput(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 64, 64).Map()
	r := &recorder{}
	m.SetListeners(r.listeners(false))

	m.TapMyLocation(maps.LatLng{})
	sched.Flush()
	if len(r.events) != 0 {
		t.Fatalf("events with layer off = %v", r.events)
	}

	m.SetMyLocationEnabled(true)
	m.TapMyLocationButton(maps.LatLng{Latitude: 4, Longitude: 5})
	m.TapMyLocation(maps.LatLng{})
	sched.Flush()

	if r.events[0] != "locationButton" || r.events[1] != "locationTap" {
		t.Errorf("events = %v", r.events)
	}
	if got := m.CameraPosition().Target; got != (maps.LatLng{Latitude: 4, Longitude: 5}) {
		t.Errorf("camera target = %+v, want device location", got)
	}
}

func TestSnapshotRendersMarkers(t *testing.T) {
	var sched Scheduler
	m := NewView(&sched, 32, 16).Map()
	pos := maps.LatLng{}
	m.AddMarker("a", maps.MarkerOptions{Position: &pos})

	var img image.Image
	m.Snapshot(func(i image.Image) { img = i })
	sched.Flush()

	if img == nil || img.Bounds().Dx() != 32 || img.Bounds().Dy() != 16 {
		t.Fatalf("snapshot = %v", img)
	}
	r, _, _, _ := img.At(16, 8).RGBA()
	if r>>8 != 0xd0 {
		t.Errorf("center pixel red = %#x, want marker color", r>>8)
	}
}
