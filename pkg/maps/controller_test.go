package maps

import (
	"fmt"
	"testing"

	"github.com/go-drift/mapbridge/pkg/platform"
)

func TestWaitForMapBeforeReady(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)

	first := h.send("map#waitForMap", nil)
	second := h.send("map#waitForMap", nil)
	if first.len() != 0 || second.len() != 0 {
		t.Fatal("waitForMap replied before the map was ready")
	}

	h.ready()

	for i, r := range []*replies{first, second} {
		reply := r.only(t)
		if reply.IsError() || reply.Result != nil {
			t.Errorf("reply %d = %+v, want null success", i, reply)
		}
	}
}

func TestWaitForMapAfterReady(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	h.ready()

	reply := h.call("map#waitForMap", nil)
	if reply.IsError() || reply.Result != nil {
		t.Errorf("reply = %+v, want null success", reply)
	}
}

func TestMapReadyTwiceIgnored(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	first := h.ready()
	h.view.ready(newFakeMap())

	h.call("marker#add", map[string]any{"options": map[string]any{}})
	if len(first.markers) != 1 {
		t.Error("second map delivery replaced the first")
	}
}

func TestMarkerIdentifiersUnique(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		reply := h.call("marker#add", map[string]any{
			"options": map[string]any{"position": []float64{float64(i), 1}},
		})
		id, ok := reply.Result.(string)
		if reply.IsError() || !ok || id == "" {
			t.Fatalf("marker#add reply = %+v", reply)
		}
		if seen[id] {
			t.Fatalf("identifier %s minted twice", id)
		}
		seen[id] = true
	}
	if len(m.markers) != 50 {
		t.Errorf("native markers = %d, want 50", len(m.markers))
	}
}

func TestDuplicateIdentifier(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed, withIDSource(func() string { return "same" }))
	m := h.ready()

	if reply := h.call("marker#add", map[string]any{"options": map[string]any{}}); reply.Result != "same" {
		t.Fatalf("first add = %+v", reply)
	}
	reply := h.call("marker#add", map[string]any{"options": map[string]any{}})
	if reply.ErrorCode != platform.CodeDuplicateIdentifier {
		t.Errorf("second add code = %q, want %q", reply.ErrorCode, platform.CodeDuplicateIdentifier)
	}
	reply = h.call("polygon#add", map[string]any{"options": map[string]any{}})
	if reply.IsError() {
		t.Errorf("polygon ids are independent of marker ids: %+v", reply)
	}
	if len(m.markers) != 1 {
		t.Errorf("native markers = %d, want 1", len(m.markers))
	}
	if got := h.c.Markers(); len(got) != 1 || got[0] != "same" {
		t.Errorf("Markers() = %v", got)
	}
	if got := h.c.Polygons(); len(got) != 1 || got[0] != "same" {
		t.Errorf("Polygons() = %v", got)
	}
}

func TestRemoveUnknownSucceeds(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	h.ready()

	for _, tc := range []struct{ method, key string }{
		{"marker#remove", "marker"},
		{"polygon#remove", "polygon"},
	} {
		reply := h.call(tc.method, map[string]any{tc.key: "nope"})
		if reply.IsError() || reply.Result != nil {
			t.Errorf("%s unknown = %+v, want null success", tc.method, reply)
		}
	}
}

func TestRemoveReleasesNativeObject(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()

	id := h.call("marker#add", map[string]any{"options": map[string]any{}}).Result.(string)
	h.call("marker#remove", map[string]any{"marker": id})
	h.call("marker#remove", map[string]any{"marker": id})
	if m.markers[id].removed != 1 {
		t.Errorf("marker removed %d times, want 1", m.markers[id].removed)
	}

	pid := h.call("polygon#add", map[string]any{"options": map[string]any{}}).Result.(string)
	h.call("polygon#remove", map[string]any{"polygon": pid})
	if m.polygons[pid].removed != 1 {
		t.Errorf("polygon removed %d times, want 1", m.polygons[pid].removed)
	}
	reply := h.call("polygon#update", map[string]any{"polygon": pid, "options": map[string]any{}})
	if reply.ErrorCode != platform.CodeUnknownIdentifier {
		t.Errorf("update after remove = %+v", reply)
	}
}

func TestUpdateUnknownFails(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	h.ready()

	reply := h.call("marker#update", map[string]any{"marker": "ghost", "options": map[string]any{}})
	if reply.ErrorCode != platform.CodeUnknownIdentifier {
		t.Errorf("marker#update code = %q, want %q", reply.ErrorCode, platform.CodeUnknownIdentifier)
	}
	if reply.ErrorMessage == "" {
		t.Error("error message is empty")
	}
	reply = h.call("polygon#update", map[string]any{"polygon": "ghost", "options": map[string]any{}})
	if reply.ErrorCode != platform.CodeUnknownIdentifier {
		t.Errorf("polygon#update code = %q, want %q", reply.ErrorCode, platform.CodeUnknownIdentifier)
	}
}

func TestMarkerUpdateApplies(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()
	id := h.call("marker#add", map[string]any{"options": map[string]any{}}).Result.(string)

	reply := h.call("marker#update", map[string]any{
		"marker":  id,
		"options": map[string]any{"position": map[string]any{"lat": 3, "lng": 4}},
	})
	if reply.IsError() {
		t.Fatalf("marker#update = %+v", reply)
	}
	if got := m.markers[id].position; got != (LatLng{Latitude: 3, Longitude: 4}) {
		t.Errorf("position = %+v", got)
	}
}

func TestDragCommands(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()
	id := h.call("marker#add", map[string]any{"options": map[string]any{}}).Result.(string)

	for _, method := range []string{"marker#drag", "marker#dragStart", "marker#dragEnd"} {
		reply := h.call(method, map[string]any{
			"marker":  id,
			"options": map[string]any{"position": []float64{5, 6}},
		})
		if reply.Result != id {
			t.Errorf("%s with live id = %+v, want %s", method, reply, id)
		}
	}
	if got := m.markers[id].position; got != (LatLng{Latitude: 5, Longitude: 6}) {
		t.Errorf("position = %+v", got)
	}

	reply := h.call("marker#drag", map[string]any{"options": map[string]any{}})
	if fresh, ok := reply.Result.(string); !ok || fresh == id {
		t.Errorf("drag without id = %+v, want a new identifier", reply)
	}
	if len(m.markers) != 2 {
		t.Errorf("native markers = %d, want 2", len(m.markers))
	}
}

func TestCommandsBeforeReady(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)

	calls := []struct {
		method string
		args   map[string]any
	}{
		{"camera#move", map[string]any{"cameraUpdate": []any{"zoomIn"}}},
		{"camera#animate", map[string]any{"cameraUpdate": []any{"zoomOut"}}},
		{"marker#add", map[string]any{"options": map[string]any{}}},
		{"polygon#add", map[string]any{"options": map[string]any{}}},
		{"map#takeSnapshot", map[string]any{"filePath": "/tmp/x.png"}},
	}
	for _, tc := range calls {
		reply := h.call(tc.method, tc.args)
		if reply.ErrorCode != platform.CodeViewNotReady {
			t.Errorf("%s before ready = %+v, want %s", tc.method, reply, platform.CodeViewNotReady)
		}
	}
}

func TestUpdateOptionsBeforeReadyDeferred(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)

	reply := h.call("map#update", map[string]any{
		"options": map[string]any{"compassEnabled": false, "myLocationEnabled": true},
	})
	if reply.IsError() || reply.Result != nil {
		t.Fatalf("map#update before ready = %+v, want null", reply)
	}
	h.call("map#update", map[string]any{"options": map[string]any{"mapType": 2}})

	m := newFakeMap()
	m.permission = true
	h.view.ready(m)

	if len(m.applied) != 1 {
		t.Fatalf("applied = %d option sets, want 1", len(m.applied))
	}
	got := m.applied[0]
	if got.CompassEnabled == nil || *got.CompassEnabled || got.MapType == nil || *got.MapType != 2 {
		t.Errorf("applied options = %+v", got)
	}
	if len(m.myLocation) != 1 || !m.myLocation[0] {
		t.Errorf("my-location calls = %v, want [true]", m.myLocation)
	}
}

func TestUpdateOptionsReturnsTrackedCamera(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()
	m.camera = CameraPosition{Target: LatLng{Latitude: 1, Longitude: 2}, Zoom: 3, Bearing: 4, Tilt: 5}

	reply := h.call("map#update", map[string]any{"options": map[string]any{
		"rotateGesturesEnabled": true,
		"trackCameraPosition":   true,
	}})
	pos, ok := reply.Result.(map[string]any)
	if !ok {
		t.Fatalf("reply = %+v, want camera position", reply)
	}
	target, _ := pos["target"].(map[string]any)
	if target["lat"] != 1.0 || target["lng"] != 2.0 || pos["zoom"] != 3.0 || pos["bearing"] != 4.0 || pos["tilt"] != 5.0 {
		t.Errorf("position = %v", pos)
	}
	if len(m.applied) != 1 || m.applied[0].RotateGesturesEnabled == nil {
		t.Errorf("applied = %+v", m.applied)
	}
}

func TestUpdateOptionsUntrackedCameraIsNull(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()
	m.camera = CameraPosition{Target: LatLng{Latitude: 1, Longitude: 2}, Zoom: 3}

	reply := h.call("map#update", map[string]any{"options": map[string]any{"compassEnabled": true}})
	if reply.IsError() || reply.Result != nil {
		t.Errorf("reply = %+v, want null while the camera is not tracked", reply)
	}

	h.call("map#update", map[string]any{"options": map[string]any{"trackCameraPosition": true}})
	reply = h.call("map#update", map[string]any{"options": map[string]any{"trackCameraPosition": false}})
	if reply.Result != nil {
		t.Errorf("reply after tracking turned off = %+v, want null", reply)
	}
	if len(m.applied) != 1 {
		t.Errorf("applied = %d option sets, want 1 (tracking is not a native field)", len(m.applied))
	}
}

func TestMyLocationNeedsPermission(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()

	h.call("map#update", map[string]any{"options": map[string]any{"myLocationEnabled": true}})
	if len(m.myLocation) != 0 {
		t.Errorf("my-location set without permission: %v", m.myLocation)
	}
	m.permission = true
	h.call("map#update", map[string]any{"options": map[string]any{"myLocationEnabled": false}})
	if len(m.myLocation) != 1 || m.myLocation[0] {
		t.Errorf("my-location calls = %v, want [false]", m.myLocation)
	}
}

func TestInitialStateAppliedAtReady(t *testing.T) {
	platform.SetupTestMessenger(t.Cleanup)
	host := platform.NewHostLifecycle(testHostContext, platform.PhaseResumed)
	view := &fakeView{}
	initial, err := decodeCreationParams(map[string]any{
		"initialCameraPosition": map[string]any{"target": []any{10.0, 20.0}, "zoom": 4.0},
		"options":               map[string]any{"zoomGesturesEnabled": false},
	})
	if err != nil {
		t.Fatalf("decodeCreationParams: %v", err)
	}
	c := New(3, view, host, initial)
	if err := c.Init(nil); err != nil {
		t.Fatal(err)
	}
	m := newFakeMap()
	view.ready(m)

	if len(m.moves) != 1 || m.moves[0].Kind != CameraNewPosition || m.moves[0].Position.Zoom != 4 {
		t.Errorf("moves = %+v", m.moves)
	}
	if len(m.applied) != 1 || m.applied[0].ZoomGesturesEnabled == nil {
		t.Errorf("applied = %+v", m.applied)
	}
}

func TestCameraCommands(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed, WithDensity(2))
	m := h.ready()

	h.call("camera#move", map[string]any{"cameraUpdate": []any{"scrollBy", 10, 20}})
	h.call("camera#animate", map[string]any{"cameraUpdate": []any{"newLatLngZoom", []any{1, 2}, 11}})

	if len(m.moves) != 1 || m.moves[0].DX != 20 || m.moves[0].DY != 40 {
		t.Errorf("moves = %+v", m.moves)
	}
	if len(m.animations) != 1 || m.animations[0].Zoom != 11 {
		t.Errorf("animations = %+v", m.animations)
	}
}

func TestInvalidArguments(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	h.ready()

	tests := []struct {
		method string
		args   any
	}{
		{"marker#update", map[string]any{"options": map[string]any{}}},
		{"marker#update", map[string]any{"marker": 5, "options": map[string]any{}}},
		{"marker#add", map[string]any{"options": map[string]any{"alpha": "opaque"}}},
		{"marker#add", map[string]any{}},
		{"marker#remove", map[string]any{}},
		{"camera#move", map[string]any{"cameraUpdate": []any{"spin"}}},
		{"camera#move", map[string]any{"cameraUpdate": []any{"zoomTo"}}},
		{"map#update", map[string]any{"options": map[string]any{"compassEnabled": "yes"}}},
		{"map#takeSnapshot", map[string]any{}},
		{"polygon#getAreaInMeters", map[string]any{"options": map[string]any{}}},
		{"polygon#add", map[string]any{"options": map[string]any{"points": []any{[]any{1}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			reply := h.call(tt.method, tt.args)
			if reply.ErrorCode != platform.CodeInvalidArgument {
				t.Errorf("%s(%v) = %+v, want %s", tt.method, tt.args, reply, platform.CodeInvalidArgument)
			}
		})
	}
}

func TestUnknownMethodNotImplemented(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	h.ready()

	if reply := h.call("map#spin", nil); !reply.NotImplemented {
		t.Errorf("reply = %+v, want notImplemented", reply)
	}
}

func TestNativeAddFailure(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	m := h.ready()
	m.addMarkerErr = fmt.Errorf("out of markers")

	reply := h.call("marker#add", map[string]any{"options": map[string]any{}})
	if reply.ErrorCode != platform.CodeInternal {
		t.Errorf("reply = %+v, want %s", reply, platform.CodeInternal)
	}
}

func TestPolygonAreaCommand(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)

	reply := h.call("polygon#getAreaInMeters", map[string]any{
		"options": map[string]any{"points": []any{[]any{0, 0}, []any{0, 1}, []any{1, 1}, []any{1, 0}}},
	})
	area, ok := reply.Result.(float64)
	if !ok {
		t.Fatalf("reply = %+v, want number", reply)
	}
	if !approx(area, oneDegreeSquare, 1e-3) {
		t.Errorf("area = %g, want %g", area, oneDegreeSquare)
	}
}

func TestCallsAfterDispose(t *testing.T) {
	h := newHarness(t, platform.PhaseResumed)
	reported := captureErrors(t)
	pending := h.send("map#waitForMap", nil)

	h.c.Dispose()
	h.ready()

	if pending.len() != 0 {
		t.Error("pending waitForMap was answered after dispose")
	}
	if reply := h.call("marker#add", map[string]any{"options": map[string]any{}}); !reply.NotImplemented {
		t.Errorf("reply after dispose = %+v, want notImplemented", reply)
	}
	if len(reported()) == 0 {
		t.Error("call on a closed channel was not reported")
	}
}
