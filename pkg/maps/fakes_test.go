package maps

import (
	"encoding/json"
	"image"
	"sync"
	"testing"

	"github.com/go-drift/mapbridge/pkg/errors"
	"github.com/go-drift/mapbridge/pkg/platform"
)

// fakeView records lifecycle calls in order.
type fakeView struct {
	calls []string
	saved []map[string]any
	ready func(NativeMap)
}

func (v *fakeView) OnCreate(savedState map[string]any) {
	v.calls = append(v.calls, "create")
	v.saved = append(v.saved, savedState)
}
func (v *fakeView) OnStart()  { v.calls = append(v.calls, "start") }
func (v *fakeView) OnResume() { v.calls = append(v.calls, "resume") }
func (v *fakeView) OnPause()  { v.calls = append(v.calls, "pause") }
func (v *fakeView) OnStop()   { v.calls = append(v.calls, "stop") }
func (v *fakeView) OnSaveInstanceState(out map[string]any) {
	v.calls = append(v.calls, "save")
	out["saved"] = true
}
func (v *fakeView) OnDestroy() { v.calls = append(v.calls, "destroy") }

func (v *fakeView) GetMapAsync(ready func(NativeMap)) {
	v.ready = ready
}

func (v *fakeView) count(call string) int {
	n := 0
	for _, c := range v.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeMap is a NativeMap that records commands.
type fakeMap struct {
	listeners    Listeners
	applied      []MapOptions
	permission   bool
	myLocation   []bool
	camera       CameraPosition
	moves        []CameraUpdate
	animations   []CameraUpdate
	markers      map[string]*fakeMarker
	polygons     map[string]*fakePolygon
	snapshot     image.Image
	addMarkerErr error
}

func newFakeMap() *fakeMap {
	return &fakeMap{
		markers:  make(map[string]*fakeMarker),
		polygons: make(map[string]*fakePolygon),
		snapshot: image.NewRGBA(image.Rect(0, 0, 4, 2)),
	}
}

func (m *fakeMap) SetListeners(l Listeners)          { m.listeners = l }
func (m *fakeMap) ApplyOptions(opts MapOptions)      { m.applied = append(m.applied, opts) }
func (m *fakeMap) HasLocationPermission() bool       { return m.permission }
func (m *fakeMap) SetMyLocationEnabled(enabled bool) { m.myLocation = append(m.myLocation, enabled) }
func (m *fakeMap) CameraPosition() CameraPosition    { return m.camera }
func (m *fakeMap) MoveCamera(u CameraUpdate)         { m.moves = append(m.moves, u) }
func (m *fakeMap) AnimateCamera(u CameraUpdate)      { m.animations = append(m.animations, u) }

func (m *fakeMap) AddMarker(id string, opts MarkerOptions) (Marker, error) {
	if m.addMarkerErr != nil {
		return nil, m.addMarkerErr
	}
	fm := &fakeMarker{}
	fm.Apply(opts)
	m.markers[id] = fm
	return fm, nil
}

func (m *fakeMap) AddPolygon(id string, opts PolygonOptions) (Polygon, error) {
	fp := &fakePolygon{}
	fp.Apply(opts)
	m.polygons[id] = fp
	return fp, nil
}

func (m *fakeMap) Snapshot(ready func(image.Image)) {
	ready(m.snapshot)
}

type fakeMarker struct {
	position LatLng
	applied  int
	removed  int
}

func (m *fakeMarker) Apply(opts MarkerOptions) {
	m.applied++
	if opts.Position != nil {
		m.position = *opts.Position
	}
}
func (m *fakeMarker) Position() LatLng { return m.position }
func (m *fakeMarker) Remove()          { m.removed++ }

type fakePolygon struct {
	points  []LatLng
	applied int
	removed int
}

func (p *fakePolygon) Apply(opts PolygonOptions) {
	p.applied++
	if opts.Points != nil {
		p.points = opts.Points
	}
}
func (p *fakePolygon) Remove() { p.removed++ }

// harness wires a controller to a recording messenger and a host lifecycle.
type harness struct {
	t    *testing.T
	c    *Controller
	view *fakeView
	host *platform.HostLifecycle
	msgs *platform.RecordingMessenger
}

const testHostContext platform.HostContext = 1

func newHarness(t *testing.T, phase platform.HostPhase, opts ...Option) *harness {
	t.Helper()
	msgs := platform.SetupTestMessenger(t.Cleanup)
	host := platform.NewHostLifecycle(testHostContext, phase)
	view := &fakeView{}
	c := New(7, view, host, InitialState{}, opts...)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &harness{t: t, c: c, view: view, host: host, msgs: msgs}
}

// ready delivers a fresh native map.
func (h *harness) ready() *fakeMap {
	h.t.Helper()
	m := newFakeMap()
	if h.view.ready == nil {
		h.t.Fatal("GetMapAsync was not called")
	}
	h.view.ready(m)
	return m
}

// send issues a call over the controller's channel.
func (h *harness) send(method string, args any) *replies {
	h.t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		h.t.Fatalf("marshal args: %v", err)
	}
	r := &replies{}
	platform.HandleMethodCall(h.c.ChannelName(), method, data, r.add)
	return r
}

// call issues a call and returns its single, synchronous reply.
func (h *harness) call(method string, args any) platform.Reply {
	h.t.Helper()
	return h.send(method, args).only(h.t)
}

func (h *harness) events(method string) []map[string]any {
	var out []map[string]any
	for _, m := range h.msgs.MessagesFor(method) {
		if m.Channel != h.c.ChannelName() {
			continue
		}
		args, _ := m.Args.(map[string]any)
		out = append(out, args)
	}
	return out
}

type replies struct {
	mu   sync.Mutex
	data [][]byte
}

func (r *replies) add(data []byte) {
	r.mu.Lock()
	r.data = append(r.data, data)
	r.mu.Unlock()
}

func (r *replies) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

func (r *replies) only(t *testing.T) platform.Reply {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(r.data))
	}
	reply, err := platform.DecodeReply(r.data[0])
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return reply
}

// captureErrors records reported errors for the test's duration.
func captureErrors(t *testing.T) func() []*errors.BridgeError {
	t.Helper()
	rec := &errors.Recorder{}
	old := errors.SetHandler(rec)
	t.Cleanup(func() { errors.SetHandler(old) })
	return rec.Errors
}
