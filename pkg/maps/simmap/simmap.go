// Package simmap is an in-memory stand-in for a native map SDK. Callbacks
// are queued on a Scheduler and delivered when the owner calls Flush, the
// way a host's main loop would deliver them.
package simmap

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"sync"

	"github.com/go-drift/mapbridge/pkg/maps"
)

// Scheduler queues native callbacks until Flush.
type Scheduler struct {
	mu    sync.Mutex
	queue []func()
}

// Post queues fn.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// Flush runs queued callbacks, including ones queued while flushing, and
// returns how many ran.
func (s *Scheduler) Flush() int {
	n := 0
	for {
		s.mu.Lock()
		queue := s.queue
		s.queue = nil
		s.mu.Unlock()
		if len(queue) == 0 {
			return n
		}
		for _, fn := range queue {
			fn()
			n++
		}
	}
}

// View is a simulated embedded map view.
type View struct {
	sched *Scheduler
	m     *Map

	mu    sync.Mutex
	calls []string
}

// NewView creates a view whose map renders at width x height pixels.
func NewView(sched *Scheduler, width, height int) *View {
	return &View{sched: sched, m: newMap(sched, width, height)}
}

// Map returns the simulated map, usable before it has been delivered.
func (v *View) Map() *Map { return v.m }

// Calls returns the lifecycle calls received so far.
func (v *View) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

func (v *View) record(call string) {
	v.mu.Lock()
	v.calls = append(v.calls, call)
	v.mu.Unlock()
}

func (v *View) OnCreate(map[string]any) { v.record("create") }
func (v *View) OnStart()                { v.record("start") }
func (v *View) OnResume()               { v.record("resume") }
func (v *View) OnPause()                { v.record("pause") }
func (v *View) OnStop()                 { v.record("stop") }
func (v *View) OnDestroy()              { v.record("destroy") }

func (v *View) OnSaveInstanceState(out map[string]any) {
	v.record("save")
	out["camera"] = v.m.CameraPosition()
}

// GetMapAsync delivers the map on the next Flush.
func (v *View) GetMapAsync(ready func(maps.NativeMap)) {
	v.sched.Post(func() { ready(v.m) })
}

// Map is a simulated native map. Its state is guarded by its own lock;
// listeners are only ever invoked from the Scheduler.
type Map struct {
	sched         *Scheduler
	width, height int

	mu         sync.Mutex
	listeners  maps.Listeners
	options    maps.MapOptions
	permission bool
	myLocation bool
	camera     maps.CameraPosition
	markers    map[string]*marker
	polygons   map[string]*polygon
}

func newMap(sched *Scheduler, width, height int) *Map {
	return &Map{
		sched:    sched,
		width:    width,
		height:   height,
		markers:  make(map[string]*marker),
		polygons: make(map[string]*polygon),
	}
}

// GrantLocationPermission sets what HasLocationPermission reports.
func (m *Map) GrantLocationPermission(granted bool) {
	m.mu.Lock()
	m.permission = granted
	m.mu.Unlock()
}

func (m *Map) SetListeners(l maps.Listeners) {
	m.mu.Lock()
	m.listeners = l
	m.mu.Unlock()
}

func (m *Map) ApplyOptions(opts maps.MapOptions) {
	m.mu.Lock()
	overlay(&m.options, opts)
	m.mu.Unlock()
}

// Options returns the accumulated map options.
func (m *Map) Options() maps.MapOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options
}

func (m *Map) HasLocationPermission() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permission
}

func (m *Map) SetMyLocationEnabled(enabled bool) {
	m.mu.Lock()
	m.myLocation = enabled
	m.mu.Unlock()
}

// MyLocationEnabled reports whether the my-location layer is on.
func (m *Map) MyLocationEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.myLocation
}

func (m *Map) CameraPosition() maps.CameraPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera
}

func (m *Map) MoveCamera(u maps.CameraUpdate) {
	m.moveCamera(u, false)
}

// AnimateCamera moves the camera at once; the simulation has no frames.
func (m *Map) AnimateCamera(u maps.CameraUpdate) {
	m.moveCamera(u, false)
}

func (m *Map) moveCamera(u maps.CameraUpdate, gesture bool) {
	m.mu.Lock()
	m.camera = applyCameraUpdate(m.camera, u, m.width, m.height)
	m.clampZoomLocked()
	m.mu.Unlock()

	m.post(func(l maps.Listeners) {
		if l.OnCameraMoveStarted != nil {
			l.OnCameraMoveStarted(gesture)
		}
		if l.OnCameraMove != nil {
			l.OnCameraMove()
		}
		if l.OnCameraIdle != nil {
			l.OnCameraIdle()
		}
	})
}

func (m *Map) clampZoomLocked() {
	if p := m.options.MinMaxZoomPreference; p != nil {
		if p.Min != nil && m.camera.Zoom < *p.Min {
			m.camera.Zoom = *p.Min
		}
		if p.Max != nil && m.camera.Zoom > *p.Max {
			m.camera.Zoom = *p.Max
		}
	}
}

func (m *Map) AddMarker(id string, opts maps.MarkerOptions) (maps.Marker, error) {
	mk := &marker{m: m}
	mk.Apply(opts)
	m.mu.Lock()
	m.markers[id] = mk
	m.mu.Unlock()
	return mk, nil
}

func (m *Map) AddPolygon(id string, opts maps.PolygonOptions) (maps.Polygon, error) {
	pg := &polygon{m: m}
	pg.Apply(opts)
	m.mu.Lock()
	m.polygons[id] = pg
	m.mu.Unlock()
	return pg, nil
}

// Markers returns the identifiers of markers still on the map.
func (m *Map) Markers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, mk := range m.markers {
		if !mk.removed {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot renders on the next Flush.
func (m *Map) Snapshot(ready func(image.Image)) {
	m.sched.Post(func() { ready(m.render()) })
}

// post queues fn with the listeners current at delivery time.
func (m *Map) post(fn func(maps.Listeners)) {
	m.sched.Post(func() {
		m.mu.Lock()
		l := m.listeners
		m.mu.Unlock()
		fn(l)
	})
}

// render draws markers as dots and polygon vertices as pixels on a flat
// background, in an equirectangular projection around the camera target.
func (m *Map) render() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	bg := color.RGBA{R: 0xe8, G: 0xe4, B: 0xd8, A: 0xff}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	for _, pg := range m.polygons {
		if pg.removed {
			continue
		}
		for _, p := range pg.opts.Points {
			x, y := m.projectLocked(p)
			img.SetRGBA(x, y, color.RGBA{B: 0xc0, A: 0xff})
		}
	}
	for _, mk := range m.markers {
		if mk.removed || (mk.opts.Visible != nil && !*mk.opts.Visible) {
			continue
		}
		x, y := m.projectLocked(mk.position())
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				img.SetRGBA(x+dx, y+dy, color.RGBA{R: 0xd0, A: 0xff})
			}
		}
	}
	return img
}

func (m *Map) projectLocked(p maps.LatLng) (int, int) {
	scale := degreesPerPixel(m.camera.Zoom)
	x := float64(m.width)/2 + (p.Longitude-m.camera.Target.Longitude)/scale
	y := float64(m.height)/2 - (p.Latitude-m.camera.Target.Latitude)/scale
	return int(math.Round(x)), int(math.Round(y))
}

// degreesPerPixel is the horizontal resolution of a 256-pixel world tile at zoom.
func degreesPerPixel(zoom float64) float64 {
	return 360 / (256 * math.Pow(2, zoom))
}

func applyCameraUpdate(cur maps.CameraPosition, u maps.CameraUpdate, width, height int) maps.CameraPosition {
	switch u.Kind {
	case maps.CameraNewPosition:
		return u.Position
	case maps.CameraNewLatLng:
		cur.Target = u.Target
	case maps.CameraNewLatLngZoom:
		cur.Target, cur.Zoom = u.Target, u.Zoom
	case maps.CameraNewBounds:
		sw, ne := u.Bounds.Southwest, u.Bounds.Northeast
		cur.Target = maps.LatLng{
			Latitude:  (sw.Latitude + ne.Latitude) / 2,
			Longitude: (sw.Longitude + ne.Longitude) / 2,
		}
		span := math.Max(ne.Longitude-sw.Longitude, ne.Latitude-sw.Latitude)
		avail := float64(min(width, height)) - 2*u.Padding
		if span > 0 && avail > 0 {
			cur.Zoom = math.Log2(360 * avail / (256 * span))
		}
	case maps.CameraScrollBy:
		scale := degreesPerPixel(cur.Zoom)
		cur.Target.Longitude += u.DX * scale
		cur.Target.Latitude -= u.DY * scale
	case maps.CameraZoomBy:
		cur.Zoom += u.Amount
	case maps.CameraZoomIn:
		cur.Zoom++
	case maps.CameraZoomOut:
		cur.Zoom--
	case maps.CameraZoomTo:
		cur.Zoom = u.Zoom
	}
	return cur
}

// overlay copies the non-nil pointer and slice fields of src onto dst.
// dst must be a pointer to a struct of the same type as src.
func overlay(dst, src any) {
	d := reflect.ValueOf(dst).Elem()
	s := reflect.ValueOf(src)
	for i := 0; i < s.NumField(); i++ {
		if f := s.Field(i); !f.IsNil() {
			d.Field(i).Set(f)
		}
	}
}

type marker struct {
	m         *Map
	opts      maps.MarkerOptions
	removed   bool
	infoShown bool
}

func (mk *marker) Apply(opts maps.MarkerOptions) {
	mk.m.mu.Lock()
	overlay(&mk.opts, opts)
	mk.m.mu.Unlock()
}

func (mk *marker) Position() maps.LatLng {
	mk.m.mu.Lock()
	defer mk.m.mu.Unlock()
	return mk.position()
}

func (mk *marker) position() maps.LatLng {
	if mk.opts.Position == nil {
		return maps.LatLng{}
	}
	return *mk.opts.Position
}

func (mk *marker) Remove() {
	mk.m.mu.Lock()
	mk.removed = true
	mk.m.mu.Unlock()
}

type polygon struct {
	m       *Map
	opts    maps.PolygonOptions
	removed bool
}

func (pg *polygon) Apply(opts maps.PolygonOptions) {
	pg.m.mu.Lock()
	overlay(&pg.opts, opts)
	pg.m.mu.Unlock()
}

func (pg *polygon) Remove() {
	pg.m.mu.Lock()
	pg.removed = true
	pg.m.mu.Unlock()
}
