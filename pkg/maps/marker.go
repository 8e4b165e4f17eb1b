package maps

// emitFunc sends one outbound event. Called with the controller lock held.
type emitFunc func(method string, args map[string]any)

// markerController owns one native marker.
type markerController struct {
	id               string
	marker           Marker
	consumeTapEvents bool
	removed          bool
	emit             emitFunc
}

func newMarkerController(id string, marker Marker, opts MarkerOptions, emit emitFunc) *markerController {
	mc := &markerController{id: id, marker: marker, emit: emit}
	if opts.ConsumeTapEvents != nil {
		mc.consumeTapEvents = *opts.ConsumeTapEvents
	}
	return mc
}

// interpret applies a partial update.
func (mc *markerController) interpret(opts MarkerOptions) {
	if opts.ConsumeTapEvents != nil {
		mc.consumeTapEvents = *opts.ConsumeTapEvents
	}
	mc.marker.Apply(opts)
}

// onTap reports the tap and returns whether it was consumed. The event is
// sent whether or not the marker consumes taps.
func (mc *markerController) onTap() bool {
	mc.emit("marker#onTap", map[string]any{"marker": mc.id})
	return mc.consumeTapEvents
}

func (mc *markerController) onDrag(method string) {
	pos := mc.marker.Position()
	mc.emit(method, map[string]any{
		"marker":    mc.id,
		"latitude":  pos.Latitude,
		"longitude": pos.Longitude,
	})
}

// remove releases the native marker. Safe to call more than once.
func (mc *markerController) remove() {
	if mc.removed {
		return
	}
	mc.removed = true
	mc.marker.Remove()
}
