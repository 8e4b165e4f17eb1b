package maps

// polygonController owns one native polygon. Unlike markers, taps are always
// reported and consumption is left to the native polygon's own settings.
type polygonController struct {
	id      string
	polygon Polygon
	removed bool
	emit    emitFunc
}

func newPolygonController(id string, polygon Polygon, emit emitFunc) *polygonController {
	return &polygonController{id: id, polygon: polygon, emit: emit}
}

func (pc *polygonController) interpret(opts PolygonOptions) {
	pc.polygon.Apply(opts)
}

func (pc *polygonController) onTap() {
	pc.emit("polygon#onTap", map[string]any{"polygon": pc.id})
}

func (pc *polygonController) remove() {
	if pc.removed {
		return
	}
	pc.removed = true
	pc.polygon.Remove()
}
