package maps

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// errNotImplemented marks a method this controller does not serve.
var errNotImplemented = errors.New("not implemented")

// errDeferred marks a call whose Result was kept to be resolved later.
var errDeferred = errors.New("reply deferred")

// handleMethodCall is the channel handler. Every call is resolved exactly
// once, either here or, for map#waitForMap, when the map becomes ready.
func (c *Controller) handleMethodCall(call platform.MethodCall, result platform.Result) {
	_, span := c.tracer.Start(context.Background(), call.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mapbridge.channel", c.channel.Name()),
			attribute.Int64("mapbridge.view_id", c.id),
		))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		span.SetStatus(codes.Error, ErrDisposed.Error())
		result.NotImplemented()
		return
	}

	value, err := c.dispatchLocked(call, result)
	switch {
	case errors.Is(err, errDeferred):
		span.SetAttributes(attribute.Bool("mapbridge.deferred", true))
	case errors.Is(err, errNotImplemented):
		span.SetAttributes(attribute.Bool("mapbridge.not_implemented", true))
		result.NotImplemented()
	case err != nil:
		code := replyCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		result.Error(code, err.Error(), nil)
	default:
		result.Success(value)
	}
}

func (c *Controller) dispatchLocked(call platform.MethodCall, result platform.Result) (any, error) {
	args := call.ArgumentMap()
	switch call.Method {
	case "map#waitForMap":
		if c.nativeMap != nil {
			return nil, nil
		}
		c.pendingReady = append(c.pendingReady, result)
		return nil, errDeferred
	case "map#update":
		return c.updateOptions(args)
	case "map#takeSnapshot":
		return nil, c.takeSnapshot(args)
	case "camera#move":
		return nil, c.moveCamera(args, false)
	case "camera#animate":
		return nil, c.moveCamera(args, true)
	case "marker#add":
		return c.addMarker(args)
	case "marker#drag", "marker#dragStart", "marker#dragEnd":
		return c.dragMarker(args)
	case "marker#remove":
		return nil, c.removeMarker(args)
	case "marker#update":
		return nil, c.updateMarker(args)
	case "polygon#add":
		return c.addPolygon(args)
	case "polygon#getAreaInMeters":
		return c.polygonArea(args)
	case "polygon#remove":
		return nil, c.removePolygon(args)
	case "polygon#update":
		return nil, c.updatePolygon(args)
	default:
		return nil, errNotImplemented
	}
}

func (c *Controller) requireMap() (NativeMap, error) {
	if c.nativeMap == nil {
		return nil, ErrViewNotReady
	}
	return c.nativeMap, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	s, err := platform.AsString(args[key])
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

// updateOptions applies a partial map settings update. Before the map is
// ready the native fields are kept and applied at ready. The reply is the
// current camera position when it is tracked and the map is ready, else nil.
func (c *Controller) updateOptions(args map[string]any) (any, error) {
	opts, err := decodeArgs[MapOptions](args["options"], "options")
	if err != nil {
		return nil, err
	}
	if opts.TrackCameraPosition != nil {
		c.trackCameraPosition = *opts.TrackCameraPosition
	}
	if c.nativeMap == nil {
		c.pendingOptions = c.pendingOptions.merge(opts)
		if opts.MyLocationEnabled != nil {
			c.myLocationEnabled = *opts.MyLocationEnabled
		}
		return nil, nil
	}
	if opts.hasNativeFields() {
		c.nativeMap.ApplyOptions(opts)
	}
	if opts.MyLocationEnabled != nil && *opts.MyLocationEnabled != c.myLocationEnabled {
		c.myLocationEnabled = *opts.MyLocationEnabled
		c.updateMyLocationLocked()
	}
	if !c.trackCameraPosition {
		return nil, nil
	}
	return c.nativeMap.CameraPosition().toJSON(), nil
}

func (c *Controller) moveCamera(args map[string]any, animate bool) error {
	update, err := parseCameraUpdate(args["cameraUpdate"], c.density)
	if err != nil {
		return err
	}
	m, err := c.requireMap()
	if err != nil {
		return err
	}
	if animate {
		m.AnimateCamera(update)
	} else {
		m.MoveCamera(update)
	}
	return nil
}

// addMarkerLocked mints an identifier, creates the native marker and
// registers its controller.
func (c *Controller) addMarkerLocked(m NativeMap, opts MarkerOptions) (string, error) {
	id := c.newID()
	if _, exists := c.markers.lookup(id); exists {
		return "", fmt.Errorf("%w: marker %s", ErrDuplicateIdentifier, id)
	}
	native, err := m.AddMarker(id, opts)
	if err != nil {
		return "", fmt.Errorf("add marker: %w", err)
	}
	mc := newMarkerController(id, native, opts, c.emitLocked)
	if err := c.markers.insert(id, mc); err != nil {
		mc.remove()
		return "", err
	}
	return id, nil
}

func (c *Controller) addMarker(args map[string]any) (any, error) {
	opts, err := decodeArgs[MarkerOptions](args["options"], "options")
	if err != nil {
		return nil, err
	}
	m, err := c.requireMap()
	if err != nil {
		return nil, err
	}
	return c.addMarkerLocked(m, opts)
}

// dragMarker serves the drag commands. When "marker" names a live marker
// its options are updated and its identifier returned; otherwise a new
// marker is created from the options.
func (c *Controller) dragMarker(args map[string]any) (any, error) {
	opts, err := decodeArgs[MarkerOptions](args["options"], "options")
	if err != nil {
		return nil, err
	}
	var id string
	if raw, ok := args["marker"]; ok && raw != nil {
		if id, err = stringArg(args, "marker"); err != nil {
			return nil, err
		}
	}
	m, err := c.requireMap()
	if err != nil {
		return nil, err
	}
	if mc, ok := c.markers.lookup(id); ok && id != "" {
		mc.interpret(opts)
		return id, nil
	}
	return c.addMarkerLocked(m, opts)
}

// removeMarker detaches a marker. Unknown identifiers are ignored.
func (c *Controller) removeMarker(args map[string]any) error {
	id, err := stringArg(args, "marker")
	if err != nil {
		return err
	}
	if mc, ok := c.markers.remove(id); ok {
		mc.remove()
	}
	return nil
}

func (c *Controller) updateMarker(args map[string]any) error {
	id, err := stringArg(args, "marker")
	if err != nil {
		return err
	}
	opts, err := decodeArgs[MarkerOptions](args["options"], "options")
	if err != nil {
		return err
	}
	mc, err := c.markers.get(id)
	if err != nil {
		return err
	}
	mc.interpret(opts)
	return nil
}

func (c *Controller) addPolygon(args map[string]any) (any, error) {
	opts, err := decodeArgs[PolygonOptions](args["options"], "options")
	if err != nil {
		return nil, err
	}
	m, err := c.requireMap()
	if err != nil {
		return nil, err
	}
	id := c.newID()
	if _, exists := c.polygons.lookup(id); exists {
		return nil, fmt.Errorf("%w: polygon %s", ErrDuplicateIdentifier, id)
	}
	native, err := m.AddPolygon(id, opts)
	if err != nil {
		return nil, fmt.Errorf("add polygon: %w", err)
	}
	pc := newPolygonController(id, native, c.emitLocked)
	if err := c.polygons.insert(id, pc); err != nil {
		pc.remove()
		return nil, err
	}
	return id, nil
}

// polygonArea computes the area of options.points. It does not need the map.
func (c *Controller) polygonArea(args map[string]any) (any, error) {
	opts, err := decodeArgs[PolygonOptions](args["options"], "options")
	if err != nil {
		return nil, err
	}
	if opts.Points == nil {
		return nil, fmt.Errorf("%w: options.points is required", platform.ErrInvalidArguments)
	}
	return ComputeArea(opts.Points), nil
}

// removePolygon detaches a polygon. Unknown identifiers are ignored.
func (c *Controller) removePolygon(args map[string]any) error {
	id, err := stringArg(args, "polygon")
	if err != nil {
		return err
	}
	if pc, ok := c.polygons.remove(id); ok {
		pc.remove()
	}
	return nil
}

func (c *Controller) updatePolygon(args map[string]any) error {
	id, err := stringArg(args, "polygon")
	if err != nil {
		return err
	}
	opts, err := decodeArgs[PolygonOptions](args["options"], "options")
	if err != nil {
		return err
	}
	pc, err := c.polygons.get(id)
	if err != nil {
		return err
	}
	pc.interpret(opts)
	return nil
}
