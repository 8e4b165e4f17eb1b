// Package maps bridges one embedded native map view to a remote caller.
//
// A Controller owns the view for its whole life: it replays the host's
// current lifecycle phase onto the freshly created view, follows later host
// notifications, answers the caller's commands on its own channel and
// forwards native callbacks back as events.
//
// Every entry point (commands, native callbacks, host notifications, async
// completions) takes the controller's lock, so registry changes never
// interleave. Native callbacks must be delivered from the host's scheduler,
// never synchronously from inside a NativeMap call.
package maps

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/mapbridge/pkg/errors"
	"github.com/go-drift/mapbridge/pkg/logging"
	"github.com/go-drift/mapbridge/pkg/platform"
)

// ViewType is the platform view type served by Factory.
const ViewType = "drift/maps"

// DefaultChannelPrefix prefixes the per-view channel name; the view id follows.
const DefaultChannelPrefix = "drift/maps_"

const tracerName = "github.com/go-drift/mapbridge/pkg/maps"

// Controller is one bridge instance: a map view, its entities and its channel.
type Controller struct {
	id        int64
	channel   *platform.MethodChannel
	view      EmbeddedView
	lifecycle platform.LifecycleSource

	prefix         string
	density        float64
	fs             afero.Fs
	snapshotMaxDim int
	logger         *slog.Logger
	tracer         trace.Tracer
	newID          func() string
	worker         platform.Worker

	mu                  sync.Mutex
	nativeMap           NativeMap // guarded by mu; nil until ready
	markers             *entityRegistry[*markerController]
	polygons            *entityRegistry[*polygonController]
	pendingReady        []platform.Result
	pendingOptions      MapOptions      // applied at ready
	initialCamera       *CameraPosition // applied at ready
	trackCameraPosition bool
	myLocationEnabled   bool
	hostContext         platform.HostContext
	attached            bool
	unsubscribe         func()
	disposed            bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDensity sets the display density used to scale pixel arguments.
func WithDensity(density float64) Option {
	return func(c *Controller) {
		if density > 0 {
			c.density = density
		}
	}
}

// WithFs sets the filesystem snapshots are written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Controller) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithSnapshotMaxDimension downscales snapshots whose longer side exceeds
// limit pixels. Zero keeps the native size.
func WithSnapshotMaxDimension(limit int) Option {
	return func(c *Controller) { c.snapshotMaxDim = limit }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets where command spans are recorded.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithChannelPrefix overrides DefaultChannelPrefix.
func WithChannelPrefix(prefix string) Option {
	return func(c *Controller) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// withIDSource replaces identifier minting. Tests only.
func withIDSource(next func() string) Option {
	return func(c *Controller) { c.newID = next }
}

// New creates a controller for view and opens its channel. Call Init to
// attach it to the host lifecycle.
func New(id int64, view EmbeddedView, lifecycle platform.LifecycleSource, initial InitialState, opts ...Option) *Controller {
	c := &Controller{
		id:        id,
		view:      view,
		lifecycle: lifecycle,
		prefix:    DefaultChannelPrefix,
		density:   1,
		fs:        afero.NewOsFs(),
		tracer:    otel.Tracer(tracerName),
		newID:     uuid.NewString,
		markers:   newEntityRegistry[*markerController]("marker"),
		polygons:  newEntityRegistry[*polygonController]("polygon"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Component("maps")
	}
	c.logger = c.logger.With(slog.Int64("view_id", id))
	c.channel = platform.NewMethodChannel(fmt.Sprintf("%s%d", c.prefix, id))

	c.initialCamera = initial.Camera
	c.pendingOptions = initial.Options
	if v := initial.Options.TrackCameraPosition; v != nil {
		c.trackCameraPosition = *v
	}
	if v := initial.Options.MyLocationEnabled; v != nil {
		c.myLocationEnabled = *v
	}

	c.channel.SetHandler(c.handleMethodCall)
	return c
}

// ViewID returns the platform view id.
func (c *Controller) ViewID() int64 {
	return c.id
}

// ViewType returns ViewType.
func (c *Controller) ViewType() string {
	return ViewType
}

// ChannelName returns the name of the controller's channel.
func (c *Controller) ChannelName() string {
	return c.channel.Name()
}

// Dispose closes the channel, destroys the native view and stops following
// the host. Later callbacks, notifications and async completions are
// dropped. Dispose is idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyLocked("dispose")
}

// destroyLocked is the single exit path shared by Dispose and the host's
// destroyed notification.
func (c *Controller) destroyLocked(reason string) {
	if c.disposed {
		return
	}
	c.disposed = true
	c.channel.Close()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.attached {
		c.view.OnDestroy()
	}
	if n := len(c.pendingReady); n > 0 {
		c.logger.Debug("dropping pending ready replies", slog.Int("count", n))
		c.pendingReady = nil
	}
	c.logger.Debug("map controller destroyed", slog.String("reason", reason))
}

// emitLocked sends one event unless the controller is disposed.
func (c *Controller) emitLocked(method string, args map[string]any) {
	if c.disposed {
		c.logger.Debug("dropping event after dispose", slog.String("method", method))
		return
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := c.channel.InvokeMethod(method, args); err != nil {
		errors.Report(&errors.BridgeError{
			Op:      "maps.emit",
			Kind:    errors.KindPlatform,
			Channel: c.channel.Name(),
			Err:     fmt.Errorf("send %s: %w", method, err),
		})
	}
}

func (c *Controller) emit(method string, args map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(method, args)
}

// Wait blocks until background snapshot writes have finished.
func (c *Controller) Wait() {
	c.worker.Wait()
}

// Markers returns the ids of the live markers, sorted.
func (c *Controller) Markers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markers.ids()
}

// Polygons returns the ids of the live polygons, sorted.
func (c *Controller) Polygons() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polygons.ids()
}
