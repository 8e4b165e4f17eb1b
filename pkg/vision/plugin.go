package vision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/mapbridge/pkg/logging"
	"github.com/go-drift/mapbridge/pkg/platform"
)

// ChannelName is the channel the plugin listens on.
const ChannelName = "drift/vision"

const tracerName = "github.com/go-drift/mapbridge/pkg/vision"

// Plugin answers detection requests:
//
//	FaceDetector#detectInImage {handle?, options, image} -> [face]
//	FaceDetector#close         {handle?}                 -> null
//
// A detector is created per handle on first use and kept until closed.
// Detection runs in the background; the reply is sent when it completes.
type Plugin struct {
	backend Backend
	channel *platform.MethodChannel
	logger  *slog.Logger
	tracer  trace.Tracer
	worker  platform.Worker

	mu        sync.Mutex
	detectors map[int64]*detector
	closed    bool
}

type detector struct {
	opts DetectorOptions
	fd   FaceDetector
	busy sync.WaitGroup // detections running against fd
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracerProvider sets where detection spans are recorded.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Plugin) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewPlugin registers a plugin on ChannelName.
func NewPlugin(backend Backend, opts ...Option) *Plugin {
	p := &Plugin{
		backend:   backend,
		tracer:    otel.Tracer(tracerName),
		detectors: make(map[int64]*detector),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Component("vision")
	}
	p.channel = platform.NewMethodChannel(ChannelName)
	p.channel.SetHandler(p.handleMethodCall)
	return p
}

// Close stops serving, waits for detections in flight and releases every
// detector. Results that complete after Close are dropped.
func (p *Plugin) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.channel.Close()
	detectors := p.detectors
	p.detectors = nil
	p.mu.Unlock()

	p.worker.Wait()
	var firstErr error
	for handle, d := range detectors {
		if err := d.fd.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close detector %d: %w", handle, err)
		}
	}
	return firstErr
}

// Wait blocks until detections in flight have replied.
func (p *Plugin) Wait() {
	p.worker.Wait()
}

func (p *Plugin) handleMethodCall(call platform.MethodCall, result platform.Result) {
	switch call.Method {
	case "FaceDetector#detectInImage":
		p.detectInImage(call.ArgumentMap(), result)
	case "FaceDetector#close":
		handle, err := handleArg(call.ArgumentMap())
		if err != nil {
			result.Error(platform.CodeInvalidArgument, err.Error(), nil)
			return
		}
		p.closeDetector(handle, result)
	default:
		result.NotImplemented()
	}
}

func handleArg(args map[string]any) (int64, error) {
	raw, ok := args["handle"]
	if !ok || raw == nil {
		return 0, nil
	}
	h, err := platform.AsInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("handle: %w", err)
	}
	return h, nil
}

func (p *Plugin) detectInImage(args map[string]any, result platform.Result) {
	handle, err := handleArg(args)
	if err != nil {
		result.Error(platform.CodeInvalidArgument, err.Error(), nil)
		return
	}
	opts, err := ParseOptions(args["options"])
	if err != nil {
		result.Error(platform.CodeInvalidArgument, err.Error(), nil)
		return
	}
	img, err := parseImage(args["image"])
	if err != nil {
		result.Error(platform.CodeInvalidArgument, err.Error(), nil)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.detectorLocked(handle, opts)
	if err != nil {
		result.Error(platform.CodeRecognitionFailure, err.Error(), nil)
		return
	}

	d.busy.Add(1)
	p.worker.Go("vision.detect", func() {
		defer d.busy.Done()
		ctx, span := p.tracer.Start(context.Background(), "FaceDetector#detectInImage",
			trace.WithAttributes(
				attribute.Int64("vision.handle", handle),
				attribute.String("vision.mode", string(opts.Mode)),
			))
		defer span.End()

		faces, err := d.fd.Detect(ctx, img)

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			p.logger.Debug("dropping detection result after close", slog.Int64("handle", handle))
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, platform.CodeRecognitionFailure)
			result.Error(platform.CodeRecognitionFailure, err.Error(), nil)
			return
		}
		span.SetAttributes(attribute.Int("vision.faces", len(faces)))
		out := make([]map[string]any, 0, len(faces))
		for _, f := range faces {
			out = append(out, f.toJSON())
		}
		result.Success(out)
	})
}

// detectorLocked returns the detector for handle, creating it with opts on
// first use. A later request with different options replaces it; the old
// one is closed once its running detections finish.
func (p *Plugin) detectorLocked(handle int64, opts DetectorOptions) (*detector, error) {
	if p.closed {
		return nil, platform.ErrClosed
	}
	if d, ok := p.detectors[handle]; ok {
		if d.opts == opts {
			return d, nil
		}
		delete(p.detectors, handle)
		p.retireLocked(handle, d, nil)
	}
	fd, err := p.backend.NewFaceDetector(opts)
	if err != nil {
		return nil, err
	}
	d := &detector{opts: opts, fd: fd}
	p.detectors[handle] = d
	p.logger.Debug("face detector created", slog.Int64("handle", handle), slog.String("mode", string(opts.Mode)))
	return d, nil
}

// closeDetector releases the detector for handle and replies once it is
// closed. Unknown handles succeed at once.
func (p *Plugin) closeDetector(handle int64, result platform.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.detectors[handle]
	if !ok || p.closed {
		result.Success(nil)
		return
	}
	delete(p.detectors, handle)
	p.retireLocked(handle, d, result)
}

// retireLocked closes d in the background after its detections return.
// result, when set, receives the outcome.
func (p *Plugin) retireLocked(handle int64, d *detector, result platform.Result) {
	p.worker.Go("vision.close", func() {
		d.busy.Wait()
		err := d.fd.Close()
		if err != nil {
			err = fmt.Errorf("close detector %d: %w", handle, err)
		}
		switch {
		case result != nil && err != nil:
			result.Error(platform.CodeRecognitionFailure, err.Error(), nil)
		case result != nil:
			result.Success(nil)
		case err != nil:
			p.logger.Warn("closing replaced detector", slog.Int64("handle", handle), slog.Any("error", err))
		}
	})
}
