// Package replay drives the bridge from a script of JSON lines against the
// simulated map engine and prints every reply and event it produces.
//
// Each script line is one of:
//
//	{"create": {"viewType": "drift/maps", "params": {...}}, "save": "view"}
//	{"host": "paused", "context": 1}
//	{"native": "tapMarker", "view": 1, "args": {"marker": "$m"}}
//	{"method": "marker#add", "view": 1, "arguments": {...}, "save": "m"}
//	{"method": "FaceDetector#detectInImage", "channel": "drift/vision", "arguments": {...}}
//
// A string argument "$name" is replaced with the result saved under name.
// Blank lines and lines starting with # are skipped.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/mapbridge/pkg/logging"
	"github.com/go-drift/mapbridge/pkg/maps"
	"github.com/go-drift/mapbridge/pkg/maps/simmap"
	"github.com/go-drift/mapbridge/pkg/platform"
	"github.com/go-drift/mapbridge/pkg/vision"
)

// PlatformViewsChannel is the channel views are created on.
const PlatformViewsChannel = "drift/platform_views"

// HostContext is the context of the simulated host.
const HostContext platform.HostContext = 1

// Options configures a Runner.
type Options struct {
	Phase                platform.HostPhase
	Density              float64
	SnapshotMaxDimension int
	ChannelPrefix        string
	// Fs backs snapshot files and vision fixtures.
	Fs afero.Fs
	// Width and Height size the simulated map in pixels.
	Width, Height  int
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Record is one line of output.
type Record struct {
	Line           int    `json:"line"`
	Kind           string `json:"kind"`
	Channel        string `json:"channel"`
	Method         string `json:"method"`
	Result         any    `json:"result,omitempty"`
	Args           any    `json:"args,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	NotImplemented bool   `json:"notImplemented,omitempty"`
}

// Record kinds.
const (
	KindReply = "reply"
	KindEvent = "event"
)

type step struct {
	Create    map[string]any `mapstructure:"create"`
	Host      string         `mapstructure:"host"`
	Context   *int64         `mapstructure:"context"`
	State     map[string]any `mapstructure:"state"`
	Native    string         `mapstructure:"native"`
	View      int64          `mapstructure:"view"`
	Args      map[string]any `mapstructure:"args"`
	Method    string         `mapstructure:"method"`
	Channel   string         `mapstructure:"channel"`
	Arguments any            `mapstructure:"arguments"`
	Save      string         `mapstructure:"save"`
}

// Runner owns one simulated host. Only one Runner may be live per process
// because it installs itself as the platform messenger.
type Runner struct {
	opts      Options
	logger    *slog.Logger
	sched     simmap.Scheduler
	lifecycle *platform.HostLifecycle
	lcChannel *platform.MethodChannel
	views     *platform.PlatformViewRegistry
	plugin    *vision.Plugin

	mu          sync.Mutex
	enc         *json.Encoder
	line        int
	saved       map[string]any
	simViews    map[int64]*simmap.View
	controllers []*maps.Controller
	lastView    int64
}

// New creates a runner writing records to out.
func New(out io.Writer, opts Options) *Runner {
	if opts.Phase == 0 {
		opts.Phase = platform.PhaseResumed
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 256, 256
	}
	if opts.ChannelPrefix == "" {
		opts.ChannelPrefix = maps.DefaultChannelPrefix
	}
	if opts.Density == 0 {
		opts.Density = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Component("replay")
	}

	r := &Runner{
		opts:      opts,
		logger:    logger,
		lifecycle: platform.NewHostLifecycle(HostContext, opts.Phase),
		enc:       json.NewEncoder(out),
		saved:     make(map[string]any),
		simViews:  make(map[int64]*simmap.View),
	}
	platform.SetMessenger(r)

	r.lcChannel = platform.NewMethodChannel(platform.LifecycleChannel)
	r.lcChannel.SetHandler(r.lifecycle.HandleMethodCall)

	r.views = platform.NewPlatformViewRegistry(PlatformViewsChannel)
	r.views.RegisterFactory(&mapFactory{r: r, Factory: maps.Factory{
		Lifecycle: r.lifecycle,
		NewView:   r.newView,
		Options: []maps.Option{
			maps.WithDensity(opts.Density),
			maps.WithFs(opts.Fs),
			maps.WithSnapshotMaxDimension(opts.SnapshotMaxDimension),
			maps.WithLogger(logger.With(slog.String("component", "maps"))),
			maps.WithTracerProvider(opts.TracerProvider),
			maps.WithChannelPrefix(opts.ChannelPrefix),
		},
	}})

	r.plugin = vision.NewPlugin(vision.FixtureBackend{Fs: opts.Fs},
		vision.WithLogger(logger.With(slog.String("component", "vision"))),
		vision.WithTracerProvider(opts.TracerProvider),
	)
	return r
}

// mapFactory records every controller so the runner can wait on its
// background work.
type mapFactory struct {
	maps.Factory
	r *Runner
}

func (f *mapFactory) Create(viewID int64, params map[string]any) (platform.PlatformView, error) {
	v, err := f.Factory.Create(viewID, params)
	if err != nil {
		return nil, err
	}
	f.r.mu.Lock()
	f.r.controllers = append(f.r.controllers, v.(*maps.Controller))
	f.r.lastView = viewID
	f.r.mu.Unlock()
	return v, nil
}

func (r *Runner) newView(viewID int64, _ maps.InitialState) (maps.EmbeddedView, error) {
	v := simmap.NewView(&r.sched, r.opts.Width, r.opts.Height)
	r.mu.Lock()
	r.simViews[viewID] = v
	r.mu.Unlock()
	return v, nil
}

// Close disposes every view and the vision plugin.
func (r *Runner) Close() error {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.simViews))
	for id := range r.simViews {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r.views.Dispose(id)
	}
	r.settle()
	r.lcChannel.Close()
	err := r.plugin.Close()
	platform.SetMessenger(nil)
	return err
}

// Run executes every line of script. It stops at the first malformed line.
func (r *Runner) Run(ctx context.Context, script io.Reader) error {
	sc := bufio.NewScanner(script)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	n := 0
	for sc.Scan() {
		n++
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := r.Step(n, []byte(text)); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}

// Step executes one script line and waits until the bridge is idle.
func (r *Runner) Step(line int, data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("malformed step: %w", err)
	}
	var s step
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("malformed step: %w", err)
	}

	r.mu.Lock()
	r.line = line
	r.mu.Unlock()

	switch {
	case s.Create != nil:
		err = r.call(PlatformViewsChannel, "create", s.Create, s.Save)
	case s.Host != "":
		ctx := int64(HostContext)
		if s.Context != nil {
			ctx = *s.Context
		}
		args := map[string]any{"context": ctx, "transition": s.Host}
		if s.State != nil {
			args["state"] = s.State
		}
		err = r.call(platform.LifecycleChannel, "lifecycle#transition", args, s.Save)
	case s.Native != "":
		err = r.native(s.Native, s.View, s.Args)
	case s.Method != "":
		channel := s.Channel
		if channel == "" {
			id := s.View
			if id == 0 {
				id = r.defaultView()
			}
			if id == 0 {
				return errors.New("no view to address")
			}
			channel = fmt.Sprintf("%s%d", r.opts.ChannelPrefix, id)
		}
		err = r.call(channel, s.Method, s.Arguments, s.Save)
	default:
		return errors.New("step has no create, host, native or method")
	}
	if err != nil {
		return err
	}
	r.settle()
	return nil
}

// settle delivers queued native callbacks and waits for background work
// until nothing is left.
func (r *Runner) settle() {
	for {
		r.mu.Lock()
		controllers := append([]*maps.Controller(nil), r.controllers...)
		r.mu.Unlock()
		for _, c := range controllers {
			c.Wait()
		}
		r.plugin.Wait()
		if r.sched.Flush() == 0 {
			return
		}
	}
}

func (r *Runner) call(channel, method string, args any, save string) error {
	data, err := platform.DefaultCodec.Encode(r.substitute(args))
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	r.mu.Lock()
	line := r.line
	r.mu.Unlock()

	platform.HandleMethodCall(channel, method, data, func(reply []byte) {
		rep, err := platform.DecodeReply(reply)
		if err != nil {
			r.logger.Error("undecodable reply", slog.String("method", method), slog.Any("error", err))
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if save != "" && !rep.IsError() && !rep.NotImplemented {
			r.saved[save] = rep.Result
		}
		r.writeLocked(Record{
			Line:           line,
			Kind:           KindReply,
			Channel:        channel,
			Method:         method,
			Result:         rep.Result,
			ErrorCode:      rep.ErrorCode,
			ErrorMessage:   rep.ErrorMessage,
			NotImplemented: rep.NotImplemented,
		})
	})
	return nil
}

// Send implements platform.Messenger.
func (r *Runner) Send(channel, method string, args []byte) error {
	decoded, err := platform.DefaultCodec.Decode(args)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(Record{Line: r.line, Kind: KindEvent, Channel: channel, Method: method, Args: decoded})
	return nil
}

func (r *Runner) writeLocked(rec Record) {
	if err := r.enc.Encode(rec); err != nil {
		r.logger.Error("write record", slog.Any("error", err))
	}
}

func (r *Runner) defaultView() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastView
}

// substitute replaces "$name" strings with saved results.
func (r *Runner) substitute(v any) any {
	switch v := v.(type) {
	case string:
		if name, ok := strings.CutPrefix(v, "$"); ok {
			r.mu.Lock()
			saved, found := r.saved[name]
			r.mu.Unlock()
			if found {
				return saved
			}
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = r.substitute(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = r.substitute(e)
		}
		return out
	default:
		return v
	}
}
