package platform

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PlatformView represents a native view embedded in the host and driven over
// a channel.
type PlatformView interface {
	// ViewID returns the unique identifier for this view.
	ViewID() int64

	// ViewType returns the type identifier for this view (e.g., "drift/maps").
	ViewType() string

	// Dispose releases the native view. It must be safe to call more than once.
	Dispose()
}

// PlatformViewFactory creates platform views of a specific type.
type PlatformViewFactory interface {
	// Create creates a new platform view instance.
	Create(viewID int64, params map[string]any) (PlatformView, error)

	// ViewType returns the view type this factory creates.
	ViewType() string
}

// PlatformViewRegistry manages platform view types and instances. The remote
// caller drives it over its channel:
//
//	create  {viewType: string, params?: map, viewId?: int} -> viewId
//	dispose {viewId: int} -> null
type PlatformViewRegistry struct {
	factories map[string]PlatformViewFactory
	views     map[int64]PlatformView
	reserved  map[int64]struct{} // ids whose factory call is in progress
	nextID    atomic.Int64
	mu        sync.RWMutex
	channel   *MethodChannel
}

var (
	platformViewRegistryMu sync.Mutex
	platformViewRegistry   *PlatformViewRegistry
)

// GetPlatformViewRegistry returns the global registry bound to
// "drift/platform_views".
func GetPlatformViewRegistry() *PlatformViewRegistry {
	platformViewRegistryMu.Lock()
	defer platformViewRegistryMu.Unlock()
	if platformViewRegistry == nil {
		platformViewRegistry = NewPlatformViewRegistry("drift/platform_views")
	}
	return platformViewRegistry
}

// NewPlatformViewRegistry creates a registry listening on channelName.
func NewPlatformViewRegistry(channelName string) *PlatformViewRegistry {
	r := &PlatformViewRegistry{
		factories: make(map[string]PlatformViewFactory),
		views:     make(map[int64]PlatformView),
		reserved:  make(map[int64]struct{}),
		channel:   NewMethodChannel(channelName),
	}
	r.channel.SetHandler(r.handleMethodCall)
	return r
}

// RegisterFactory registers a factory for a platform view type.
func (r *PlatformViewRegistry) RegisterFactory(factory PlatformViewFactory) {
	r.mu.Lock()
	r.factories[factory.ViewType()] = factory
	r.mu.Unlock()
}

// Create creates a new platform view of the given type with a fresh id.
func (r *PlatformViewRegistry) Create(viewType string, params map[string]any) (PlatformView, error) {
	return r.create(viewType, 0, params)
}

// create uses requestedID when non-zero, otherwise mints one. The id is
// reserved before the factory runs so concurrent creates cannot both claim it.
func (r *PlatformViewRegistry) create(viewType string, requestedID int64, params map[string]any) (PlatformView, error) {
	r.mu.Lock()
	factory, ok := r.factories[viewType]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrViewTypeNotFound, viewType)
	}
	viewID, err := r.reserveLocked(requestedID)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	view, err := factory.Create(viewID, params)

	r.mu.Lock()
	delete(r.reserved, viewID)
	if err == nil {
		r.views[viewID] = view
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (r *PlatformViewRegistry) reserveLocked(requestedID int64) (int64, error) {
	viewID := requestedID
	if viewID == 0 {
		viewID = r.nextID.Add(1)
	} else {
		_, live := r.views[viewID]
		_, pending := r.reserved[viewID]
		if live || pending {
			return 0, fmt.Errorf("%w: view id %d already in use", ErrInvalidArguments, viewID)
		}
		// Keep minted ids clear of caller-chosen ones.
		if r.nextID.Load() < viewID {
			r.nextID.Store(viewID)
		}
	}
	r.reserved[viewID] = struct{}{}
	return viewID, nil
}

// Dispose destroys a platform view. Unknown ids are ignored.
func (r *PlatformViewRegistry) Dispose(viewID int64) {
	r.mu.Lock()
	view, ok := r.views[viewID]
	if ok {
		delete(r.views, viewID)
	}
	r.mu.Unlock()

	if ok {
		view.Dispose()
	}
}

// GetView returns a platform view by ID, or nil.
func (r *PlatformViewRegistry) GetView(viewID int64) PlatformView {
	r.mu.RLock()
	view := r.views[viewID]
	r.mu.RUnlock()
	return view
}

// ViewCount returns the number of live views.
func (r *PlatformViewRegistry) ViewCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// handleMethodCall processes incoming calls from the remote caller.
func (r *PlatformViewRegistry) handleMethodCall(call MethodCall, result Result) {
	switch call.Method {
	case "create":
		args, err := AsMap(call.Arguments)
		if err != nil {
			result.Error(CodeInvalidArgument, err.Error(), nil)
			return
		}
		viewType, err := AsString(args["viewType"])
		if err != nil {
			result.Error(CodeInvalidArgument, "viewType: "+err.Error(), nil)
			return
		}
		var requestedID int64
		if raw, ok := args["viewId"]; ok && raw != nil {
			if requestedID, err = AsInt64(raw); err != nil || requestedID <= 0 {
				result.Error(CodeInvalidArgument, "viewId must be a positive integer", nil)
				return
			}
		}
		var params map[string]any
		if raw, ok := args["params"]; ok && raw != nil {
			if params, err = AsMap(raw); err != nil {
				result.Error(CodeInvalidArgument, "params: "+err.Error(), nil)
				return
			}
		}
		view, err := r.create(viewType, requestedID, params)
		if err != nil {
			ErrorFrom(result, toChannelError(err))
			return
		}
		result.Success(view.ViewID())

	case "dispose":
		viewID, err := AsInt64(call.Argument("viewId"))
		if err != nil {
			result.Error(CodeInvalidArgument, "viewId: "+err.Error(), nil)
			return
		}
		r.Dispose(viewID)
		result.Success(nil)

	default:
		result.NotImplemented()
	}
}

// toChannelError maps platform sentinels to reply codes.
func toChannelError(err error) error {
	if ce, ok := err.(*ChannelError); ok {
		return ce
	}
	switch {
	case isAny(err, ErrViewTypeNotFound, ErrInvalidArguments, ErrUnknownPhase):
		return NewChannelError(CodeInvalidArgument, err.Error())
	default:
		return NewChannelError(CodeInternal, err.Error())
	}
}
