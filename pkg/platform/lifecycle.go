package platform

import (
	"fmt"
	"sync"
)

// LifecycleChannel is where the host reports lifecycle transitions.
const LifecycleChannel = "drift/lifecycle"

// HostPhase is the lifecycle phase of the host that embeds platform views.
// Phases are totally ordered by their numeric value.
type HostPhase int

const (
	PhaseCreated HostPhase = iota + 1
	PhaseStarted
	PhaseResumed
	PhasePaused
	PhaseStopped
	PhaseDestroyed
)

func (p HostPhase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseStarted:
		return "started"
	case PhaseResumed:
		return "resumed"
	case PhasePaused:
		return "paused"
	case PhaseStopped:
		return "stopped"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("HostPhase(%d)", int(p))
	}
}

// ParseHostPhase converts a phase name to a HostPhase.
func ParseHostPhase(name string) (HostPhase, error) {
	for p := PhaseCreated; p <= PhaseDestroyed; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, name)
}

// Transition is a host lifecycle notification.
type Transition string

const (
	TransitionCreated           Transition = "created"
	TransitionStarted           Transition = "started"
	TransitionResumed           Transition = "resumed"
	TransitionPaused            Transition = "paused"
	TransitionStopped           Transition = "stopped"
	TransitionSaveInstanceState Transition = "saveInstanceState"
	TransitionDestroyed         Transition = "destroyed"
)

// Phase returns the phase the host is in after t. Save-state notifications
// do not change the phase.
func (t Transition) Phase() (HostPhase, bool) {
	switch t {
	case TransitionCreated:
		return PhaseCreated, true
	case TransitionStarted:
		return PhaseStarted, true
	case TransitionResumed:
		return PhaseResumed, true
	case TransitionPaused:
		return PhasePaused, true
	case TransitionStopped:
		return PhaseStopped, true
	case TransitionDestroyed:
		return PhaseDestroyed, true
	default:
		return 0, false
	}
}

// HostContext identifies one live host context (one activity, one window).
// Several may exist at once; notifications carry the one they belong to.
type HostContext int64

// LifecycleEvent is one host notification.
type LifecycleEvent struct {
	Context    HostContext
	Transition Transition
	// State is the saved state for TransitionCreated and the outgoing bundle
	// for TransitionSaveInstanceState. Nil otherwise.
	State map[string]any
}

// LifecycleObserver receives host notifications.
type LifecycleObserver func(LifecycleEvent)

// LifecycleSource is the read-only view of the host lifecycle handed to
// components that follow it.
type LifecycleSource interface {
	// Phase returns the current phase of the primary host context.
	Phase() HostPhase
	// Context returns the primary host context.
	Context() HostContext
	// Subscribe registers an observer and returns a function that removes it.
	Subscribe(observer LifecycleObserver) (unsubscribe func())
}

// HostLifecycle tracks the phase of a primary host context and fans every
// notification out to subscribers. Notifications for other contexts are
// delivered too; subscribers filter by context.
type HostLifecycle struct {
	mu        sync.RWMutex
	context   HostContext
	phase     HostPhase
	observers map[int]LifecycleObserver
	order     []int
	nextID    int
}

// NewHostLifecycle creates a lifecycle whose primary context starts in phase.
func NewHostLifecycle(context HostContext, phase HostPhase) *HostLifecycle {
	return &HostLifecycle{
		context:   context,
		phase:     phase,
		observers: make(map[int]LifecycleObserver),
	}
}

// Phase returns the current phase of the primary context.
func (l *HostLifecycle) Phase() HostPhase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// Context returns the primary context.
func (l *HostLifecycle) Context() HostContext {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.context
}

// Subscribe registers an observer. Observers are called in subscription order.
func (l *HostLifecycle) Subscribe(observer LifecycleObserver) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.observers[id] = observer
	l.order = append(l.order, id)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.observers, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
			l.mu.Unlock()
		})
	}
}

// ObserverCount returns the number of registered observers.
func (l *HostLifecycle) ObserverCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.observers)
}

// Notify records a notification and delivers it to every observer.
// Observers run on the caller's goroutine, outside the lock.
func (l *HostLifecycle) Notify(event LifecycleEvent) {
	l.mu.Lock()
	if event.Context == l.context {
		if phase, ok := event.Transition.Phase(); ok {
			l.phase = phase
		}
	}
	observers := make([]LifecycleObserver, 0, len(l.order))
	for _, id := range l.order {
		observers = append(observers, l.observers[id])
	}
	l.mu.Unlock()

	for _, o := range observers {
		o(event)
	}
}

// HandleMethodCall lets the host feed notifications over a channel:
//
//	lifecycle#transition {context: int, transition: string, state?: map}
//
// Install it with NewMethodChannel(name).SetHandler(l.HandleMethodCall).
func (l *HostLifecycle) HandleMethodCall(call MethodCall, result Result) {
	switch call.Method {
	case "lifecycle#transition":
		args, err := AsMap(call.Arguments)
		if err != nil {
			result.Error(CodeInvalidArgument, err.Error(), nil)
			return
		}
		ctx, err := AsInt64(args["context"])
		if err != nil {
			result.Error(CodeInvalidArgument, "context: "+err.Error(), nil)
			return
		}
		name, err := AsString(args["transition"])
		if err != nil {
			result.Error(CodeInvalidArgument, "transition: "+err.Error(), nil)
			return
		}
		t := Transition(name)
		if _, ok := t.Phase(); !ok && t != TransitionSaveInstanceState {
			result.Error(CodeInvalidArgument, fmt.Sprintf("unknown transition %q", name), nil)
			return
		}
		var state map[string]any
		if raw, ok := args["state"]; ok && raw != nil {
			if state, err = AsMap(raw); err != nil {
				result.Error(CodeInvalidArgument, "state: "+err.Error(), nil)
				return
			}
		}
		l.Notify(LifecycleEvent{Context: HostContext(ctx), Transition: t, State: state})
		result.Success(nil)
	case "lifecycle#phase":
		result.Success(l.Phase().String())
	default:
		result.NotImplemented()
	}
}
