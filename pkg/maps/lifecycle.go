package maps

import (
	"fmt"
	"log/slog"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// replaySequence returns the transitions that bring a new view to phase, in
// the order they must be applied.
func replaySequence(phase platform.HostPhase) ([]platform.Transition, error) {
	steps := []platform.Transition{
		platform.TransitionCreated,
		platform.TransitionStarted,
		platform.TransitionResumed,
		platform.TransitionPaused,
		platform.TransitionStopped,
	}
	switch phase {
	case platform.PhaseCreated, platform.PhaseStarted, platform.PhaseResumed,
		platform.PhasePaused, platform.PhaseStopped:
		return steps[:int(phase)], nil
	case platform.PhaseDestroyed:
		return nil, platform.ErrHostDestroyed
	default:
		return nil, fmt.Errorf("%w: %v", platform.ErrUnknownPhase, phase)
	}
}

// Init brings the view to the host's current phase, starts following host
// notifications and requests the native map. savedState is handed to the
// view's OnCreate. Init fails, leaving the view untouched, when the host is
// already destroyed.
func (c *Controller) Init(savedState map[string]any) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.attached {
		c.mu.Unlock()
		return fmt.Errorf("maps: view %d already attached", c.id)
	}
	phase := c.lifecycle.Phase()
	steps, err := replaySequence(phase)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.hostContext = c.lifecycle.Context()
	c.attached = true
	for _, t := range steps {
		c.applyTransitionLocked(t, savedState)
	}
	c.unsubscribe = c.lifecycle.Subscribe(c.onHostLifecycle)
	c.logger.Debug("view attached",
		slog.String("phase", phase.String()),
		slog.Int("replayed", len(steps)))
	c.mu.Unlock()

	// The map may be delivered synchronously; onMapReady takes the lock.
	c.view.GetMapAsync(c.onMapReady)
	return nil
}

// onHostLifecycle follows one host notification. Notifications for other
// host contexts, or arriving after dispose, are ignored.
func (c *Controller) onHostLifecycle(ev platform.LifecycleEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || ev.Context != c.hostContext {
		return
	}
	if ev.Transition == platform.TransitionDestroyed {
		c.destroyLocked("host destroyed")
		return
	}
	c.applyTransitionLocked(ev.Transition, ev.State)
}

func (c *Controller) applyTransitionLocked(t platform.Transition, state map[string]any) {
	switch t {
	case platform.TransitionCreated:
		c.view.OnCreate(state)
	case platform.TransitionStarted:
		c.view.OnStart()
	case platform.TransitionResumed:
		c.view.OnResume()
	case platform.TransitionPaused:
		c.view.OnPause()
	case platform.TransitionStopped:
		c.view.OnStop()
	case platform.TransitionSaveInstanceState:
		if state == nil {
			state = map[string]any{}
		}
		c.view.OnSaveInstanceState(state)
	default:
		c.logger.Warn("ignoring host transition", slog.String("transition", string(t)))
	}
}
