package maps

import (
	"fmt"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// ViewProvider creates the native view for a new map.
type ViewProvider func(viewID int64, initial InitialState) (EmbeddedView, error)

// Factory creates map controllers for the platform view registry.
type Factory struct {
	Lifecycle platform.LifecycleSource
	NewView   ViewProvider
	Options   []Option
}

// ViewType returns ViewType.
func (f *Factory) ViewType() string {
	return ViewType
}

// Create decodes the creation params, builds the view and attaches it to the
// host lifecycle.
func (f *Factory) Create(viewID int64, params map[string]any) (platform.PlatformView, error) {
	if f.Lifecycle == nil || f.NewView == nil {
		return nil, fmt.Errorf("maps: factory needs a lifecycle and a view provider")
	}
	initial, err := decodeCreationParams(params)
	if err != nil {
		return nil, err
	}
	view, err := f.NewView(viewID, initial)
	if err != nil {
		return nil, fmt.Errorf("create map view %d: %w", viewID, err)
	}
	c := New(viewID, view, f.Lifecycle, initial, f.Options...)
	if err := c.Init(nil); err != nil {
		c.Dispose()
		return nil, fmt.Errorf("attach map view %d: %w", viewID, err)
	}
	return c, nil
}
