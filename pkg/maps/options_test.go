package maps

import (
	"errors"
	"testing"

	"github.com/go-drift/mapbridge/pkg/platform"
)

func TestDecodeMapOptions(t *testing.T) {
	opts, err := decodeArgs[MapOptions](map[string]any{
		"cameraTargetBounds":   []any{[]any{[]any{1.0, 2.0}, []any{3.0, 4.0}}},
		"compassEnabled":       true,
		"mapType":              3.0,
		"minMaxZoomPreference": []any{nil, 15.0},
		"trackCameraPosition":  false,
		"unknownKey":           "ignored",
	}, "options")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opts.CameraTargetBounds == nil || opts.CameraTargetBounds.Bounds == nil ||
		opts.CameraTargetBounds.Bounds.Northeast != (LatLng{3, 4}) {
		t.Errorf("cameraTargetBounds = %+v", opts.CameraTargetBounds)
	}
	if opts.CompassEnabled == nil || !*opts.CompassEnabled {
		t.Errorf("compassEnabled = %v", opts.CompassEnabled)
	}
	if opts.MapType == nil || *opts.MapType != 3 {
		t.Errorf("mapType = %v", opts.MapType)
	}
	if p := opts.MinMaxZoomPreference; p == nil || p.Min != nil || p.Max == nil || *p.Max != 15 {
		t.Errorf("minMaxZoomPreference = %+v", p)
	}
	if opts.TrackCameraPosition == nil || *opts.TrackCameraPosition {
		t.Errorf("trackCameraPosition = %v", opts.TrackCameraPosition)
	}
	if opts.ZoomGesturesEnabled != nil {
		t.Error("absent field decoded as set")
	}
}

func TestDecodeRejectsFractionalIntegers(t *testing.T) {
	if _, err := decodeArgs[MapOptions](map[string]any{"mapType": 1.5}, "options"); !errors.Is(err, platform.ErrInvalidArguments) {
		t.Errorf("mapType 1.5 err = %v, want ErrInvalidArguments", err)
	}
	if _, err := decodeArgs[PolygonOptions](map[string]any{"zIndex": 2.7}, "options"); !errors.Is(err, platform.ErrInvalidArguments) {
		t.Errorf("zIndex 2.7 err = %v, want ErrInvalidArguments", err)
	}
	opts, err := decodeArgs[PolygonOptions](map[string]any{"zIndex": 2.0, "fillColor": 4294901760.0}, "options")
	if err != nil {
		t.Fatalf("integral values: %v", err)
	}
	if opts.ZIndex == nil || *opts.ZIndex != 2 || opts.FillColor == nil || *opts.FillColor != 0xFFFF0000 {
		t.Errorf("decoded = zIndex %v fillColor %v", opts.ZIndex, opts.FillColor)
	}
}

func TestDecodeTargetBoundsUnbounded(t *testing.T) {
	opts, err := decodeArgs[MapOptions](map[string]any{"cameraTargetBounds": []any{nil}}, "options")
	if err != nil {
		t.Fatal(err)
	}
	if opts.CameraTargetBounds == nil || opts.CameraTargetBounds.Bounds != nil {
		t.Errorf("cameraTargetBounds = %+v, want unbounded", opts.CameraTargetBounds)
	}
}

func TestDecodeMarkerOptions(t *testing.T) {
	opts, err := decodeArgs[MarkerOptions](map[string]any{
		"alpha":      0.5,
		"anchor":     []any{0.5, 1.0},
		"draggable":  true,
		"icon":       []any{"defaultMarker", 120.0},
		"infoWindow": map[string]any{"title": "Here", "anchor": []any{0.5, 0.0}},
		"position":   map[string]any{"latitude": 1.0, "longitude": 2.0},
		"zIndex":     2.0,
	}, "options")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opts.Alpha == nil || *opts.Alpha != 0.5 {
		t.Errorf("alpha = %v", opts.Alpha)
	}
	if opts.Anchor == nil || *opts.Anchor != (Offset{U: 0.5, V: 1}) {
		t.Errorf("anchor = %v", opts.Anchor)
	}
	if len(opts.Icon) != 2 || opts.Icon[0] != "defaultMarker" {
		t.Errorf("icon = %v", opts.Icon)
	}
	if w := opts.InfoWindow; w == nil || w.Title == nil || *w.Title != "Here" || w.Snippet != nil {
		t.Errorf("infoWindow = %+v", w)
	}
	if opts.Position == nil || *opts.Position != (LatLng{1, 2}) {
		t.Errorf("position = %v", opts.Position)
	}
}

func TestDecodePolygonOptions(t *testing.T) {
	opts, err := decodeArgs[PolygonOptions](map[string]any{
		"fillColor":   4278190335.0,
		"points":      []any{[]any{0.0, 0.0}, map[string]any{"lat": 1.0, "lng": 1.0}},
		"pattern":     []any{[]any{"dash", 10.0}, []any{"gap", 5.0}, []any{"dot"}},
		"strokeWidth": 2.0,
		"zIndex":      1.0,
	}, "options")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opts.FillColor == nil || *opts.FillColor != 4278190335 {
		t.Errorf("fillColor = %v", opts.FillColor)
	}
	if len(opts.Points) != 2 || opts.Points[1] != (LatLng{1, 1}) {
		t.Errorf("points = %v", opts.Points)
	}
	want := []PatternItem{{"dash", 10}, {"gap", 5}, {"dot", 0}}
	if len(opts.Pattern) != len(want) {
		t.Fatalf("pattern = %v", opts.Pattern)
	}
	for i := range want {
		if opts.Pattern[i] != want[i] {
			t.Errorf("pattern[%d] = %v, want %v", i, opts.Pattern[i], want[i])
		}
	}
	if opts.ZIndex == nil || *opts.ZIndex != 1 {
		t.Errorf("zIndex = %v", opts.ZIndex)
	}
}

func TestDecodeOptionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"not a map", []any{1.0}},
		{"nil", nil},
		{"bad bool", map[string]any{"visible": "yes"}},
		{"bad pattern", map[string]any{"pattern": []any{[]any{"wave"}}}},
		{"dash without length", map[string]any{"pattern": []any{[]any{"dash"}}}},
		{"short point", map[string]any{"points": []any{[]any{1.0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeArgs[PolygonOptions](tt.raw, "options"); !errors.Is(err, platform.ErrInvalidArguments) {
				t.Errorf("error = %v, want ErrInvalidArguments", err)
			}
		})
	}
}

func TestMapOptionsMerge(t *testing.T) {
	yes, no := true, false
	two := 2
	base := MapOptions{CompassEnabled: &yes, MapType: &two}
	merged := base.merge(MapOptions{CompassEnabled: &no, TiltGesturesEnabled: &yes})

	if *merged.CompassEnabled || *merged.MapType != 2 || !*merged.TiltGesturesEnabled {
		t.Errorf("merged = %+v", merged)
	}
	if !*base.CompassEnabled {
		t.Error("merge modified the receiver")
	}
	if (MapOptions{TrackCameraPosition: &yes}).hasNativeFields() {
		t.Error("tracking flag counted as a native field")
	}
	if !merged.hasNativeFields() {
		t.Error("merged options report no native fields")
	}
}

func TestDecodeCreationParams(t *testing.T) {
	st, err := decodeCreationParams(nil)
	if err != nil || st.Camera != nil {
		t.Errorf("empty params = %+v, %v", st, err)
	}
	if _, err := decodeCreationParams(map[string]any{"options": "bad"}); !errors.Is(err, platform.ErrInvalidArguments) {
		t.Errorf("bad options error = %v", err)
	}
}
