package maps

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// MapOptions is a partial update of map settings. Nil fields are unchanged.
type MapOptions struct {
	CameraTargetBounds      *TargetBounds   `mapstructure:"cameraTargetBounds"`
	CompassEnabled          *bool           `mapstructure:"compassEnabled"`
	MapToolbarEnabled       *bool           `mapstructure:"mapToolbarEnabled"`
	MapType                 *int            `mapstructure:"mapType"`
	MinMaxZoomPreference    *ZoomPreference `mapstructure:"minMaxZoomPreference"`
	RotateGesturesEnabled   *bool           `mapstructure:"rotateGesturesEnabled"`
	ScrollGesturesEnabled   *bool           `mapstructure:"scrollGesturesEnabled"`
	TiltGesturesEnabled     *bool           `mapstructure:"tiltGesturesEnabled"`
	TrackCameraPosition     *bool           `mapstructure:"trackCameraPosition"`
	ZoomGesturesEnabled     *bool           `mapstructure:"zoomGesturesEnabled"`
	MyLocationEnabled       *bool           `mapstructure:"myLocationEnabled"`
	MyLocationButtonEnabled *bool           `mapstructure:"myLocationButtonEnabled"`
}

// TargetBounds restricts the camera target. A nil Bounds removes the
// restriction. Wire form: [bounds] or [null].
type TargetBounds struct {
	Bounds *LatLngBounds
}

// ZoomPreference bounds the zoom level. Wire form: [min|null, max|null].
type ZoomPreference struct {
	Min *float64
	Max *float64
}

// hasNativeFields reports whether opts carries anything for the native map.
func (o MapOptions) hasNativeFields() bool {
	return o.CameraTargetBounds != nil || o.CompassEnabled != nil || o.MapToolbarEnabled != nil ||
		o.MapType != nil || o.MinMaxZoomPreference != nil || o.RotateGesturesEnabled != nil ||
		o.ScrollGesturesEnabled != nil || o.TiltGesturesEnabled != nil ||
		o.ZoomGesturesEnabled != nil || o.MyLocationButtonEnabled != nil
}

// merge overlays the non-nil fields of next onto o.
func (o MapOptions) merge(next MapOptions) MapOptions {
	dst := reflect.ValueOf(&o).Elem()
	src := reflect.ValueOf(next)
	for i := 0; i < src.NumField(); i++ {
		if f := src.Field(i); !f.IsNil() {
			dst.Field(i).Set(f)
		}
	}
	return o
}

// MarkerOptions is a partial marker description.
type MarkerOptions struct {
	Alpha            *float64    `mapstructure:"alpha"`
	Anchor           *Offset     `mapstructure:"anchor"`
	ConsumeTapEvents *bool       `mapstructure:"consumeTapEvents"`
	Draggable        *bool       `mapstructure:"draggable"`
	Flat             *bool       `mapstructure:"flat"`
	Icon             []any       `mapstructure:"icon"`
	InfoWindow       *InfoWindow `mapstructure:"infoWindow"`
	Position         *LatLng     `mapstructure:"position"`
	Rotation         *float64    `mapstructure:"rotation"`
	Visible          *bool       `mapstructure:"visible"`
	ZIndex           *float64    `mapstructure:"zIndex"`
}

// InfoWindow is the text bubble shown above a marker.
type InfoWindow struct {
	Title   *string `mapstructure:"title"`
	Snippet *string `mapstructure:"snippet"`
	Anchor  *Offset `mapstructure:"anchor"`
}

// PolygonOptions is a partial polygon description.
type PolygonOptions struct {
	Clickable        *bool         `mapstructure:"clickable"`
	ConsumeTapEvents *bool         `mapstructure:"consumeTapEvents"`
	FillColor        *int64        `mapstructure:"fillColor"`
	Geodesic         *bool         `mapstructure:"geodesic"`
	Pattern          []PatternItem `mapstructure:"pattern"`
	Points           []LatLng      `mapstructure:"points"`
	StrokeColor      *int64        `mapstructure:"strokeColor"`
	StrokeWidth      *float64      `mapstructure:"strokeWidth"`
	Visible          *bool         `mapstructure:"visible"`
	ZIndex           *int          `mapstructure:"zIndex"`
}

// PatternItem is one stroke pattern element: ["dash", len], ["gap", len] or ["dot"].
type PatternItem struct {
	Kind   string
	Length float64
}

var (
	latLngType         = reflect.TypeOf(LatLng{})
	latLngBoundsType   = reflect.TypeOf(LatLngBounds{})
	offsetType         = reflect.TypeOf(Offset{})
	targetBoundsType   = reflect.TypeOf(TargetBounds{})
	zoomPreferenceType = reflect.TypeOf(ZoomPreference{})
	patternItemType    = reflect.TypeOf(PatternItem{})
)

// wireDecodeHook converts the list-shaped wire forms into their Go types.
func wireDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case latLngType:
		return parseLatLng(data)
	case latLngBoundsType:
		return parseLatLngBounds(data)
	case offsetType:
		u, v, err := parsePair(data)
		return Offset{U: u, V: v}, err
	case targetBoundsType:
		list, err := platform.AsList(data)
		if err != nil || len(list) != 1 {
			return nil, fmt.Errorf("%w: cameraTargetBounds must be [bounds] or [null]", platform.ErrInvalidArguments)
		}
		if list[0] == nil {
			return TargetBounds{}, nil
		}
		b, err := parseLatLngBounds(list[0])
		if err != nil {
			return nil, err
		}
		return TargetBounds{Bounds: &b}, nil
	case zoomPreferenceType:
		list, err := platform.AsList(data)
		if err != nil || len(list) != 2 {
			return nil, fmt.Errorf("%w: minMaxZoomPreference must be [min, max]", platform.ErrInvalidArguments)
		}
		var pref ZoomPreference
		for i, dst := range []**float64{&pref.Min, &pref.Max} {
			if list[i] == nil {
				continue
			}
			f, err := platform.AsFloat64(list[i])
			if err != nil {
				return nil, err
			}
			*dst = &f
		}
		return pref, nil
	case patternItemType:
		return parsePatternItem(data)
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if _, isFloat := data.(float64); isFloat {
			return platform.AsInt64(data)
		}
	}
	return data, nil
}

func parsePatternItem(data any) (PatternItem, error) {
	list, err := platform.AsList(data)
	if err != nil || len(list) == 0 {
		return PatternItem{}, fmt.Errorf("%w: pattern item must be a non-empty list", platform.ErrInvalidArguments)
	}
	kind, err := platform.AsString(list[0])
	if err != nil {
		return PatternItem{}, err
	}
	switch kind {
	case "dot":
		return PatternItem{Kind: kind}, nil
	case "dash", "gap":
		if len(list) != 2 {
			return PatternItem{}, fmt.Errorf("%w: %s needs a length", platform.ErrInvalidArguments, kind)
		}
		length, err := platform.AsFloat64(list[1])
		if err != nil {
			return PatternItem{}, err
		}
		return PatternItem{Kind: kind, Length: length}, nil
	default:
		return PatternItem{}, fmt.Errorf("%w: unknown pattern item %q", platform.ErrInvalidArguments, kind)
	}
}

// decodeArgs decodes a loosely typed argument map into T. Missing keys stay
// zero; a present key of the wrong shape fails with ErrInvalidArguments.
func decodeArgs[T any](raw any, what string) (T, error) {
	var out T
	m, err := platform.AsMap(raw)
	if err != nil {
		return out, fmt.Errorf("%s: %w", what, err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: wireDecodeHook,
		Result:     &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(m); err != nil {
		return out, fmt.Errorf("%w: %s: %v", platform.ErrInvalidArguments, what, err)
	}
	return out, nil
}

// InitialState is what a map view is created with.
type InitialState struct {
	Camera  *CameraPosition
	Options MapOptions
}

// decodeCreationParams reads {initialCameraPosition?, options?}.
func decodeCreationParams(params map[string]any) (InitialState, error) {
	var st InitialState
	if raw, ok := params["initialCameraPosition"]; ok && raw != nil {
		pos, err := decodeArgs[CameraPosition](raw, "initialCameraPosition")
		if err != nil {
			return st, err
		}
		st.Camera = &pos
	}
	if raw, ok := params["options"]; ok && raw != nil {
		opts, err := decodeArgs[MapOptions](raw, "options")
		if err != nil {
			return st, err
		}
		st.Options = opts
	}
	return st, nil
}
