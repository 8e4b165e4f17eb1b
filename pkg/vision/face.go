// Package vision serves face detection requests over the "drift/vision"
// channel, backed by an on-device recognition engine.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/go-viper/mapstructure/v2"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// Sentinel values a Backend uses for attributes it did not compute.
const (
	UncomputedProbability = -1.0
	InvalidID             = -1
)

// Mode trades detection speed against accuracy.
type Mode string

const (
	ModeAccurate Mode = "accurate"
	ModeFast     Mode = "fast"
)

// DetectorOptions configures a face detector.
type DetectorOptions struct {
	EnableClassification bool    `mapstructure:"enableClassification"`
	EnableLandmarks      bool    `mapstructure:"enableLandmarks"`
	EnableTracking       bool    `mapstructure:"enableTracking"`
	MinFaceSize          float64 `mapstructure:"minFaceSize"`
	Mode                 Mode    `mapstructure:"mode"`
}

// DefaultMinFaceSize is the smallest face, relative to the image width, a
// detector looks for when options do not say.
const DefaultMinFaceSize = 0.1

// ParseOptions decodes detector options. mode must be "accurate" or "fast".
func ParseOptions(raw any) (DetectorOptions, error) {
	opts := DetectorOptions{MinFaceSize: DefaultMinFaceSize}
	m, err := platform.AsMap(raw)
	if err != nil {
		return opts, fmt.Errorf("options: %w", err)
	}
	if err := mapstructure.Decode(m, &opts); err != nil {
		return opts, fmt.Errorf("%w: options: %v", platform.ErrInvalidArguments, err)
	}
	switch opts.Mode {
	case ModeAccurate, ModeFast:
	default:
		return opts, fmt.Errorf("%w: Not a mode: %q", platform.ErrInvalidArguments, opts.Mode)
	}
	if opts.MinFaceSize <= 0 || opts.MinFaceSize > 1 {
		return opts, fmt.Errorf("%w: minFaceSize must be in (0, 1], got %g", platform.ErrInvalidArguments, opts.MinFaceSize)
	}
	return opts, nil
}

// Image is the input to a detection: a file path or inline encoded bytes.
type Image struct {
	Path  string
	Bytes []byte
}

// parseImage reads {type: "file", path} or {type: "bytes", bytes: base64}.
func parseImage(raw any) (Image, error) {
	m, err := platform.AsMap(raw)
	if err != nil {
		return Image{}, fmt.Errorf("image: %w", err)
	}
	kind, err := platform.AsString(m["type"])
	if err != nil {
		return Image{}, fmt.Errorf("image.type: %w", err)
	}
	switch kind {
	case "file":
		path, err := platform.AsString(m["path"])
		if err != nil || path == "" {
			return Image{}, fmt.Errorf("%w: image.path is required", platform.ErrInvalidArguments)
		}
		return Image{Path: path}, nil
	case "bytes":
		enc, err := platform.AsString(m["bytes"])
		if err != nil {
			return Image{}, fmt.Errorf("image.bytes: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return Image{}, fmt.Errorf("%w: image.bytes: %v", platform.ErrInvalidArguments, err)
		}
		return Image{Bytes: data}, nil
	default:
		return Image{}, fmt.Errorf("%w: unknown image type %q", platform.ErrInvalidArguments, kind)
	}
}

// Landmark names a facial landmark.
type Landmark string

const (
	LandmarkBottomMouth Landmark = "bottomMouth"
	LandmarkLeftCheek   Landmark = "leftCheek"
	LandmarkLeftEar     Landmark = "leftEar"
	LandmarkLeftEye     Landmark = "leftEye"
	LandmarkLeftMouth   Landmark = "leftMouth"
	LandmarkNoseBase    Landmark = "noseBase"
	LandmarkRightCheek  Landmark = "rightCheek"
	LandmarkRightEar    Landmark = "rightEar"
	LandmarkRightEye    Landmark = "rightEye"
	LandmarkRightMouth  Landmark = "rightMouth"
)

// Point is a position in image pixels.
type Point struct {
	X, Y float64
}

// Face is one detection as reported by a Backend. Probabilities are
// UncomputedProbability and TrackingID is InvalidID when not available.
// Landmarks holds only the landmarks that were located.
type Face struct {
	Bounds                  image.Rectangle
	HeadEulerAngleY         float64
	HeadEulerAngleZ         float64
	SmilingProbability      float64
	LeftEyeOpenProbability  float64
	RightEyeOpenProbability float64
	TrackingID              int
	Landmarks               map[Landmark]Point
}

// toJSON renders a face in the reply shape, leaving out attributes the
// backend did not compute.
func (f Face) toJSON() map[string]any {
	out := map[string]any{
		"left":            float64(f.Bounds.Min.X),
		"top":             float64(f.Bounds.Min.Y),
		"width":           float64(f.Bounds.Dx()),
		"height":          float64(f.Bounds.Dy()),
		"headEulerAngleY": f.HeadEulerAngleY,
		"headEulerAngleZ": f.HeadEulerAngleZ,
	}
	for key, p := range map[string]float64{
		"smilingProbability":      f.SmilingProbability,
		"leftEyeOpenProbability":  f.LeftEyeOpenProbability,
		"rightEyeOpenProbability": f.RightEyeOpenProbability,
	} {
		if p != UncomputedProbability {
			out[key] = p
		}
	}
	if f.TrackingID != InvalidID {
		out["trackingId"] = f.TrackingID
	}
	landmarks := make(map[string]any, len(f.Landmarks))
	for name, p := range f.Landmarks {
		landmarks[string(name)] = []float64{p.X, p.Y}
	}
	out["landmarks"] = landmarks
	return out
}

// FaceDetector is a configured backend detector.
type FaceDetector interface {
	Detect(ctx context.Context, img Image) ([]Face, error)
	Close() error
}

// Backend creates detectors.
type Backend interface {
	NewFaceDetector(opts DetectorOptions) (FaceDetector, error)
}
