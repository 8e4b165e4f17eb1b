package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png" // register the decoder used for image dimensions

	"github.com/spf13/afero"
)

// FixtureBackend reads detections from a JSON sidecar next to each image:
// photo.png is described by photo.png.faces.json, a list of faces in the
// reply shape. Detector options are honored the way an engine would:
// attributes that were not requested are reported as not computed, and
// faces narrower than MinFaceSize of the image width are dropped.
type FixtureBackend struct {
	Fs afero.Fs
}

// NewFaceDetector implements Backend.
func (b FixtureBackend) NewFaceDetector(opts DetectorOptions) (FaceDetector, error) {
	fs := b.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &fixtureDetector{fs: fs, opts: opts}, nil
}

type fixtureDetector struct {
	fs   afero.Fs
	opts DetectorOptions
}

type fixtureFace struct {
	Left                    float64               `json:"left"`
	Top                     float64               `json:"top"`
	Width                   float64               `json:"width"`
	Height                  float64               `json:"height"`
	HeadEulerAngleY         float64               `json:"headEulerAngleY"`
	HeadEulerAngleZ         float64               `json:"headEulerAngleZ"`
	SmilingProbability      *float64              `json:"smilingProbability"`
	LeftEyeOpenProbability  *float64              `json:"leftEyeOpenProbability"`
	RightEyeOpenProbability *float64              `json:"rightEyeOpenProbability"`
	TrackingID              *int                  `json:"trackingId"`
	Landmarks               map[string][2]float64 `json:"landmarks"`
}

func (d *fixtureDetector) Detect(ctx context.Context, img Image) ([]Face, error) {
	if img.Path == "" {
		return nil, fmt.Errorf("fixture backend needs a file image")
	}
	width, err := d.imageWidth(img.Path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(d.fs, img.Path+".faces.json")
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fixtures []fixtureFace
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", img.Path, err)
	}

	faces := make([]Face, 0, len(fixtures))
	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Width < d.opts.MinFaceSize*float64(width) {
			continue
		}
		faces = append(faces, d.face(f))
	}
	return faces, nil
}

func (d *fixtureDetector) face(f fixtureFace) Face {
	face := Face{
		Bounds:                  image.Rect(int(f.Left), int(f.Top), int(f.Left+f.Width), int(f.Top+f.Height)),
		HeadEulerAngleY:         f.HeadEulerAngleY,
		HeadEulerAngleZ:         f.HeadEulerAngleZ,
		SmilingProbability:      UncomputedProbability,
		LeftEyeOpenProbability:  UncomputedProbability,
		RightEyeOpenProbability: UncomputedProbability,
		TrackingID:              InvalidID,
	}
	if d.opts.EnableClassification {
		face.SmilingProbability = valueOr(f.SmilingProbability, UncomputedProbability)
		face.LeftEyeOpenProbability = valueOr(f.LeftEyeOpenProbability, UncomputedProbability)
		face.RightEyeOpenProbability = valueOr(f.RightEyeOpenProbability, UncomputedProbability)
	}
	if d.opts.EnableTracking {
		face.TrackingID = valueOr(f.TrackingID, InvalidID)
	}
	if d.opts.EnableLandmarks && len(f.Landmarks) > 0 {
		face.Landmarks = make(map[Landmark]Point, len(f.Landmarks))
		for name, p := range f.Landmarks {
			face.Landmarks[Landmark(name)] = Point{X: p[0], Y: p[1]}
		}
	}
	return face
}

func (d *fixtureDetector) imageWidth(path string) (int, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("decode image %s: %w", path, err)
	}
	return cfg.Width, nil
}

func (d *fixtureDetector) Close() error { return nil }

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
