package maps

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/go-drift/mapbridge/pkg/errors"
)

var snapshotEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// takeSnapshot asks the map to render itself. The command is acknowledged
// at once; the outcome arrives as map#onSnapshotReady, whose filePath is
// empty when the image could not be produced or written.
func (c *Controller) takeSnapshot(args map[string]any) error {
	path, err := stringArg(args, "filePath")
	if err != nil {
		return err
	}
	m, err := c.requireMap()
	if err != nil {
		return err
	}
	m.Snapshot(func(img image.Image) {
		c.worker.Go("maps.snapshot", func() {
			written := c.writeSnapshot(path, img)
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.disposed {
				c.logger.Debug("dropping snapshot result after dispose", slog.String("path", path))
				return
			}
			c.emitLocked("map#onSnapshotReady", map[string]any{"filePath": written})
		})
	})
	return nil
}

// writeSnapshot encodes img as PNG at path and returns path, or "" on failure.
func (c *Controller) writeSnapshot(path string, img image.Image) string {
	if img == nil {
		c.reportSnapshot(path, fmt.Errorf("map produced no image"))
		return ""
	}
	img = downscale(img, c.snapshotMaxDim)

	f, err := c.fs.Create(filepath.Clean(path))
	if err != nil {
		c.reportSnapshot(path, err)
		return ""
	}
	if err := snapshotEncoder.Encode(f, img); err != nil {
		f.Close()
		c.reportSnapshot(path, err)
		return ""
	}
	if err := f.Close(); err != nil {
		c.reportSnapshot(path, err)
		return ""
	}
	return path
}

func (c *Controller) reportSnapshot(path string, err error) {
	errors.Report(&errors.BridgeError{
		Op:      "maps.snapshot",
		Kind:    errors.KindIO,
		Channel: c.channel.Name(),
		Err:     fmt.Errorf("write %s: %w", path, err),
	})
}

// downscale shrinks img so its longer side is at most limit pixels.
func downscale(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}
	if w >= h {
		h = h * limit / w
		w = limit
	} else {
		w = w * limit / h
		h = limit
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
