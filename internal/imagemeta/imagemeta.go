// Package imagemeta probes intrinsic pixel dimensions of image files and
// generates low-resolution previews. Both operate on in-memory bytes;
// decoding happens off any rendering path.
package imagemeta

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/rwcarlsen/goexif/exif"
	xdraw "golang.org/x/image/draw"

	"github.com/dmitrijs2005/mediavault/internal/asset"
)

// Probe decodes only the image header and returns its dimensions.
// Unsupported or corrupt formats return an error; callers treat that as
// "dimensions unknown", not as an upload failure.
func Probe(data []byte) (*asset.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	return asset.NewDimensions(cfg.Width, cfg.Height), nil
}

// DefaultPreviewEdge is the longest edge of a generated preview.
const DefaultPreviewEdge = 200

// Preview decodes the image, applies its EXIF orientation, downscales
// it so its longest edge is at most maxEdge pixels, and writes it as
// PNG to a temp file. The caller owns the returned path and removes it
// when the preview is no longer displayed.
func Preview(data []byte, maxEdge int) (string, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultPreviewEdge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	src = applyOrientation(src, orientation(data))
	small := downscale(src, maxEdge)

	f, err := os.CreateTemp("", "mediavault-preview-*.png")
	if err != nil {
		return "", fmt.Errorf("create preview file: %w", err)
	}

	if err := png.Encode(f, small); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("encode preview: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close preview file: %w", err)
	}

	return f.Name(), nil
}

// orientation returns the EXIF Orientation tag value, or 1 when the
// image carries no parseable EXIF data. Most formats have none, so
// every failure here means "leave the pixels as decoded".
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation maps the decoded pixels into display orientation
// per the EXIF Orientation values 2-8. Value 1 (and anything out of
// range) returns src unchanged.
func applyOrientation(src image.Image, o int) image.Image {
	if o <= 1 || o > 8 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	// Orientations 5-8 transpose the axes.
	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch o {
			case 2: // mirror horizontal
				dx, dy = w-1-x, y
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // mirror vertical
				dx, dy = x, h-1-y
			case 5: // transpose
				dx, dy = y, x
			case 6: // rotate 90 clockwise
				dx, dy = h-1-y, x
			case 7: // transverse
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 270 clockwise
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// downscale resamples src so its longest edge is at most maxEdge.
// Images already small enough are returned unchanged.
func downscale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	scale := float64(maxEdge) / float64(w)
	if h > w {
		scale = float64(maxEdge) / float64(h)
	}

	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
