// SPDX-License-Identifier: Unlicense OR MIT

// Package raster adapts on-disk image files to the in-memory image.Image
// form the packer and texture codec operate on, and composes packed
// images onto an atlas canvas.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
)

// Load decodes the image file at path, dispatching on its registered
// format (PNG, JPEG, GIF, BMP, TIFF, WebP).
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, bundle.ErrFileAccess)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, bundle.ErrImageFormat)
	}
	return img, nil
}

// DecodeConfig reads just the dimensions of the image file at path,
// without decoding its pixels, for use when only width/height are
// needed (e.g. to derive a named anchor's coordinates before deciding
// whether a texture needs to be rebuilt at all).
func DecodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("open %s: %w", path, bundle.ErrFileAccess)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode %s: %w", path, bundle.ErrImageFormat)
	}
	return cfg, nil
}

func init() {
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	image.RegisterFormat("tiff", "II*\x00", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("tiff", "MM\x00*", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("webp", "RIFF", webp.Decode, webp.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG\r\n\x1a\n", png.Decode, png.DecodeConfig)
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("gif", "GIF8", gif.Decode, gif.DecodeConfig)
}

// Compose draws each packed image onto a new RGBA canvas of the given
// size, honoring each image's placement and rotation, then encodes the
// canvas as PNG.
func Compose(width, height int, images []*pack.Image, sources map[string]image.Image) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, img := range images {
		src, ok := sources[string(img.Key)]
		if !ok {
			return nil, fmt.Errorf("compose: missing source for key %q", img.Key)
		}
		bounds := src.Bounds()
		if img.Rotated {
			drawRotated(canvas, img.X, img.Y, src)
		} else {
			dstRect := image.Rect(img.X, img.Y, img.X+bounds.Dx(), img.Y+bounds.Dy())
			draw.Draw(canvas, dstRect, src, bounds.Min, draw.Src)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode atlas: %w", err)
	}
	return buf.Bytes(), nil
}

// drawRotated copies src into dst at (x, y) rotated 90° clockwise,
// matching the placement pack.Packer assigns when it rotates an image
// to improve the fit.
func drawRotated(dst *image.RGBA, x, y int, src image.Image) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	for sx := 0; sx < w; sx++ {
		for sy := 0; sy < h; sy++ {
			c := src.At(b.Min.X+sx, b.Min.Y+sy)
			// rotating 90° clockwise: source column sx becomes destination
			// row sx, counted from the right edge of the placed rectangle.
			dst.Set(x+(h-1-sy), y+sx, c)
		}
	}
}

// Encode writes img as a PNG, the format this package always emits for a
// composed atlas.
func Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
