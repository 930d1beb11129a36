// SPDX-License-Identifier: Unlicense OR MIT

package texture

import (
	"bytes"
	"path/filepath"
	"testing"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	images := []*pack.Image{
		{Key: []byte("a"), Width: 8, Height: 8, X: 0, Y: 0, Anchor: pack.AnchorExplicit, AnchorX: 3.5, AnchorY: 4},
		{Key: []byte("b"), Width: 16, Height: 8, X: 8, Y: 0, Anchor: pack.AnchorCenter, AnchorX: 8, AnchorY: 4, Rotated: true},
	}
	pixels := []byte("not really a png but opaque to this package")

	path := filepath.Join(t.TempDir(), "bundle.bundle")
	b, err := bundle.OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := b.AddStream([]byte("atlas"), 256, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := Encode(stream, images, 32, 16, false, true, pixels); err != nil {
		t.Fatal(err)
	}
	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := bundle.OpenReadOnly(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	e := b2.FindString("atlas")
	if e == nil {
		t.Fatal("atlas entry not found")
	}
	payload, err := b2.ReadAll(e)
	if err != nil {
		t.Fatal(err)
	}

	tex, err := Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if tex.MaxWidth != 32 || tex.MaxHeight != 16 {
		t.Fatalf("unexpected canvas size %dx%d", tex.MaxWidth, tex.MaxHeight)
	}
	if len(tex.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(tex.Images))
	}
	if !bytes.Equal(tex.PixelData, pixels) {
		t.Fatal("pixel payload did not round-trip")
	}
	const eps = 1.0 / 16384
	if got := tex.Images[0]; string(got.Key) != "a" || abs32(got.AnchorX-3.5) > eps || abs32(got.AnchorY-4) > eps {
		t.Fatalf("image 0 anchor mismatch: %+v", got)
	}
	if got := tex.Images[1]; !got.Rotated || got.Width != 16 || got.Height != 8 {
		t.Fatalf("image 1 mismatch: %+v", got)
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
