// SPDX-License-Identifier: Unlicense OR MIT

// Package texture implements the texture atlas entry sub-format: a
// bundle entry whose payload is a small directory of packed image
// records followed by an opaque encoded-image payload (the composed
// atlas, typically PNG).
package texture

import (
	"encoding/binary"
	"image"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
)

const (
	headerLen      = 38 // uuid(16) + pixelDataOffset(4) + imageCount(4) + firstImageOffset(4) + maxWidth(4) + maxHeight(4) + pow2(1) + allowRotate(1)
	imageRecordLen = 37 // recordSize(4) + anchor(4) + anchorX(4) + anchorY(4) + x(4) + y(4) + width(4) + height(4) + rotated(1) + keySize(4)
)

// uuid identifies a bundle entry as a texture atlas, distinguishing it
// from an opaque file entry when scanning a bundle's directory.
var uuid = [16]byte{
	0x0e, 0xb1, 0x4c, 0x84, 0x47, 0x4c, 0xb3, 0xad,
	0xa6, 0xbd, 0x93, 0xe4, 0xbe, 0xa5, 0x46, 0xba,
}

// Image is one packed sub-image's metadata, as recorded in a texture
// entry's directory.
type Image struct {
	Key     []byte
	Anchor  pack.Anchor
	AnchorX float32
	AnchorY float32
	X, Y    int
	Width   int
	Height  int
	Rotated bool
}

// Texture is the decoded form of a texture bundle entry: placement
// metadata for every packed image, plus the raw encoded pixel payload
// (not yet image-decoded).
type Texture struct {
	MaxWidth, MaxHeight int
	PowerOfTwo          bool
	AllowRotate         bool

	Images []Image

	// PixelData is the encoded image bytes (e.g. PNG) for the composed
	// atlas.
	PixelData []byte
}

// IsUUID reports whether the first 16 bytes of an entry's payload match
// the texture sub-format marker.
func IsUUID(b []byte) bool {
	if len(b) < 16 {
		return false
	}
	for i := range uuid {
		if b[i] != uuid[i] {
			return false
		}
	}
	return true
}

// Encode serializes a packed set of images plus an already-composed
// atlas image into the on-disk texture record layout and writes it to
// entry via stream.
func Encode(stream *bundle.OutStream, images []*pack.Image, maxWidth, maxHeight int, pow2, allowRotate bool, encoded []byte) error {
	var recordsLen int
	for _, img := range images {
		recordsLen += imageRecordLen + len(img.Key)
	}
	pixelDataOffset := headerLen + recordsLen

	buf := make([]byte, headerLen)
	copy(buf[0:16], uuid[:])
	putUint32(buf[16:20], uint32(pixelDataOffset))
	putUint32(buf[20:24], uint32(len(images)))
	putUint32(buf[24:28], uint32(headerLen))
	putUint32(buf[28:32], uint32(maxWidth))
	putUint32(buf[32:36], uint32(maxHeight))
	buf[36] = boolByte(pow2)
	buf[37] = boolByte(allowRotate)
	if _, err := stream.Write(buf); err != nil {
		return err
	}

	rec := make([]byte, imageRecordLen)
	for _, img := range images {
		putUint32(rec[0:4], uint32(imageRecordLen+len(img.Key)))
		putUint32(rec[4:8], uint32(img.Anchor))
		putFixed32(rec[8:12], img.AnchorX)
		putFixed32(rec[12:16], img.AnchorY)
		putUint32(rec[16:20], uint32(img.X))
		putUint32(rec[20:24], uint32(img.Y))
		putUint32(rec[24:28], uint32(img.Width))
		putUint32(rec[28:32], uint32(img.Height))
		rec[32] = boolByte(img.Rotated)
		putUint32(rec[33:37], uint32(len(img.Key)))
		if _, err := stream.Write(rec); err != nil {
			return err
		}
		if _, err := stream.Write(img.Key); err != nil {
			return err
		}
	}

	_, err := stream.Write(encoded)
	return err
}

// Decode reads a texture entry's full payload and parses its directory,
// leaving the pixel payload undecoded (see PixelData).
func Decode(payload []byte) (*Texture, error) {
	if len(payload) < headerLen || !IsUUID(payload) {
		return nil, bundle.ErrInvalidFormat
	}
	t := &Texture{}
	pixelDataOffset := int(uint32At(payload[16:20]))
	count := int(uint32At(payload[20:24]))
	firstImageOffset := int(uint32At(payload[24:28]))
	t.MaxWidth = int(uint32At(payload[28:32]))
	t.MaxHeight = int(uint32At(payload[32:36]))
	t.PowerOfTwo = payload[36] != 0
	t.AllowRotate = payload[37] != 0

	off := firstImageOffset
	t.Images = make([]Image, 0, count)
	for i := 0; i < count; i++ {
		if off+imageRecordLen > len(payload) {
			return nil, bundle.ErrInvalidFormat
		}
		rec := payload[off : off+imageRecordLen]
		recSize := int(uint32At(rec[0:4]))
		img := Image{
			Anchor:  pack.Anchor(uint32At(rec[4:8])),
			AnchorX: fixed32At(rec[8:12]),
			AnchorY: fixed32At(rec[12:16]),
			X:       int(uint32At(rec[16:20])),
			Y:       int(uint32At(rec[20:24])),
			Width:   int(uint32At(rec[24:28])),
			Height:  int(uint32At(rec[28:32])),
			Rotated: rec[32] != 0,
		}
		keySize := int(uint32At(rec[33:37]))
		keyStart := off + imageRecordLen
		if keyStart+keySize > len(payload) {
			return nil, bundle.ErrInvalidFormat
		}
		img.Key = append([]byte(nil), payload[keyStart:keyStart+keySize]...)
		t.Images = append(t.Images, img)
		off += recSize
	}

	if pixelDataOffset > len(payload) {
		return nil, bundle.ErrInvalidFormat
	}
	t.PixelData = payload[pixelDataOffset:]
	return t, nil
}

func putUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }
func uint32At(buf []byte) uint32     { return binary.BigEndian.Uint32(buf) }

func putFixed32(buf []byte, x float32) {
	sign := float32(1)
	if x < 0 {
		sign = -1
	}
	putUint32(buf, uint32(int32(x*bundle.FixedPointScale+sign*0.5)))
}

func fixed32At(buf []byte) float32 {
	return float32(int32(uint32At(buf))) / bundle.FixedPointScale
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Bounds returns the image.Rectangle an image record occupies on the
// atlas canvas, in its placed (possibly rotated) orientation.
func (img Image) Bounds() image.Rectangle {
	w, h := img.Width, img.Height
	if img.Rotated {
		w, h = h, w
	}
	return image.Rect(img.X, img.Y, img.X+w, img.Y+h)
}
