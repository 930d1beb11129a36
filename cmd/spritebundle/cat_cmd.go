// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
	"spritebundle.dev/spritebundle/texture"
)

const catUsage = `usage: spritebundle cat [-texture] <bundle> <key>

cat writes one entry's payload to stdout. If the entry is a packed
texture, cat writes a human-readable JSON description of its layout;
with -texture, it instead writes the texture's raw composed pixel
payload. Any other entry is written as its raw bytes.
`

func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, catUsage) }
	asTexture := fs.Bool("texture", false, "write a texture entry's raw pixel payload instead of its JSON description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected a bundle path and a key")
	}

	b, err := bundle.OpenReadOnly(fs.Arg(0))
	if err != nil {
		return err
	}
	defer b.Close()

	e := b.FindString(fs.Arg(1))
	if e == nil {
		return bundle.ErrNotFound
	}
	payload, err := b.ReadAll(e)
	if err != nil {
		return err
	}

	if !texture.IsUUID(payload) {
		_, err := os.Stdout.Write(payload)
		return err
	}

	tex, err := texture.Decode(payload)
	if err != nil {
		return err
	}
	if *asTexture {
		_, err := os.Stdout.Write(tex.PixelData)
		return err
	}
	return describeTexture(os.Stdout, tex)
}

// textureDescription is the JSON shape cat prints for a texture entry
// when -texture isn't given.
type textureDescription struct {
	MaxWidth      int                `json:"maxWidth"`
	MaxHeight     int                `json:"maxHeight"`
	Pow2          bool               `json:"pow2"`
	AllowRotate90 bool               `json:"allowRotate90"`
	Images        []imageDescription `json:"images"`
}

type imageDescription struct {
	Key     string  `json:"key"`
	Anchor  string  `json:"anchor"`
	AnchorX float32 `json:"anchorX"`
	AnchorY float32 `json:"anchorY"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Rotated bool    `json:"rotated"`
}

var anchorNames = map[pack.Anchor]string{
	pack.AnchorCenter:      "center",
	pack.AnchorExplicit:    "explicit",
	pack.AnchorLeft:        "left",
	pack.AnchorRight:       "right",
	pack.AnchorTop:         "top",
	pack.AnchorBottom:      "bottom",
	pack.AnchorTopLeft:     "topleft",
	pack.AnchorTopRight:    "topright",
	pack.AnchorBottomLeft:  "bottomleft",
	pack.AnchorBottomRight: "bottomright",
}

func describeTexture(w *os.File, tex *texture.Texture) error {
	desc := textureDescription{
		MaxWidth:      tex.MaxWidth,
		MaxHeight:     tex.MaxHeight,
		Pow2:          tex.PowerOfTwo,
		AllowRotate90: tex.AllowRotate,
		Images:        make([]imageDescription, len(tex.Images)),
	}
	for i, img := range tex.Images {
		name, ok := anchorNames[img.Anchor]
		if !ok {
			name = "explicit"
		}
		desc.Images[i] = imageDescription{
			Key:     string(img.Key),
			Anchor:  name,
			AnchorX: img.AnchorX,
			AnchorY: img.AnchorY,
			X:       img.X,
			Y:       img.Y,
			Width:   img.Width,
			Height:  img.Height,
			Rotated: img.Rotated,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(desc)
}
