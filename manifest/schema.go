// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"encoding/json"
	"fmt"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
)

// Manifest is the top-level shape of an assets JSON file.
type Manifest struct {
	Textures   map[string]TextureSpec `json:"textures"`
	Files      map[string]FileSpec    `json:"files"`
	GlobFiles  []GlobFileSpec         `json:"globFiles"`
}

// TextureSpec describes one texture to pack and embed in the bundle.
type TextureSpec struct {
	MaxWidth      int                   `json:"maxWidth"`
	MaxHeight     int                   `json:"maxHeight"`
	Pow2          bool                  `json:"pow2"`
	AllowRotate90 bool                  `json:"allowRotate90"`
	Images        map[string]ImageSpec  `json:"images"`
	GlobImages    []GlobImageSpec       `json:"globImages"`
}

// ImageSpec describes one source image contributing to a texture.
type ImageSpec struct {
	Path   string `json:"path"`
	Anchor Anchor `json:"anchor"`

	// ForceRotate requests the packer always place this image rotated
	// 90°, regardless of whether rotation improves the fit — useful for
	// exercising rotated-placement rendering paths deliberately.
	ForceRotate bool `json:"forceRotate"`
}

// GlobImageSpec describes a set of source images discovered via a glob
// pattern, all sharing an anchor and force-rotate setting.
type GlobImageSpec struct {
	Glob        string `json:"glob"`
	Prefix      string `json:"prefix"`
	Path        string `json:"path"`
	Anchor      Anchor `json:"anchor"`
	ForceRotate bool   `json:"forceRotate"`
}

// FileSpec describes one opaque file entry.
type FileSpec struct {
	Path string `json:"path"`
}

// GlobFileSpec describes a set of opaque file entries discovered via a
// glob pattern.
type GlobFileSpec struct {
	Glob   string `json:"glob"`
	Prefix string `json:"prefix"`
	Path   string `json:"path"`
}

// Anchor is the polymorphic anchor value from the manifest schema: either
// one of nine symbolic kinds, or an explicit {"x","y"} coordinate object.
// The default, when the property is absent, is AnchorCenter.
type Anchor struct {
	Kind pack.Anchor
	X, Y float32
}

var anchorNames = map[string]pack.Anchor{
	"center":      pack.AnchorCenter,
	"top":         pack.AnchorTop,
	"right":       pack.AnchorRight,
	"bottom":      pack.AnchorBottom,
	"left":        pack.AnchorLeft,
	"topleft":     pack.AnchorTopLeft,
	"topright":    pack.AnchorTopRight,
	"bottomleft":  pack.AnchorBottomLeft,
	"bottomright": pack.AnchorBottomRight,
}

// UnmarshalJSON implements the explicit/named anchor split: a bare string
// selects one of the named kinds, an object selects the explicit kind and
// supplies its own coordinates. The X and Y properties are assigned to
// their own, distinct fields here.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		kind, ok := anchorNames[name]
		if !ok {
			return fmt.Errorf("unrecognized anchor name %q: %w", name, bundle.ErrInvalidAnchor)
		}
		*a = Anchor{Kind: kind}
		return nil
	}

	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%v: %w", err, bundle.ErrInvalidAnchor)
	}
	if obj.X == nil || obj.Y == nil {
		return fmt.Errorf("explicit anchor requires both x and y: %w", bundle.ErrInvalidAnchor)
	}
	a.Kind = pack.AnchorExplicit
	a.X = float32(*obj.X)
	a.Y = float32(*obj.Y)
	return nil
}

// IsZero reports whether the anchor holds the zero value (center kind,
// zero coordinates). An anchor absent from the manifest and an explicit
// "center" both decode to this value.
func (a Anchor) IsZero() bool {
	return a.Kind == pack.AnchorCenter && a.X == 0 && a.Y == 0
}
