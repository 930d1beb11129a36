// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/exp/maps"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
	"spritebundle.dev/spritebundle/raster"
	"spritebundle.dev/spritebundle/texture"
)

// Driver applies a parsed Manifest to an open Bundle, implementing an
// incremental-build policy: unchanged file entries and up-to-date
// textures are skipped, everything else is (re)written, and every key
// the manifest mentions is touched so a later DeleteUntouched sweep can
// prune the rest.
type Driver struct {
	Bundle  *bundle.Bundle
	Prefix  string
	Verbose bool

	// Deps accumulates every path consulted during Build, for WriteDeps.
	Deps []string
}

func (d *Driver) logf(format string, args ...interface{}) {
	if d.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func (d *Driver) addDep(path string) {
	d.Deps = append(d.Deps, path)
}

// Build materialises every file and texture named (directly or via glob)
// in m into d.Bundle.
func (d *Driver) Build(m *Manifest) error {
	fileKeys := maps.Keys(m.Files)
	sort.Strings(fileKeys)
	for _, key := range fileKeys {
		if err := d.buildFile([]byte(key), m.Files[key].Path); err != nil {
			return fmt.Errorf("file %q: %w", key, err)
		}
	}
	for _, g := range m.GlobFiles {
		hits, err := expandGlob(d.Prefix, g.Path, g.Glob, g.Prefix)
		if err != nil {
			return fmt.Errorf("glob %q: %w", g.Glob, err)
		}
		d.addDep(filepath.Join(d.Prefix, g.Path))
		for _, h := range hits {
			if err := d.buildFile([]byte(h.key), h.path); err != nil {
				return fmt.Errorf("file %q: %w", h.key, err)
			}
		}
	}

	textureKeys := maps.Keys(m.Textures)
	sort.Strings(textureKeys)
	for _, key := range textureKeys {
		if err := d.buildTexture([]byte(key), m.Textures[key]); err != nil {
			return fmt.Errorf("texture %q: %w", key, err)
		}
	}
	return nil
}

func (d *Driver) buildFile(key []byte, path string) error {
	resolved := filepath.Join(d.Prefix, path)
	d.addDep(resolved)

	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Errorf("%w: %s", bundle.ErrFileAccess, resolved)
	}
	mtime := info.ModTime().Unix()

	if e := d.Bundle.Find(key); e != nil {
		e.Touch()
		if mtime <= e.Mtime() {
			d.logf("skipping up to date file %s", key)
			return nil
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("%w: %s", bundle.ErrFileAccess, resolved)
	}
	d.logf("writing file %s from %s", key, resolved)
	e, err := d.Bundle.AddFile(key, data, mtime)
	if err != nil {
		return err
	}
	e.Touch()
	return nil
}

// resolvedImage is one source image gathered for a texture, with its
// resolved filesystem path retained so it can be (re)loaded only if the
// texture turns out to need rebuilding.
type resolvedImage struct {
	packImage *pack.Image
	path      string
	mtime     int64
}

func (d *Driver) buildTexture(key []byte, spec TextureSpec) error {
	var images []resolvedImage

	collect := func(imgKey string, imgPath string, anchor Anchor, forceRotate bool) error {
		resolved := filepath.Join(d.Prefix, imgPath)
		d.addDep(resolved)
		info, err := os.Stat(resolved)
		if err != nil {
			return fmt.Errorf("%w: %s", bundle.ErrFileAccess, resolved)
		}
		cfg, err := raster.DecodeConfig(resolved)
		if err != nil {
			return err
		}
		ax, ay := anchorCoords(anchor, cfg.Width, cfg.Height)
		images = append(images, resolvedImage{
			packImage: &pack.Image{
				Key:         []byte(imgKey),
				Width:       cfg.Width,
				Height:      cfg.Height,
				Anchor:      anchor.Kind,
				AnchorX:     ax,
				AnchorY:     ay,
				ForceRotate: forceRotate,
			},
			path:  resolved,
			mtime: info.ModTime().Unix(),
		})
		return nil
	}

	imgKeys := maps.Keys(spec.Images)
	sort.Strings(imgKeys)
	for _, imgKey := range imgKeys {
		img := spec.Images[imgKey]
		if err := collect(imgKey, img.Path, img.Anchor, img.ForceRotate); err != nil {
			return err
		}
	}
	for _, g := range spec.GlobImages {
		hits, err := expandGlob(d.Prefix, g.Path, g.Glob, g.Prefix)
		if err != nil {
			return fmt.Errorf("glob %q: %w", g.Glob, err)
		}
		d.addDep(filepath.Join(d.Prefix, g.Path))
		for _, h := range hits {
			if err := collect(h.key, h.path, g.Anchor, g.ForceRotate); err != nil {
				return err
			}
		}
	}

	existing := d.Bundle.Find(key)
	dirty := d.textureDirty(existing, images, spec)
	if existing != nil {
		existing.Touch()
		if !dirty {
			d.logf("skipping up to date texture %s", key)
			return nil
		}
	}

	d.logf("packing texture %s (%d images)", key, len(images))
	packImages := make([]*pack.Image, len(images))
	sourceImages := make(map[string]image.Image, len(images))
	for i, ri := range images {
		img, err := raster.Load(ri.path)
		if err != nil {
			return err
		}
		packImages[i] = ri.packImage
		sourceImages[string(ri.packImage.Key)] = img
	}

	packer := pack.NewPacker(spec.MaxWidth, spec.MaxHeight, spec.AllowRotate90)
	if !packer.Pack(packImages) {
		return bundle.ErrCannotFit
	}
	width, height := packer.Width(), packer.Height()
	if spec.Pow2 {
		width, height = pack.NextPowerOfTwo(width), pack.NextPowerOfTwo(height)
	}

	encoded, err := raster.Compose(width, height, packImages, sourceImages)
	if err != nil {
		return err
	}

	stream, err := d.Bundle.AddStream(key, int64(len(encoded))+4096, latestMtime(images))
	if err != nil {
		return err
	}
	if err := texture.Encode(stream, packImages, spec.MaxWidth, spec.MaxHeight, spec.Pow2, spec.AllowRotate90, encoded); err != nil {
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}
	entry := d.Bundle.Find(key)
	if entry != nil {
		entry.Touch()
	}
	return nil
}

func latestMtime(images []resolvedImage) int64 {
	var m int64
	for _, ri := range images {
		if ri.mtime > m {
			m = ri.mtime
		}
	}
	return m
}

// textureDirty reports whether a texture needs rebuilding: any source
// image is newer than the existing entry, an incoming image has no
// match by key in the existing texture, a matched image's anchor
// differs, or any of the texture-wide packing parameters changed.
func (d *Driver) textureDirty(existing *bundle.Entry, images []resolvedImage, spec TextureSpec) bool {
	if existing == nil {
		return true
	}
	payload, err := d.Bundle.ReadAll(existing)
	if err != nil {
		return true
	}
	old, err := texture.Decode(payload)
	if err != nil {
		return true
	}
	if old.MaxWidth != spec.MaxWidth || old.MaxHeight != spec.MaxHeight ||
		old.PowerOfTwo != spec.Pow2 || old.AllowRotate != spec.AllowRotate90 {
		return true
	}

	byKey := make(map[string]texture.Image, len(old.Images))
	for _, oi := range old.Images {
		byKey[string(oi.Key)] = oi
	}

	for _, ri := range images {
		if ri.mtime > existing.Mtime() {
			return true
		}
		match, ok := byKey[string(ri.packImage.Key)]
		if !ok {
			return true
		}
		if match.Anchor != ri.packImage.Anchor {
			return true
		}
		if ri.packImage.Anchor == pack.AnchorExplicit &&
			(match.AnchorX != ri.packImage.AnchorX || match.AnchorY != ri.packImage.AnchorY) {
			return true
		}
	}
	return false
}

// anchorCoords derives (anchor_x, anchor_y) for the named anchor kinds
// from an image's dimensions. Explicit anchors pass their own
// coordinates through.
func anchorCoords(a Anchor, width, height int) (x, y float32) {
	w, h := float32(width), float32(height)
	switch a.Kind {
	case pack.AnchorExplicit:
		return a.X, a.Y
	case pack.AnchorCenter:
		return w / 2, h / 2
	case pack.AnchorLeft:
		return 0, h / 2
	case pack.AnchorRight:
		return w, h / 2
	case pack.AnchorTop:
		return w / 2, 0
	case pack.AnchorBottom:
		return w / 2, h
	case pack.AnchorTopLeft:
		return 0, 0
	case pack.AnchorTopRight:
		return w, 0
	case pack.AnchorBottomLeft:
		return 0, h
	case pack.AnchorBottomRight:
		return w, h
	default:
		return w / 2, h / 2
	}
}
