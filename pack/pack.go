// SPDX-License-Identifier: Unlicense OR MIT

// Package pack implements the Maximal Rectangles Best-Short-Side-Fit
// bin-packing algorithm used to lay sub-images out on a single texture
// canvas.
package pack

import "golang.org/x/exp/slices"

// Anchor names the reference point carried alongside a packed image, used
// by callers to know where to pin the image when positioning it in a
// scene (e.g. the hot-spot of a cursor sprite).
type Anchor int

const (
	AnchorCenter Anchor = iota
	AnchorExplicit
	AnchorLeft
	AnchorRight
	AnchorTop
	AnchorBottom
	AnchorTopLeft
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
)

// Image is one sub-rectangle to place on the canvas. Width and Height are
// set by the caller before packing; X, Y and Rotated are filled in by Pack.
type Image struct {
	Key    []byte
	Width  int
	Height int

	Anchor  Anchor
	AnchorX float32
	AnchorY float32

	// ForceRotate requests the image always be placed rotated 90°,
	// regardless of whether rotation improves the fit.
	ForceRotate bool

	X       int
	Y       int
	Rotated bool
}

// rect is a free (unoccupied) region of the canvas.
type rect struct {
	x, y, w, h int
	removed    bool
}

// Packer runs the Maximal Rectangles BSSF algorithm over a fixed-size
// canvas. The zero value is not usable; construct with NewPacker.
type Packer struct {
	maxWidth, maxHeight int
	allowRotate         bool

	free    []rect
	garbage int

	width, height int // bounding box actually used, grows as images are placed
}

// NewPacker returns a Packer for a canvas bounded by maxWidth x maxHeight.
// allowRotate permits 90° rotation of images that don't request it
// explicitly, when doing so improves the fit.
func NewPacker(maxWidth, maxHeight int, allowRotate bool) *Packer {
	p := &Packer{maxWidth: maxWidth, maxHeight: maxHeight, allowRotate: allowRotate}
	p.free = append(p.free, rect{x: 0, y: 0, w: maxWidth, h: maxHeight})
	return p
}

// Width and Height return the bounding box actually consumed by the
// images packed so far (before any power-of-two rounding).
func (p *Packer) Width() int  { return p.width }
func (p *Packer) Height() int { return p.height }

// Pack assigns X, Y and Rotated to every image in images, largest-first,
// mutating the slice in place. It returns false if some image could not
// fit within the canvas bounds given to NewPacker.
func (p *Packer) Pack(images []*Image) bool {
	slices.SortFunc(images, func(a, b *Image) bool {
		return compareImages(a, b) < 0
	})
	for _, img := range images {
		if !p.place(img) {
			return false
		}
	}
	return true
}

// compareImages sorts images largest-dimension-first, then
// second-dimension-first, matching the heuristic the reference packer
// uses to get good fill ratios from a greedy placement.
func compareImages(a, b *Image) int {
	maxA, otherA := longSide(a.Width, a.Height)
	maxB, otherB := longSide(b.Width, b.Height)
	if d := maxB - maxA; d != 0 {
		return d
	}
	return otherB - otherA
}

func longSide(w, h int) (long, short int) {
	if w > h {
		return w, h
	}
	return h, w
}

func (p *Packer) place(img *Image) bool {
	bestShortSide := int(^uint(0) >> 1) // max int
	bestRotated := false
	bestIdx := -1

	for i := range p.free {
		r := &p.free[i]
		if r.removed {
			continue
		}

		if !img.ForceRotate {
			wLen, hLen := r.w-img.Width, r.h-img.Height
			if wLen >= 0 && hLen >= 0 {
				short := min(wLen, hLen)
				if short < bestShortSide {
					bestShortSide, bestIdx, bestRotated = short, i, false
				}
			}
		}

		if p.allowRotate || img.ForceRotate {
			wLen, hLen := r.w-img.Height, r.h-img.Width
			if wLen >= 0 && hLen >= 0 {
				short := min(wLen, hLen)
				if short < bestShortSide {
					bestShortSide, bestIdx, bestRotated = short, i, true
				}
			}
		}
	}

	if bestIdx < 0 {
		return false
	}
	best := p.free[bestIdx]

	placedW, placedH := img.Width, img.Height
	if bestRotated {
		placedW, placedH = img.Height, img.Width
	}

	img.X, img.Y, img.Rotated = best.x, best.y, bestRotated

	if img.X+placedW > p.width {
		p.width = img.X + placedW
	}
	if img.Y+placedH > p.height {
		p.height = img.Y + placedH
	}

	placed := rect{x: best.x, y: best.y, w: placedW, h: placedH}

	p.addFree(rect{x: best.x, y: best.y + placedH, w: best.w, h: best.h - placedH})
	p.addFree(rect{x: best.x + placedW, y: best.y, w: best.w - placedW, h: best.h})
	p.removeFree(bestIdx)

	p.splitIntersecting(placed)
	p.pruneDegenerate()

	return true
}

func (p *Packer) addFree(r rect) {
	if r.w <= 0 || r.h <= 0 {
		return
	}
	if p.garbage > 0 {
		for i := range p.free {
			if p.free[i].removed {
				p.free[i] = r
				p.garbage--
				return
			}
		}
	}
	p.free = append(p.free, r)
}

func (p *Packer) removeFree(i int) {
	p.free[i].removed = true
	p.garbage++
	for n := len(p.free) - 1; n >= 0 && p.free[n].removed; n-- {
		p.free = p.free[:n]
		p.garbage--
	}
}

func (p *Packer) splitIntersecting(placed rect) {
	for i := range p.free {
		r := p.free[i]
		if r.removed || !rectsIntersect(r, placed) {
			continue
		}

		if w := placed.x - r.x; w > 0 {
			p.addFree(rect{x: r.x, y: r.y, w: w, h: r.h})
		}
		if w := r.x + r.w - (placed.x + placed.w); w > 0 {
			p.addFree(rect{x: placed.x + placed.w, y: r.y, w: w, h: r.h})
		}
		if h := placed.y - r.y; h > 0 {
			p.addFree(rect{x: r.x, y: r.y, w: r.w, h: h})
		}
		if h := r.y + r.h - (placed.y + placed.h); h > 0 {
			p.addFree(rect{x: r.x, y: placed.y + placed.h, w: r.w, h: h})
		}
		p.removeFree(i)
	}
}

func rectsIntersect(a, b rect) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}

// pruneDegenerate removes any free rectangle that is wholly contained
// within another, a cleanup step that keeps the free list from growing
// without bound as packing proceeds.
func (p *Packer) pruneDegenerate() {
	for i := 0; i < len(p.free); i++ {
		r1 := &p.free[i]
		if r1.removed {
			continue
		}
		for j := i + 1; j < len(p.free); j++ {
			r2 := &p.free[j]
			if r2.removed {
				continue
			}
			if contains(*r2, *r1) {
				p.removeFree(i)
				break
			}
			if contains(*r1, *r2) {
				p.removeFree(j)
			}
		}
	}
}

// contains reports whether outer fully contains inner.
func contains(outer, inner rect) bool {
	dx, dy := inner.x-outer.x, inner.y-outer.y
	return dx >= 0 && dy >= 0 && inner.w <= outer.w-dx && inner.h <= outer.h-dy
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// NextPowerOfTwo rounds n up to the next power of two (n itself if it
// already is one).
func NextPowerOfTwo(n int) int {
	power := 1
	for power < n {
		power *= 2
	}
	return power
}
