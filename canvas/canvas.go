// Package canvas owns a room's mutable raster buffer. Every mutation is
// serialized by the canvas mutex for the whole decode-composite-encode span,
// so concurrent patch requests commit in acquisition order and never clobber
// each other's edits.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"sync"

	"golang.org/x/image/draw"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

// Background fills a fresh canvas and any area exposed by growing a resize.
var Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Patch is an encoded region of the canvas: the full buffer for snapshots and
// resizes, a sub-rectangle for composite results.
type Patch struct {
	Data   []byte
	X      int
	Y      int
	Width  int
	Height int
}

// Canvas is one room's raster state.
type Canvas struct {
	mu  sync.Mutex
	img *image.RGBA
}

// New creates a background-filled canvas of the given size.
func New(width, height int) *Canvas {
	return &Canvas{img: newFilled(width, height)}
}

func newFilled(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	return img
}

// Size returns the current canvas dimensions.
func (c *Canvas) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img.Bounds().Dx(), c.img.Bounds().Dy()
}

// Snapshot encodes the full canvas.
func (c *Canvas) Snapshot() (Patch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return encodeRegion(c.img, c.img.Bounds())
}

// Compose decodes blob, alpha-composites it over the canvas inside the
// rectangle (x, y, width, height) and returns the re-encoded region, clipped
// to the canvas bounds. A fragment whose natural size differs from the
// declared rectangle is scaled to fit before compositing. Decode failures
// leave the canvas unchanged.
func (c *Canvas) Compose(blob []byte, x, y, width, height int) (Patch, error) {
	if width < 0 || height < 0 || width > domain.MaxCanvasDimension || height > domain.MaxCanvasDimension {
		return Patch{}, fmt.Errorf("patch rectangle %dx%d out of bounds", width, height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	frag, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return Patch{}, fmt.Errorf("decode fragment: %w", err)
	}

	if b := frag.Bounds(); b.Dx() != width || b.Dy() != height {
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), frag, b, draw.Src, nil)
		frag = scaled
	}

	target := image.Rect(x, y, x+width, y+height)
	draw.Draw(c.img, target, frag, frag.Bounds().Min, draw.Over)

	region := target.Intersect(c.img.Bounds())
	if region.Empty() {
		return Patch{X: x, Y: y}, nil
	}
	return encodeRegion(c.img, region)
}

// Resize changes the canvas dimensions. Each axis independently crops from
// the origin when shrinking and pads with the background when growing;
// previously cropped content is not recoverable. Returns the re-encoded full
// canvas.
func (c *Canvas) Resize(width, height int) (Patch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return encodeRegion(c.img, b)
	}

	next := newFilled(width, height)
	draw.Draw(next, b.Intersect(next.Bounds()), c.img, image.Point{}, draw.Src)
	patch, err := encodeRegion(next, next.Bounds())
	if err != nil {
		// No commit on a failed encode: the old buffer stays in place and
		// snapshots keep working.
		return Patch{}, err
	}
	c.img = next
	return patch, nil
}

// encodeRegion renders a sub-rectangle of src to PNG.
func encodeRegion(src *image.RGBA, region image.Rectangle) (Patch, error) {
	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(out, out.Bounds(), src, region.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return Patch{}, fmt.Errorf("encode region: %w", err)
	}
	return Patch{
		Data:   buf.Bytes(),
		X:      region.Min.X,
		Y:      region.Min.Y,
		Width:  region.Dx(),
		Height: region.Dy(),
	}, nil
}
