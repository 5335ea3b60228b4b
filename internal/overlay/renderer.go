package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"

	"github.com/visioncue/visioncue/internal/detect"
)

var categoryColors = map[detect.Category]color.RGBA{
	detect.Person:       {R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
	detect.Car:          {R: 0x34, G: 0x98, B: 0xdb, A: 0xff},
	detect.Bicycle:      {R: 0x9b, G: 0x59, B: 0xb6, A: 0xff},
	detect.Bus:          {R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	detect.Dog:          {R: 0xd3, G: 0x54, B: 0x00, A: 0xff},
	detect.TrafficLight: {R: 0xf1, G: 0xc4, B: 0x0f, A: 0xff},
	detect.Crosswalk:    {R: 0x1a, G: 0xbc, B: 0x9c, A: 0xff},
	detect.StopSign:     {R: 0xc0, G: 0x39, B: 0x2b, A: 0xff},
	detect.Bench:        {R: 0x7f, G: 0x8c, B: 0x8d, A: 0xff},
	detect.Tree:         {R: 0x27, G: 0xae, B: 0x60, A: 0xff},
}

var fallbackColor = color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff}

const (
	boxStroke  = 2.0
	tagPadding = 3.0
)

// Renderer keeps a transparent drawing surface pixel-aligned with the
// video it annotates. Rendering the same result at the same size is
// idempotent: the surface is cleared before every draw.
type Renderer struct {
	mu     sync.Mutex
	width  int
	height int
	dc     *gg.Context
}

func NewRenderer(width, height int) *Renderer {
	r := &Renderer{}
	r.Resize(width, height)
	return r
}

// Resize re-syncs the surface with the video's current dimensions.
// Called on metadata load and whenever playback layout changes; a
// no-op when the dimensions are unchanged.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizeLocked(width, height)
}

func (r *Renderer) resizeLocked(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width == r.width && height == r.height && r.dc != nil {
		return
	}
	r.width = width
	r.height = height
	r.dc = gg.NewContext(width, height)
}

// Render clears the surface and draws one bordered, labeled rectangle
// per detection, converting frame-relative bounds to surface pixels.
// A nil result yields a fully transparent surface.
func (r *Renderer) Render(result *detect.Result) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderLocked(result)
}

func (r *Renderer) renderLocked(result *detect.Result) image.Image {
	dc := r.dc
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	if result == nil {
		return dc.Image()
	}

	fw := float64(r.width)
	fh := float64(r.height)

	for _, d := range result.Detections {
		x := d.Box.X * fw
		y := d.Box.Y * fh
		w := d.Box.Width * fw
		h := d.Box.Height * fh

		col := categoryColors[d.Label]
		if col.A == 0 {
			col = fallbackColor
		}

		dc.SetColor(col)
		dc.SetLineWidth(boxStroke)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		label := fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100)
		tw, th := dc.MeasureString(label)

		// Label tag sits above the box, pushed inside when the box
		// touches the top edge.
		tagTop := y - th - 2*tagPadding
		if tagTop < 0 {
			tagTop = y + boxStroke
		}

		dc.DrawRectangle(x, tagTop, tw+2*tagPadding, th+2*tagPadding)
		dc.Fill()

		dc.SetRGB(1, 1, 1)
		dc.DrawString(label, x+tagPadding, tagTop+tagPadding+th)
	}

	return dc.Image()
}

// EncodePNG renders the result and returns it PNG-encoded for the
// HTTP surface.
func (r *Renderer) EncodePNG(result *detect.Result) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.encodeLocked(result)
}

// EncodePNGAt resizes, renders, and encodes under one lock so
// concurrent callers asking for different sizes each get a PNG of the
// size they asked for.
func (r *Renderer) EncodePNGAt(result *detect.Result, width, height int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizeLocked(width, height)
	return r.encodeLocked(result)
}

func (r *Renderer) encodeLocked(result *detect.Result) ([]byte, error) {
	img := r.renderLocked(result)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding overlay: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}
