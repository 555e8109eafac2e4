package imaging

import (
	"image"
	"sync"

	"komavi/internal/geometry"
	"komavi/internal/reader"
)

// UpdateRequest is the last visible-region hint pushed into a page
// image. The renderer reads it to restrict drawing to the on-screen
// slice.
type UpdateRequest struct {
	Visible geometry.Rect
	Zoom    float64
	MaxSize geometry.Size
}

// PageImage is the decoded-pixels implementation of the reader's image
// handle. The renderer polls Version/Image; reader state only sees the
// interface.
type PageImage struct {
	id           reader.PageID
	originalSize geometry.Size

	mu      sync.Mutex
	img     image.Image
	request UpdateRequest
	version int
	closed  bool
}

// NewPageImage wraps decoded pixels. originalSize is the source's true
// dimensions, which can differ from img when the decode was already
// scaled to a target size.
func NewPageImage(id reader.PageID, img image.Image, originalSize geometry.Size) *PageImage {
	return &PageImage{id: id, img: img, originalSize: originalSize}
}

func (p *PageImage) PageID() reader.PageID { return p.id }

func (p *PageImage) OriginalSize() geometry.Size { return p.originalSize }

func (p *PageImage) CalculateSizeForArea(max geometry.Size, stretch bool) geometry.Size {
	fitted := geometry.FitInto(p.originalSize, max)
	if !stretch {
		fitted = fitted.CoerceAtMost(p.originalSize)
	}
	return fitted
}

func (p *PageImage) RequestUpdate(visible geometry.Rect, zoomFactor float64, maxSize geometry.Size) {
	p.mu.Lock()
	p.request = UpdateRequest{Visible: visible, Zoom: zoomFactor, MaxSize: maxSize}
	p.version++
	p.mu.Unlock()
}

// LastRequest returns the newest update hint and a version counter that
// increases with every request.
func (p *PageImage) LastRequest() (UpdateRequest, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.request, p.version
}

// Image returns the pixels, or false after Close.
func (p *PageImage) Image() (image.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false
	}
	return p.img, true
}

// Close releases the pixel data. Safe to call more than once.
func (p *PageImage) Close() {
	p.mu.Lock()
	p.closed = true
	p.img = nil
	p.mu.Unlock()
}

func (p *PageImage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
