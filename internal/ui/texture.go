package ui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"komavi/internal/imaging"
	"komavi/internal/reader"
)

// texture is one GPU-side copy of a decoded page.
type texture struct {
	img      *ebiten.Image
	lastUsed int64
}

// textureCache lazily uploads decoded page pixels to ebiten images and
// drops textures whose source image was closed or that went unused.
type textureCache struct {
	textures map[reader.PageID]*texture
	frame    int64

	errorFont *fontSet
	errors    map[reader.PageID]*ebiten.Image
}

// framesBeforeDrop is how many frames an unused texture survives before
// its GPU memory is released.
const framesBeforeDrop = 300

func newTextureCache(fonts *fontSet) *textureCache {
	return &textureCache{
		textures:  make(map[reader.PageID]*texture),
		errorFont: fonts,
		errors:    make(map[reader.PageID]*ebiten.Image),
	}
}

// Get returns the GPU texture for a decoded page, uploading it on first
// use. Returns nil when the handle is not a pixel-backed image or was
// already closed.
func (c *textureCache) Get(image reader.ReaderImage) *ebiten.Image {
	page, ok := image.(*imaging.PageImage)
	if !ok {
		return nil
	}

	id := page.PageID()
	if tex, exists := c.textures[id]; exists {
		if page.Closed() {
			tex.img.Deallocate()
			delete(c.textures, id)
			return nil
		}
		tex.lastUsed = c.frame
		return tex.img
	}

	pixels, ok := page.Image()
	if !ok {
		return nil
	}
	tex := &texture{img: ebiten.NewImageFromImage(pixels), lastUsed: c.frame}
	c.textures[id] = tex
	return tex.img
}

// Error returns a cached placeholder texture for a page that failed to
// load.
func (c *textureCache) Error(id reader.PageID, title, message string) *ebiten.Image {
	if img, exists := c.errors[id]; exists {
		return img
	}
	img := createErrorImage(c.errorFont.source, 400, 300, title, message)
	c.errors[id] = img
	return img
}

// Sweep advances the frame counter and releases textures that were not
// drawn recently. Call once per frame.
func (c *textureCache) Sweep() {
	c.frame++
	for id, tex := range c.textures {
		if c.frame-tex.lastUsed > framesBeforeDrop {
			tex.img.Deallocate()
			delete(c.textures, id)
		}
	}
}

// Clear releases everything, for book transitions and shutdown.
func (c *textureCache) Clear() {
	for id, tex := range c.textures {
		tex.img.Deallocate()
		delete(c.textures, id)
	}
	for id := range c.errors {
		delete(c.errors, id)
	}
}
