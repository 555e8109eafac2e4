// Package imaging decodes page images and resamples them to display
// size. Format support is stdlib gif/jpeg/png plus bmp and webp from
// x/image, registered via blank imports.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"komavi/internal/geometry"
)

// Decode decodes image bytes in any registered format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %v", err)
	}
	return img, nil
}

// DecodeSize reads only the header to get pixel dimensions, without
// decoding the pixel data.
func DecodeSize(data []byte) (geometry.Size, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return geometry.Size{}, fmt.Errorf("decoding image header: %v", err)
	}
	return geometry.Size{Width: config.Width, Height: config.Height}, nil
}

// Filter selects the resampling kernel used when scaling to a target
// size.
type Filter int

const (
	// FilterBilinear is the default: fast and good enough for reading.
	FilterBilinear Filter = iota
	FilterNearest
	FilterCatmullRom
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterCatmullRom:
		return "catmullrom"
	default:
		return "bilinear"
	}
}

// ParseFilter maps a config string to a filter.
func ParseFilter(name string) (Filter, error) {
	switch name {
	case "", "bilinear":
		return FilterBilinear, nil
	case "nearest":
		return FilterNearest, nil
	case "catmullrom":
		return FilterCatmullRom, nil
	default:
		return FilterBilinear, fmt.Errorf("unknown image filter %q", name)
	}
}

func (f Filter) scaler() xdraw.Scaler {
	switch f {
	case FilterNearest:
		return xdraw.NearestNeighbor
	case FilterCatmullRom:
		return xdraw.CatmullRom
	default:
		return xdraw.ApproxBiLinear
	}
}

// Scale resamples src to exactly target. A zero target or a target
// matching the source returns src unchanged.
func Scale(src image.Image, target geometry.Size, filter Filter) image.Image {
	bounds := src.Bounds()
	if target.IsZero() || (bounds.Dx() == target.Width && bounds.Dy() == target.Height) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	filter.scaler().Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// DecodeScaled decodes and resamples in one step, returning the scaled
// image along with the source's original dimensions.
func DecodeScaled(data []byte, target geometry.Size, filter Filter) (image.Image, geometry.Size, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, geometry.Size{}, err
	}
	bounds := img.Bounds()
	original := geometry.Size{Width: bounds.Dx(), Height: bounds.Dy()}
	return Scale(img, target, filter), original, nil
}
