package geometry

import "math"

// Size is a pixel size with integer dimensions.
type Size struct {
	Width  int
	Height int
}

// SizeF is a size in continuous coordinates, used by the scale transform math.
type SizeF struct {
	Width  float64
	Height float64
}

// Point is a position or translation in continuous coordinates.
type Point struct {
	X float64
	Y float64
}

// Rect is an integer pixel rectangle. Right and Bottom are exclusive.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

func (s Size) ToF() SizeF {
	return SizeF{Width: float64(s.Width), Height: float64(s.Height)}
}

// CoerceAtMost limits both dimensions to the given maximum.
func (s Size) CoerceAtMost(max Size) Size {
	w := s.Width
	h := s.Height
	if w > max.Width {
		w = max.Width
	}
	if h > max.Height {
		h = max.Height
	}
	return Size{Width: w, Height: h}
}

// CoerceAtLeast raises both dimensions to the given minimum.
func (s Size) CoerceAtLeast(min Size) Size {
	w := s.Width
	h := s.Height
	if w < min.Width {
		w = min.Width
	}
	if h < min.Height {
		h = min.Height
	}
	return Size{Width: w, Height: h}
}

func (s SizeF) ToSize() Size {
	return Size{
		Width:  int(math.Round(s.Width)),
		Height: int(math.Round(s.Height)),
	}
}

func (s SizeF) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

func (p Point) Mul(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

func (p Point) Div(factor float64) Point {
	return Point{X: p.X / factor, Y: p.Y / factor}
}

func (r Rect) Dx() int { return r.Right - r.Left }
func (r Rect) Dy() int { return r.Bottom - r.Top }

func (r Rect) IsEmpty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// RectOf returns the rectangle covering the whole of the given size.
func RectOf(s Size) Rect {
	return Rect{Left: 0, Top: 0, Right: s.Width, Bottom: s.Height}
}

// FitInto scales content to fit inside max while preserving aspect ratio.
// Content with unknown (zero) dimensions is returned as max unchanged.
func FitInto(content Size, max Size) Size {
	if content.Width <= 0 || content.Height <= 0 {
		return max
	}

	ratio := math.Min(
		float64(max.Width)/float64(content.Width),
		float64(max.Height)/float64(content.Height),
	)

	return Size{
		Width:  int(math.Round(float64(content.Width) * ratio)),
		Height: int(math.Round(float64(content.Height) * ratio)),
	}
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
