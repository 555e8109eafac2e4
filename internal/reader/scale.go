package reader

import (
	"math"
	"sync"

	"komavi/internal/geometry"
)

// maxZoom is the fixed upper zoom bound; the lower bound is derived from
// the fit ratio and moves with the viewport/content geometry.
const maxZoom = 5.0

// Transformation is the published (offset, scale) pair the UI applies
// when drawing content.
type Transformation struct {
	Offset geometry.Point
	Scale  float64
}

// PointOf maps a screen point back to the content coordinate under it.
func (t Transformation) PointOf(transformed geometry.Point) geometry.Point {
	return transformed.Sub(t.Offset).Div(t.Scale)
}

// offsetOf solves `point = (transformed - offset) / scale` for offset.
func offsetOf(point, transformed geometry.Point, scale float64) geometry.Point {
	return transformed.Sub(point.Mul(scale))
}

// ScreenScale is the zoom/pan state machine for one displayed content
// area. Zoom is a unitless multiplier over the 100% baseline: SetZoom(0)
// clamps to the fit ratio and SetZoom(1) means original 100% scale.
// Layout-mode switching depends on these two sentinel values.
type ScreenScale struct {
	mu      sync.Mutex
	zoom    float64
	zoomMin float64
	offset  geometry.Point
	area    geometry.Size
	target  geometry.SizeF

	transform *Value[Transformation]
}

func NewScreenScale() *ScreenScale {
	s := &ScreenScale{
		zoom:    1,
		zoomMin: 1,
		target:  geometry.SizeF{Width: 1, Height: 1},
	}
	s.transform = NewValue(Transformation{Scale: 1})
	return s
}

// ScaleFor100PercentZoom is the scale at which content fills the area in
// at least one dimension.
func (s *ScreenScale) ScaleFor100PercentZoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scaleFor100()
}

func (s *ScreenScale) scaleFor100() float64 {
	return math.Max(
		float64(s.area.Width)/s.target.Width,
		float64(s.area.Height)/s.target.Height,
	)
}

func (s *ScreenScale) scaleForFit() float64 {
	return math.Min(
		float64(s.area.Width)/s.target.Width,
		float64(s.area.Height)/s.target.Height,
	)
}

func (s *ScreenScale) zoomToScale(zoom float64) float64 {
	return zoom * s.scaleFor100()
}

func (s *ScreenScale) recomputeZoomMin() {
	hundred := s.scaleFor100()
	if hundred <= 0 {
		s.zoomMin = 1
		return
	}
	s.zoomMin = s.scaleForFit() / hundred
}

func (s *ScreenScale) SetAreaSize(area geometry.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if area == s.area {
		return
	}
	s.area = area
	s.recomputeZoomMin()
	s.applyLimits()
}

func (s *ScreenScale) SetTargetSize(target geometry.SizeF) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == s.target {
		return
	}
	s.setTarget(target)
	s.applyLimits()
}

// SetTargetSizeWithZoom atomically replaces content geometry and zoom,
// used when adopting a load job's computed scale.
func (s *ScreenScale) SetTargetSizeWithZoom(target geometry.SizeF, zoom float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTarget(target)
	s.zoom = zoom
	s.applyLimits()
}

func (s *ScreenScale) setTarget(target geometry.SizeF) {
	if target.Width < 1 {
		target.Width = 1
	}
	if target.Height < 1 {
		target.Height = 1
	}
	s.target = target
	s.recomputeZoomMin()
}

// applyLimits re-clamps zoom and offset and publishes the resulting
// transformation. Callers must hold mu.
func (s *ScreenScale) applyLimits() {
	s.zoom = geometry.Clamp(s.zoom, s.zoomMin, maxZoom)
	scale := s.zoomToScale(s.zoom)

	xLo, xHi := offsetLimits(s.target.Width*scale, float64(s.area.Width))
	yLo, yHi := offsetLimits(s.target.Height*scale, float64(s.area.Height))
	s.offset = geometry.Point{
		X: geometry.Clamp(s.offset.X, xLo, xHi),
		Y: geometry.Clamp(s.offset.Y, yLo, yHi),
	}

	s.transform.Set(Transformation{Offset: s.offset, Scale: scale})
}

// offsetLimits returns the symmetric valid offset range for one axis:
// ±max(0, (targetExtent·scale − areaExtent)/2).
func offsetLimits(target, area float64) (lo, hi float64) {
	extra := math.Max(0, (target-area)/2)
	return -extra, extra
}

// AddPan translates the content by pan scaled to display pixels, then
// clamps.
func (s *ScreenScale) AddPan(pan geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = s.offset.Add(pan.Mul(s.zoomToScale(s.zoom)))
	s.applyLimits()
}

// AddZoom multiplies the current zoom, keeping the content point under
// focus fixed on screen.
func (s *ScreenScale) AddZoom(multiplier float64, focus geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setZoom(s.zoom*multiplier, focus)
}

func (s *ScreenScale) SetZoom(zoom float64, focus geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setZoom(zoom, focus)
}

func (s *ScreenScale) setZoom(zoom float64, focus geometry.Point) {
	newZoom := geometry.Clamp(zoom, s.zoomMin, maxZoom)
	s.offset = offsetOf(
		s.transform.Get().PointOf(focus),
		focus,
		s.zoomToScale(newZoom),
	)
	s.zoom = newZoom
	s.applyLimits()
}

// Apply adopts another state's geometry and zoom, preserving this
// state's clamping behavior.
func (s *ScreenScale) Apply(other *ScreenScale) {
	other.mu.Lock()
	offset := other.offset
	area := other.area
	target := other.target
	zoom := other.zoom
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
	if target != s.target || zoom != s.zoom {
		s.area = area
		s.setTarget(target)
		s.zoom = zoom
	}
	s.applyLimits()
}

func (s *ScreenScale) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

func (s *ScreenScale) ZoomBounds() (lo, hi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoomMin, maxZoom
}

func (s *ScreenScale) CanZoomIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom < maxZoom
}

func (s *ScreenScale) CanZoomOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom > s.zoomMin
}

func (s *ScreenScale) AreaSize() geometry.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.area
}

func (s *ScreenScale) TargetSize() geometry.SizeF {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Transform exposes the published transformation for subscription.
func (s *ScreenScale) Transform() *Value[Transformation] {
	return s.transform
}

// Transformation returns the current (offset, scale) pair.
func (s *ScreenScale) Transformation() Transformation {
	return s.transform.Get()
}

func (s *ScreenScale) OffsetXLimits() (lo, hi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return offsetLimits(s.target.Width*s.zoomToScale(s.zoom), float64(s.area.Width))
}

func (s *ScreenScale) OffsetYLimits() (lo, hi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return offsetLimits(s.target.Height*s.zoomToScale(s.zoom), float64(s.area.Height))
}
