package reader

import (
	"math"
	"testing"

	"komavi/internal/geometry"
)

func newTestScale(area geometry.Size, target geometry.SizeF) *ScreenScale {
	s := NewScreenScale()
	s.SetAreaSize(area)
	s.SetTargetSize(target)
	return s
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScaleZoomSentinels(t *testing.T) {
	// hundredPercentScale = max(1000/500, 800/1000) = 2
	// fitScale = min(1000/500, 800/1000) = 0.8
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})

	s.SetZoom(0, geometry.Point{})
	if got := s.Transformation().Scale; !almostEqual(got, 0.8) {
		t.Errorf("fit sentinel: scale = %v, want 0.8", got)
	}
	if got := s.Zoom(); !almostEqual(got, 0.4) {
		t.Errorf("fit sentinel: zoom = %v, want 0.4", got)
	}

	s.SetZoom(1, geometry.Point{})
	if got := s.Transformation().Scale; !almostEqual(got, 2) {
		t.Errorf("100%% sentinel: scale = %v, want 2", got)
	}
}

func TestScaleZoomBounds(t *testing.T) {
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})

	lo, hi := s.ZoomBounds()
	if !almostEqual(lo, 0.4) || hi != 5.0 {
		t.Fatalf("zoom bounds = [%v, %v], want [0.4, 5.0]", lo, hi)
	}

	s.SetZoom(100, geometry.Point{})
	if got := s.Zoom(); got != 5.0 {
		t.Errorf("zoom above ceiling = %v, want 5.0", got)
	}
	if s.CanZoomIn() {
		t.Error("CanZoomIn at ceiling")
	}

	s.SetZoom(0, geometry.Point{})
	if s.CanZoomOut() {
		t.Error("CanZoomOut at floor")
	}
	if !s.CanZoomIn() {
		t.Error("CanZoomIn at floor should be true")
	}
}

func TestScaleBoundsFollowGeometry(t *testing.T) {
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})
	s.SetZoom(0, geometry.Point{})

	// Wider viewport changes both ratios and therefore the lower bound.
	s.SetAreaSize(geometry.Size{Width: 2000, Height: 800})
	lo, _ := s.ZoomBounds()
	want := math.Min(2000.0/500, 800.0/1000) / math.Max(2000.0/500, 800.0/1000)
	if !almostEqual(lo, want) {
		t.Errorf("lower bound after area change = %v, want %v", lo, want)
	}
	if got := s.Zoom(); got < lo {
		t.Errorf("zoom %v fell below recomputed bound %v", got, lo)
	}
}

func TestScaleAnchorPreservingZoom(t *testing.T) {
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})
	s.SetZoom(0, geometry.Point{})

	focus := geometry.Point{X: 100, Y: 100}
	before := s.Transformation().PointOf(focus)

	s.AddZoom(2.5, focus)

	after := s.Transformation().PointOf(focus)
	// The x offset gets clamped to 0 because the scaled content fits the
	// viewport width exactly; the y coordinate must stay anchored.
	if !almostEqual(before.Y, after.Y) {
		t.Errorf("content point under focus moved: y %v -> %v", before.Y, after.Y)
	}
}

// Zooming in and straight back out around one focus lands back on the
// exact fit transform.
func TestScaleZoomRoundTripRestoresFit(t *testing.T) {
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})
	s.SetZoom(0, geometry.Point{})
	fit := s.Transformation()

	focus := geometry.Point{X: 400, Y: 300}
	s.AddZoom(2.0, focus)
	s.AddZoom(0.5, focus)

	got := s.Transformation()
	if !almostEqual(got.Scale, fit.Scale) {
		t.Errorf("scale after round trip = %v, want fit %v", got.Scale, fit.Scale)
	}
	if !almostEqual(got.Offset.X, fit.Offset.X) || !almostEqual(got.Offset.Y, fit.Offset.Y) {
		t.Errorf("offset after round trip = %v, want %v", got.Offset, fit.Offset)
	}
	if got := s.Zoom(); !almostEqual(got, 0.4) {
		t.Errorf("zoom after round trip = %v, want the fit zoom 0.4", got)
	}
}

func TestScaleOffsetClamping(t *testing.T) {
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})
	s.SetZoom(1, geometry.Point{})

	// scale 2: content 1000x2000 in a 1000x800 viewport.
	xLo, xHi := s.OffsetXLimits()
	if xLo != 0 || xHi != 0 {
		t.Errorf("x offset limits = [%v, %v], want [0, 0]", xLo, xHi)
	}
	yLo, yHi := s.OffsetYLimits()
	if !almostEqual(yLo, -600) || !almostEqual(yHi, 600) {
		t.Errorf("y offset limits = [%v, %v], want [-600, 600]", yLo, yHi)
	}

	s.AddPan(geometry.Point{X: 5000, Y: 5000})
	offset := s.Transformation().Offset
	if offset.X != 0 {
		t.Errorf("x offset escaped clamp: %v", offset.X)
	}
	if !almostEqual(offset.Y, 600) {
		t.Errorf("y offset = %v, want 600", offset.Y)
	}

	s.AddPan(geometry.Point{X: -5000, Y: -5000})
	offset = s.Transformation().Offset
	if !almostEqual(offset.Y, -600) {
		t.Errorf("y offset after backward pan = %v, want -600", offset.Y)
	}
}

func TestScaleSmallContentHasFixedOffset(t *testing.T) {
	s := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 100, Height: 100})
	s.SetZoom(0, geometry.Point{})

	s.AddPan(geometry.Point{X: 300, Y: -300})
	if offset := s.Transformation().Offset; offset != (geometry.Point{}) {
		t.Errorf("content smaller than viewport should pin offset at 0, got %v", offset)
	}
}

func TestScaleApply(t *testing.T) {
	a := newTestScale(geometry.Size{Width: 1000, Height: 800}, geometry.SizeF{Width: 500, Height: 1000})
	a.SetZoom(1, geometry.Point{})
	a.AddPan(geometry.Point{Y: 100})

	b := NewScreenScale()
	b.Apply(a)

	if got, want := b.Transformation(), a.Transformation(); got != want {
		t.Errorf("Apply: transformation = %+v, want %+v", got, want)
	}
	if got, want := b.Zoom(), a.Zoom(); !almostEqual(got, want) {
		t.Errorf("Apply: zoom = %v, want %v", got, want)
	}
}

func TestTransformationRoundTrip(t *testing.T) {
	tr := Transformation{Offset: geometry.Point{X: -40, Y: 25}, Scale: 1.5}
	screen := geometry.Point{X: 320, Y: 200}

	content := tr.PointOf(screen)
	back := offsetOf(content, screen, tr.Scale)
	if !almostEqual(back.X, tr.Offset.X) || !almostEqual(back.Y, tr.Offset.Y) {
		t.Errorf("offsetOf(pointOf(p)) = %v, want %v", back, tr.Offset)
	}
}
