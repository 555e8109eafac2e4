package ui

import (
	"bytes"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"
)

// Common colors used in rendering
var (
	colorWhite     = color.RGBA{255, 255, 255, 255}
	colorGray      = color.RGBA{180, 180, 180, 255}
	colorLightGray = color.RGBA{192, 192, 192, 255}
	colorYellow    = color.RGBA{255, 255, 100, 255}
	colorLightBlue = color.RGBA{200, 200, 255, 255}
	colorGreen     = color.RGBA{100, 255, 100, 255}
	colorOrange    = color.RGBA{255, 200, 100, 255}

	// Background colors for semi-transparent overlays
	bgColorLight  = color.RGBA{0, 0, 0, 128}
	bgColorMedium = color.RGBA{0, 0, 0, 160}
	bgColorDark   = color.RGBA{0, 0, 0, 200}
)

// fontSet bundles the shared font source with the sizes the overlays
// draw with.
type fontSet struct {
	source *text.GoTextFaceSource
	small  *text.GoTextFace
	normal *text.GoTextFace
	large  *text.GoTextFace
}

func newFontSet() *fontSet {
	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Fatal(err)
	}
	return &fontSet{
		source: s,
		small:  &text.GoTextFace{Source: s, Size: 14},
		normal: &text.GoTextFace{Source: s, Size: 18},
		large:  &text.GoTextFace{Source: s, Size: 24},
	}
}

// DrawText draws text with specified position and color
func DrawText(screen *ebiten.Image, textString string, font *text.GoTextFace, x, y float64, textColor color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, textString, font, op)
}

// DrawFilledRect draws filled rectangles with float64 coordinates
func DrawFilledRect(screen *ebiten.Image, x, y, w, h float64, bgColor color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), bgColor, false)
}

// createErrorImage builds a placeholder texture shown when a page fails
// to load.
func createErrorImage(fontSource *text.GoTextFaceSource, width, height int, title, errorMsg string) *ebiten.Image {
	if width <= 0 || height <= 0 {
		width, height = 400, 300
	}

	errorImg := ebiten.NewImage(width, height)
	errorImg.Fill(color.RGBA{120, 30, 30, 255})

	// White border
	DrawFilledRect(errorImg, 0, 0, float64(width), 3, colorWhite)
	DrawFilledRect(errorImg, 0, float64(height-3), float64(width), 3, colorWhite)
	DrawFilledRect(errorImg, 0, 0, 3, float64(height), colorWhite)
	DrawFilledRect(errorImg, float64(width-3), 0, 3, float64(height), colorWhite)

	errorFont := &text.GoTextFace{Source: fontSource, Size: 20.0}

	reasonText := "Reason: " + errorMsg
	maxChars := (width - 20) / 10
	if len(title) > maxChars {
		title = title[:maxChars-3] + "..."
	}
	if len(reasonText) > maxChars {
		reasonText = reasonText[:maxChars-3] + "..."
	}

	DrawText(errorImg, "ERROR", errorFont, 10, 30, colorWhite)
	DrawText(errorImg, title, errorFont, 10, 60, colorWhite)
	DrawText(errorImg, reasonText, errorFont, 10, 90, colorWhite)

	return errorImg
}
