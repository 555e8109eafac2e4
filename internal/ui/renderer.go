package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"komavi/internal/geometry"
	"komavi/internal/reader"
)

var backgroundColor = color.RGBA{24, 24, 24, 255}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	if a.mode == ModePaged {
		a.drawPaged(screen)
	} else {
		a.drawContinuous(screen)
	}

	if a.showInfo {
		a.drawInfo(screen)
	}
	if a.showHelp {
		a.drawHelp(screen)
	}
	if a.pageInputActive {
		a.drawPageInput(screen)
	}
	if message := a.notices.Current(); message != "" {
		a.drawNotice(screen, message)
	}

	a.textures.Sweep()
}

// drawPaged renders the current spread with its zoom/pan transformation
// applied, pages side by side in reading order.
func (a *App) drawPaged(screen *ebiten.Image) {
	if transition := a.paged.TransitionPage.Get(); transition != nil {
		a.drawTransition(screen, transition)
		return
	}

	state := a.paged.CurrentSpread.Get()
	if len(state.Pages) == 0 || state.Scale == nil {
		a.drawCenteredText(screen, "Loading...", a.fonts.large, colorGray)
		return
	}

	t := state.Scale.Transformation()
	target := state.Scale.TargetSize()
	targetW := target.Width * t.Scale
	targetH := target.Height * t.Scale

	originX := float64(a.width)/2 + t.Offset.X - targetW/2
	originY := float64(a.height)/2 + t.Offset.Y - targetH/2

	container := a.paged.ContainerSize.Get()
	maxPage := geometry.Size{Width: container.Width / len(state.Pages), Height: container.Height}

	pages := state.Pages
	if a.paged.ReadingDirection.Get() == reader.RightToLeft {
		pages = make([]reader.SpreadPage, len(state.Pages))
		for i, p := range state.Pages {
			pages[len(pages)-1-i] = p
		}
	}

	x := originX
	for _, page := range pages {
		size := page.Metadata.ContentSizeForArea(maxPage)
		w := float64(size.Width) * t.Scale
		h := float64(size.Height) * t.Scale
		y := originY + (targetH-h)/2

		a.drawPageBox(screen, page, x, y, w, h)
		x += w
	}
}

// drawPageBox draws one page's texture scaled into the given box, or a
// placeholder while loading / after a failed load.
func (a *App) drawPageBox(screen *ebiten.Image, page reader.SpreadPage, x, y, w, h float64) {
	if w < 1 || h < 1 {
		return
	}
	if page.Err != nil {
		tex := a.textures.Error(page.Metadata.ID(), pageTitle(page.Metadata), page.Err.Error())
		drawScaled(screen, tex, x, y, w, h)
		return
	}
	if page.Image == nil {
		DrawFilledRect(screen, x, y, w, h, color.RGBA{40, 40, 40, 255})
		return
	}
	tex := a.textures.Get(page.Image)
	if tex == nil {
		DrawFilledRect(screen, x, y, w, h, color.RGBA{40, 40, 40, 255})
		return
	}
	drawScaled(screen, tex, x, y, w, h)
}

func pageTitle(page reader.PageMetadata) string {
	return fmt.Sprintf("Page %d", page.Number)
}

func drawScaled(screen *ebiten.Image, tex *ebiten.Image, x, y, w, h float64) {
	bounds := tex.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear
	op.GeoM.Scale(w/float64(bounds.Dx()), h/float64(bounds.Dy()))
	op.GeoM.Translate(x, y)
	screen.DrawImage(tex, op)
}

func (a *App) drawTransition(screen *ebiten.Image, transition *reader.TransitionPage) {
	var lines []string
	if transition.AtStart {
		lines = append(lines, "Beginning of "+transition.CurrentBook.Title)
		if transition.OtherBook != nil {
			lines = append(lines, "Previous: "+transition.OtherBook.Title)
		} else {
			lines = append(lines, "You're at the beginning of the series")
		}
	} else {
		lines = append(lines, "End of "+transition.CurrentBook.Title)
		if transition.OtherBook != nil {
			lines = append(lines, "Next: "+transition.OtherBook.Title)
		} else {
			lines = append(lines, "You're at the end of the series")
		}
	}

	y := float64(a.height)/2 - 30
	for i, line := range lines {
		font := a.fonts.large
		lineColor := colorWhite
		if i > 0 {
			font = a.fonts.normal
			lineColor = colorLightGray
		}
		width := text.Advance(line, font)
		DrawText(screen, line, font, (float64(a.width)-width)/2, y, lineColor)
		y += 36
	}
}

// drawContinuous renders the visible slice of the scroll strip.
func (a *App) drawContinuous(screen *ebiten.Image) {
	items := a.strip.renderSlice()
	if len(items) == 0 {
		a.drawCenteredText(screen, "Loading...", a.fonts.large, colorGray)
		return
	}

	vertical := a.continuous.ReadingDirection.Get() == reader.TopToBottom
	rtl := a.continuous.ReadingDirection.Get() == reader.ContinuousRightToLeft

	for _, item := range items {
		if item.separator {
			a.drawSeparator(screen, item, vertical, rtl)
			continue
		}

		size := a.continuous.GuessPageDisplaySize(item.page)
		w, h := float64(size.Width), float64(size.Height)
		var x, y float64
		if vertical {
			x = (float64(a.width) - w) / 2
			y = item.start
		} else {
			y = (float64(a.height) - h) / 2
			if rtl {
				x = float64(a.width) - item.start - w
			} else {
				x = item.start
			}
		}

		result, loaded := a.strip.ImageFor(item.page.ID())
		switch {
		case !loaded:
			DrawFilledRect(screen, x, y, w, h, color.RGBA{40, 40, 40, 255})
		case result.Err != nil:
			tex := a.textures.Error(item.page.ID(), pageTitle(item.page), result.Err.Error())
			drawScaled(screen, tex, x, y, w, h)
		case result.Image != nil:
			if tex := a.textures.Get(result.Image); tex != nil {
				drawScaled(screen, tex, x, y, w, h)
			} else {
				DrawFilledRect(screen, x, y, w, h, color.RGBA{40, 40, 40, 255})
			}
		}
	}
}

func (a *App) drawSeparator(screen *ebiten.Image, item stripItem, vertical, rtl bool) {
	if vertical {
		DrawFilledRect(screen, 0, item.start, float64(a.width), item.extent, bgColorLight)
	} else {
		x := item.start
		if rtl {
			x = float64(a.width) - item.start - item.extent
		}
		DrawFilledRect(screen, x, 0, item.extent, float64(a.height), bgColorLight)
	}
	if item.bookTitle == "" || !vertical {
		return
	}
	width := text.Advance(item.bookTitle, a.fonts.normal)
	DrawText(screen, item.bookTitle, a.fonts.normal,
		(float64(a.width)-width)/2, item.start+item.extent/2-9, colorLightGray)
}

func (a *App) drawCenteredText(screen *ebiten.Image, message string, font *text.GoTextFace, textColor color.RGBA) {
	width := text.Advance(message, font)
	DrawText(screen, message, font, (float64(a.width)-width)/2, float64(a.height)/2-12, textColor)
}

// drawInfo renders the status block in the bottom-right corner.
func (a *App) drawInfo(screen *ebiten.Image) {
	lines := a.infoLines()
	if len(lines) == 0 {
		return
	}

	const lineHeight = 20.0
	const padding = 10.0
	var maxWidth float64
	for _, line := range lines {
		if w := text.Advance(line, a.fonts.small); w > maxWidth {
			maxWidth = w
		}
	}
	boxW := maxWidth + padding*2
	boxH := float64(len(lines))*lineHeight + padding*2
	boxX := float64(a.width) - boxW - 10
	boxY := float64(a.height) - boxH - 10

	DrawFilledRect(screen, boxX, boxY, boxW, boxH, bgColorMedium)
	y := boxY + padding
	for _, line := range lines {
		DrawText(screen, line, a.fonts.small, boxX+padding, y, colorWhite)
		y += lineHeight
	}
}

func (a *App) infoLines() []string {
	state := a.session.BooksState.Get()
	if state == nil {
		return []string{"No book loaded"}
	}
	book := state.CurrentBook
	page := a.session.ReadProgressPage.Get()

	lines := []string{
		book.Title,
		fmt.Sprintf("Page %d / %d", page, book.PageCount),
		"Mode: " + a.mode.String(),
	}
	if a.mode == ModePaged {
		lines = append(lines,
			"Layout: "+a.paged.Layout.Get().String(),
			"Scale: "+a.paged.ScaleType.Get().String(),
			"Direction: "+a.paged.ReadingDirection.Get().String(),
		)
		if scale := a.paged.CurrentSpread.Get().Scale; scale != nil {
			zoom := scale.Transformation().Scale / scale.ScaleFor100PercentZoom()
			lines = append(lines, fmt.Sprintf("Zoom: %.0f%%", zoom*100))
		}
	} else {
		lines = append(lines,
			"Direction: "+a.continuous.ReadingDirection.Get().String(),
			fmt.Sprintf("Side padding: %.0f%%", a.continuous.SidePaddingFraction.Get()*100),
		)
	}
	if a.configStatus.Status != "OK" && a.configStatus.Status != "" {
		lines = append(lines, "Config: "+a.configStatus.Status)
	}
	return lines
}

func (a *App) drawHelp(screen *ebiten.Image) {
	lines := helpLines(a.keys.GetKeybindings())

	const lineHeight = 22.0
	const padding = 20.0
	var maxWidth float64
	for _, line := range lines {
		if w := text.Advance(line, a.fonts.small); w > maxWidth {
			maxWidth = w
		}
	}
	title := "Keybindings"
	boxW := maxWidth + padding*2
	boxH := float64(len(lines)+2)*lineHeight + padding*2
	boxX := (float64(a.width) - boxW) / 2
	boxY := (float64(a.height) - boxH) / 2

	DrawFilledRect(screen, boxX, boxY, boxW, boxH, bgColorDark)
	DrawText(screen, title, a.fonts.normal, boxX+padding, boxY+padding, colorYellow)
	y := boxY + padding + 2*lineHeight
	for _, line := range lines {
		DrawText(screen, line, a.fonts.small, boxX+padding, y, colorWhite)
		y += lineHeight
	}
}

func (a *App) drawPageInput(screen *ebiten.Image) {
	prompt := "Go to page: " + a.pageInputBuffer + "_"
	width := text.Advance(prompt, a.fonts.normal)

	boxW := width + 40
	boxH := 60.0
	boxX := (float64(a.width) - boxW) / 2
	boxY := (float64(a.height) - boxH) / 2

	DrawFilledRect(screen, boxX, boxY, boxW, boxH, bgColorDark)
	DrawText(screen, prompt, a.fonts.normal, boxX+20, boxY+20, colorLightBlue)
}

func (a *App) drawNotice(screen *ebiten.Image, message string) {
	width := text.Advance(message, a.fonts.normal)
	boxW := width + 30
	boxH := 40.0
	boxX := (float64(a.width) - boxW) / 2
	boxY := 30.0

	DrawFilledRect(screen, boxX, boxY, boxW, boxH, bgColorMedium)
	DrawText(screen, message, a.fonts.normal, boxX+15, boxY+10, colorWhite)
}
