package ui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"komavi/internal/config"
	"komavi/internal/geometry"
	"komavi/internal/komf"
	"komavi/internal/reader"
)

// Mode is the active reading mode.
type Mode int

const (
	ModePaged Mode = iota
	ModeContinuous
)

func (m Mode) String() string {
	if m == ModeContinuous {
		return "continuous"
	}
	return "paged"
}

const (
	wheelScrollStep = 64.0
	keyScrollStep   = 80.0

	// resizeSaveDelay debounces window-size persistence during a drag
	// resize.
	resizeSaveDelay = 30 // frames
)

// Options wires the app to the reader core and services.
type Options struct {
	Store        *config.Store
	Session      *reader.Session
	Paged        *reader.PagedReader
	Continuous   *reader.ContinuousReader
	Notices      *Notices
	Komf         *komf.Client
	KomfLibrary  string
	ConfigStatus config.ConfigLoadResult
}

// App is the ebiten game: it routes input to the reader core and draws
// the active mode plus overlays.
type App struct {
	store      *config.Store
	session    *reader.Session
	paged      *reader.PagedReader
	continuous *reader.ContinuousReader
	strip      *StripList
	notices    *Notices
	komf       *komf.Client
	komfLib    string

	configStatus config.ConfigLoadResult

	fonts    *fontSet
	textures *textureCache
	keys     *KeybindingManager

	mode   Mode
	width  int
	height int

	showInfo bool
	showHelp bool

	pageInputActive bool
	pageInputBuffer string

	dragging   bool
	dragX      int
	dragY      int
	resizeWait int

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	fonts := newFontSet()
	a := &App{
		store:        opts.Store,
		session:      opts.Session,
		paged:        opts.Paged,
		continuous:   opts.Continuous,
		notices:      opts.Notices,
		komf:         opts.Komf,
		komfLib:      opts.KomfLibrary,
		configStatus: opts.ConfigStatus,
		fonts:        fonts,
		textures:     newTextureCache(fonts),
		keys:         NewKeybindingManager(opts.Store.Config().Keybindings),
		ctx:          ctx,
		cancel:       cancel,
	}
	a.strip = NewStripList(opts.Continuous)
	opts.Continuous.AttachScrollController(a.strip)

	if len(opts.ConfigStatus.Warnings) > 0 {
		a.notices.Notify(opts.ConfigStatus.Warnings[0])
	}
	return a
}

// Shutdown stops the readers and releases GPU textures.
func (a *App) Shutdown() {
	a.cancel()
	a.strip.Stop()
	a.paged.Stop()
	a.continuous.Stop()
	a.textures.Clear()
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != a.width || outsideHeight != a.height {
		a.width = outsideWidth
		a.height = outsideHeight
		size := geometry.Size{Width: outsideWidth, Height: outsideHeight}
		a.paged.OnContentSizeChange(size)
		a.continuous.OnAreaSizeChange(size)
		a.strip.SetViewport(size)
		a.resizeWait = resizeSaveDelay
	}
	return outsideWidth, outsideHeight
}

func (a *App) Update() error {
	if a.resizeWait > 0 {
		a.resizeWait--
		if a.resizeWait == 0 && !ebiten.IsFullscreen() {
			a.store.UpdateWindowSize(a.width, a.height)
		}
	}

	if a.pageInputActive {
		a.updatePageInput()
	} else {
		if quit := a.updateActions(); quit {
			return ebiten.Termination
		}
		a.updateMouse()
	}

	if a.mode == ModeContinuous {
		a.strip.Step()
	}
	return nil
}

// updateActions dispatches keybinding actions. Returns true on quit.
func (a *App) updateActions() bool {
	k := a.keys
	switch {
	case k.CheckAction("quit"):
		return true
	case k.CheckAction("next_page"):
		if a.mode == ModePaged {
			a.paged.NextPage()
		} else {
			a.continuous.ScrollScreenForward()
		}
	case k.CheckAction("previous_page"):
		if a.mode == ModePaged {
			a.paged.PreviousPage()
		} else {
			a.continuous.ScrollScreenBackward()
		}
	case k.CheckAction("first_page"):
		if a.mode == ModePaged {
			a.paged.OnPageChange(0)
		} else {
			a.continuous.ScrollToBookPage(1)
		}
	case k.CheckAction("last_page"):
		if a.mode == ModePaged {
			a.paged.MoveToLastPage()
		} else if state := a.session.BooksState.Get(); state != nil {
			a.continuous.ScrollToBookPage(state.CurrentBook.PageCount)
		}
	case k.CheckAction("scroll_forward"):
		if a.mode == ModePaged {
			a.paged.AddPan(geometry.Point{Y: -keyScrollStep})
		} else {
			a.strip.AnimateScrollBy(keyScrollStep)
		}
	case k.CheckAction("scroll_backward"):
		if a.mode == ModePaged {
			a.paged.AddPan(geometry.Point{Y: keyScrollStep})
		} else {
			a.strip.AnimateScrollBy(-keyScrollStep)
		}
	case k.CheckAction("toggle_mode"):
		a.toggleMode()
	case k.CheckAction("cycle_layout"):
		a.paged.OnLayoutCycle()
	case k.CheckAction("toggle_offset"):
		a.paged.OnLayoutOffsetChange(!a.paged.LayoutOffset.Get())
	case k.CheckAction("cycle_scale_type"):
		a.paged.OnScaleTypeCycle()
	case k.CheckAction("toggle_direction"):
		a.toggleDirection()
	case k.CheckAction("toggle_stretch"):
		if a.mode == ModePaged {
			a.paged.OnStretchToFitChange(!a.paged.StretchToFit.Get())
		} else {
			a.continuous.OnStretchToFitChange(!a.continuous.StretchToFit.Get())
		}
	case k.CheckAction("toggle_upsample"):
		a.paged.OnAllowUpsampleChange(!a.paged.AllowUpsample.Get())
	case k.CheckAction("zoom_in"):
		a.zoom(1.25)
	case k.CheckAction("zoom_out"):
		a.zoom(0.8)
	case k.CheckAction("zoom_reset"):
		a.zoomReset()
	case k.CheckAction("page_jump"):
		a.pageInputActive = true
		a.pageInputBuffer = ""
	case k.CheckAction("toggle_fullscreen"):
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	case k.CheckAction("toggle_info"):
		a.showInfo = !a.showInfo
	case k.CheckAction("toggle_help"):
		a.showHelp = !a.showHelp
	case k.CheckAction("match_metadata"):
		a.matchMetadata()
	case k.CheckAction("reset_metadata"):
		a.resetMetadata()
	}
	return false
}

func (a *App) toggleMode() {
	page := a.session.ReadProgressPage.Get()
	if a.mode == ModePaged {
		a.mode = ModeContinuous
		a.continuous.ScrollToBookPage(page)
	} else {
		a.mode = ModePaged
		index := reader.SpreadIndexOf(a.paged.PageSpreads.Get(), page)
		if index >= 0 {
			a.paged.OnPageChange(index)
		}
	}
	a.session.Notify(fmt.Sprintf("Switched to %s mode", a.mode))
}

func (a *App) toggleDirection() {
	if a.mode == ModePaged {
		direction := reader.LeftToRight
		if a.paged.ReadingDirection.Get() == reader.LeftToRight {
			direction = reader.RightToLeft
		}
		a.paged.OnReadingDirectionChange(direction)
		return
	}

	var next reader.ContinuousDirection
	switch a.continuous.ReadingDirection.Get() {
	case reader.TopToBottom:
		next = reader.ContinuousLeftToRight
	case reader.ContinuousLeftToRight:
		next = reader.ContinuousRightToLeft
	default:
		next = reader.TopToBottom
	}
	a.continuous.OnReadingDirectionChange(next)
	a.session.Notify(fmt.Sprintf("Changed scroll direction to %s", next))
}

// zoom zooms the paged spread around the viewport center. Continuous
// mode has no free zoom; the keys adjust side padding instead.
func (a *App) zoom(multiplier float64) {
	if a.mode == ModePaged {
		a.paged.AddZoom(multiplier, a.viewportCenter())
		return
	}
	fraction := a.continuous.SidePaddingFraction.Get()
	if multiplier > 1 {
		fraction -= 0.05
	} else {
		fraction += 0.05
	}
	a.continuous.OnSidePaddingChange(geometry.Clamp(fraction, 0, 0.4))
}

func (a *App) zoomReset() {
	if a.mode != ModePaged {
		a.continuous.OnSidePaddingChange(a.store.Config().SidePaddingFraction)
		return
	}
	if scale := a.paged.CurrentSpread.Get().Scale; scale != nil {
		scale.SetZoom(0, a.viewportCenter())
	}
}

func (a *App) viewportCenter() geometry.Point {
	return geometry.Point{X: float64(a.width) / 2, Y: float64(a.height) / 2}
}

func (a *App) updateMouse() {
	wheelX, wheelY := ebiten.Wheel()
	if wheelX != 0 || wheelY != 0 {
		if a.mode == ModePaged {
			if ebiten.IsKeyPressed(ebiten.KeyControl) {
				x, y := ebiten.CursorPosition()
				multiplier := 1.1
				if wheelY < 0 {
					multiplier = 1 / 1.1
				}
				a.paged.AddZoom(multiplier, geometry.Point{X: float64(x), Y: float64(y)})
			} else if wheelY < 0 {
				a.paged.NextPage()
			} else if wheelY > 0 {
				a.paged.PreviousPage()
			}
		} else {
			a.strip.AnimateScrollBy(-wheelY * wheelScrollStep)
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		a.dragging = true
		a.dragX, a.dragY = ebiten.CursorPosition()
	}
	if a.dragging {
		if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			a.dragging = false
			return
		}
		x, y := ebiten.CursorPosition()
		dx, dy := float64(x-a.dragX), float64(y-a.dragY)
		a.dragX, a.dragY = x, y
		if dx == 0 && dy == 0 {
			return
		}
		if a.mode == ModePaged {
			a.paged.AddPan(geometry.Point{X: dx, Y: dy})
			return
		}
		switch a.continuous.ReadingDirection.Get() {
		case reader.TopToBottom:
			a.strip.AnimateScrollBy(-dy)
		case reader.ContinuousRightToLeft:
			// Later pages sit further left, so a rightward drag advances.
			a.strip.AnimateScrollBy(dx)
		default:
			a.strip.AnimateScrollBy(-dx)
		}
	}
}

var digitKeys = map[ebiten.Key]string{
	ebiten.Key0: "0", ebiten.Key1: "1", ebiten.Key2: "2", ebiten.Key3: "3",
	ebiten.Key4: "4", ebiten.Key5: "5", ebiten.Key6: "6", ebiten.Key7: "7",
	ebiten.Key8: "8", ebiten.Key9: "9",
	ebiten.KeyNumpad0: "0", ebiten.KeyNumpad1: "1", ebiten.KeyNumpad2: "2",
	ebiten.KeyNumpad3: "3", ebiten.KeyNumpad4: "4", ebiten.KeyNumpad5: "5",
	ebiten.KeyNumpad6: "6", ebiten.KeyNumpad7: "7", ebiten.KeyNumpad8: "8",
	ebiten.KeyNumpad9: "9",
}

func (a *App) updatePageInput() {
	for key, digit := range digitKeys {
		if inpututil.IsKeyJustPressed(key) && len(a.pageInputBuffer) < 5 {
			a.pageInputBuffer += digit
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(a.pageInputBuffer) > 0 {
		a.pageInputBuffer = a.pageInputBuffer[:len(a.pageInputBuffer)-1]
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.pageInputActive = false
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		a.pageInputActive = false
		page, err := strconv.Atoi(a.pageInputBuffer)
		if err != nil || page < 1 {
			return
		}
		a.jumpToPage(page)
	}
}

func (a *App) jumpToPage(page int) {
	state := a.session.BooksState.Get()
	if state == nil {
		return
	}
	if page > state.CurrentBook.PageCount {
		page = state.CurrentBook.PageCount
	}
	if a.mode == ModePaged {
		index := reader.SpreadIndexOf(a.paged.PageSpreads.Get(), page)
		if index >= 0 {
			a.paged.OnPageChange(index)
		}
	} else {
		a.continuous.ScrollToBookPage(page)
	}
}

// matchMetadata triggers a komf auto-match for the current series.
func (a *App) matchMetadata() {
	if a.komf == nil {
		a.notices.Notify("Komf is not configured")
		return
	}
	state := a.session.BooksState.Get()
	if state == nil {
		return
	}
	series := state.CurrentBook.SeriesID
	title := state.CurrentBook.Title

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		defer cancel()
		if err := a.komf.MatchSeries(ctx, a.komfLib, series); err != nil {
			a.notices.Notify(fmt.Sprintf("Metadata match failed: %v", err))
			return
		}
		a.notices.Notify(fmt.Sprintf("Metadata match started for %s", title))
	}()
}

// resetMetadata clears komf-applied metadata for the current series.
func (a *App) resetMetadata() {
	if a.komf == nil {
		a.notices.Notify("Komf is not configured")
		return
	}
	state := a.session.BooksState.Get()
	if state == nil {
		return
	}
	series := state.CurrentBook.SeriesID
	title := state.CurrentBook.Title

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		defer cancel()
		if err := a.komf.ResetSeries(ctx, a.komfLib, series); err != nil {
			a.notices.Notify(fmt.Sprintf("Metadata reset failed: %v", err))
			return
		}
		a.notices.Notify(fmt.Sprintf("Metadata reset for %s", title))
	}()
}
