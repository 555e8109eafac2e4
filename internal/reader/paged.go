package reader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"komavi/internal/geometry"
)

// resampleDebounce delays zoom-driven re-decodes so a pinch or wheel
// burst issues only one request.
const resampleDebounce = 100 * time.Millisecond

// SpreadState is the displayed spread: its pages (possibly unsized
// while a load is in flight) and the scale state once sized. Scale is
// nil until the load completes.
type SpreadState struct {
	Pages []SpreadPage
	Scale *ScreenScale
}

// TransitionPage is shown when the user steps past either end of the
// current book. A second step in the same direction crosses into the
// sibling book when one exists.
type TransitionPage struct {
	AtStart     bool
	CurrentBook Book
	// OtherBook is the sibling in the step direction, nil at the edge of
	// the series.
	OtherBook *Book
}

// PagedReader is the page-turn reading mode: one spread displayed at a
// time, neighbors prefetched, zoom and pan per spread.
type PagedReader struct {
	session *Session
	loader  *ImageLoader

	PageSpreads        *Value[[]Spread]
	CurrentSpread      *Value[SpreadState]
	CurrentSpreadIndex *Value[int]
	ContainerSize      *Value[geometry.Size]
	TransitionPage     *Value[*TransitionPage]

	Layout           *Value[PageLayout]
	LayoutOffset     *Value[bool]
	ScaleType        *Value[ScaleType]
	ReadingDirection *Value[ReadingDirection]
	StretchToFit     *Value[bool]
	AllowUpsample    *Value[bool]

	// generation invalidates stale spread loads: only the most recent
	// load may publish CurrentSpread.
	generation atomic.Int64

	// preload is how many neighboring spreads get prefetched in each
	// direction around the displayed one.
	preload atomic.Int64

	resampleMu     sync.Mutex
	resampleCancel context.CancelFunc

	settingsMu sync.Mutex
	settings   Settings

	ctx    context.Context
	cancel context.CancelFunc
}

func NewPagedReader(session *Session, source ImageSource) *PagedReader {
	ctx, cancel := context.WithCancel(context.Background())
	r := &PagedReader{
		session:            session,
		PageSpreads:        NewValue[[]Spread](nil),
		CurrentSpread:      NewValue(SpreadState{}),
		CurrentSpreadIndex: NewValue(0),
		ContainerSize:      NewValue(geometry.Size{}),
		TransitionPage:     NewValue[*TransitionPage](nil),
		Layout:             NewValue(SinglePage),
		LayoutOffset:       NewValue(false),
		ScaleType:          NewValue(ScaleScreen),
		ReadingDirection:   NewValue(LeftToRight),
		StretchToFit:       NewValue(true),
		AllowUpsample:      NewValue(false),
		ctx:                ctx,
		cancel:             cancel,
	}
	r.loader = NewImageLoader(source, r.imageInUse)
	r.preload.Store(1)
	return r
}

// SetPreloadCount changes how many neighboring spreads are prefetched
// in each direction. The job cache grows with the window so prefetches
// cannot evict the displayed spread's job.
func (r *PagedReader) SetPreloadCount(count int) {
	if count < 0 {
		count = 0
	}
	r.preload.Store(int64(count))
	r.loader.Resize(2*count + 2)
}

// Initialize applies persisted settings and starts following the
// session's book state.
func (r *PagedReader) Initialize() {
	settings := r.session.Settings()
	r.settingsMu.Lock()
	r.settings = settings
	r.settingsMu.Unlock()

	r.Layout.Set(settings.PagedLayout)
	r.LayoutOffset.Set(settings.DoublePageOffset)
	r.ScaleType.Set(settings.ScaleType)
	r.ReadingDirection.Set(settings.PagedDirection)
	r.StretchToFit.Set(settings.StretchToFit)
	r.AllowUpsample.Set(settings.AllowUpsample)

	books, cancel := r.session.BooksState.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case state, ok := <-books:
				if !ok {
					return
				}
				if state != nil {
					r.onNewBookLoaded(state)
				}
			case <-r.ctx.Done():
				return
			}
		}
	}()

	if state := r.session.BooksState.Get(); state != nil {
		r.onNewBookLoaded(state)
	}
}

// Stop cancels pending loads and drops the job cache. Safe to call more
// than once.
func (r *PagedReader) Stop() {
	r.cancel()
	r.loader.ClearCache()
}

func (r *PagedReader) imageInUse(id PageID) bool {
	for _, p := range r.CurrentSpread.Get().Pages {
		if p.Image != nil && p.Image.PageID() == id {
			return true
		}
	}
	return false
}

func (r *PagedReader) onNewBookLoaded(state *BookState) {
	spreads := BuildSpreads(state.CurrentBookPages, r.Layout.Get(), r.LayoutOffset.Get())
	r.PageSpreads.Set(spreads)
	if len(spreads) == 0 {
		r.CurrentSpread.Set(SpreadState{})
		r.CurrentSpreadIndex.Set(0)
		return
	}

	index := SpreadIndexOf(spreads, r.session.ReadProgressPage.Get())
	r.CurrentSpread.Set(SpreadState{Pages: unsizedSpreadPages(spreads[index].Pages)})
	r.CurrentSpreadIndex.Set(index)

	if !r.ContainerSize.Get().IsZero() {
		r.loadPage(index)
	}
}

// NextPage steps forward. At the last spread it first shows a book-end
// transition; a further step loads the next book.
func (r *PagedReader) NextPage() {
	index := r.CurrentSpreadIndex.Get()
	transition := r.TransitionPage.Get()
	switch {
	case index < len(r.PageSpreads.Get())-1:
		if transition != nil {
			r.TransitionPage.Set(nil)
		} else {
			r.OnPageChange(index + 1)
		}
	case transition == nil:
		state := r.session.BooksState.Get()
		if state == nil {
			return
		}
		r.TransitionPage.Set(&TransitionPage{
			CurrentBook: state.CurrentBook,
			OtherBook:   state.NextBook,
		})
	case !transition.AtStart && transition.OtherBook != nil:
		go func() {
			r.CurrentSpread.Set(SpreadState{})
			r.TransitionPage.Set(nil)
			if err := r.session.LoadNextBook(r.ctx); err != nil {
				debugLog("failed to load next book: %v", err)
			}
		}()
	}
}

// PreviousPage steps backward, mirroring NextPage at the first spread.
func (r *PagedReader) PreviousPage() {
	index := r.CurrentSpreadIndex.Get()
	transition := r.TransitionPage.Get()
	switch {
	case index != 0:
		if transition != nil {
			r.TransitionPage.Set(nil)
		} else {
			r.OnPageChange(index - 1)
		}
	case transition == nil:
		state := r.session.BooksState.Get()
		if state == nil {
			return
		}
		r.TransitionPage.Set(&TransitionPage{
			AtStart:     true,
			CurrentBook: state.CurrentBook,
			OtherBook:   state.PreviousBook,
		})
	case transition.AtStart && transition.OtherBook != nil:
		go func() {
			r.CurrentSpread.Set(SpreadState{})
			r.TransitionPage.Set(nil)
			if err := r.session.LoadPreviousBook(r.ctx); err != nil {
				debugLog("failed to load previous book: %v", err)
			}
		}()
	}
}

func (r *PagedReader) OnPageChange(index int) {
	if r.CurrentSpreadIndex.Get() == index {
		return
	}
	r.loadPage(index)
}

func (r *PagedReader) MoveToLastPage() {
	last := len(r.PageSpreads.Get()) - 1
	if last < 0 || r.CurrentSpreadIndex.Get() == last {
		return
	}
	r.loadPage(last)
}

func (r *PagedReader) loadPage(index int) {
	spreads := r.PageSpreads.Get()
	if index < 0 || index >= len(spreads) {
		return
	}
	if index != r.CurrentSpreadIndex.Get() {
		pages := spreads[index].Pages
		r.session.OnProgressChange(pages[len(pages)-1].Number)
		r.CurrentSpreadIndex.Set(index)
	}

	gen := r.generation.Add(1)
	go r.loadSpread(gen, index)
}

func (r *PagedReader) loadSpread(gen int64, index int) {
	container := r.ContainerSize.Get()
	spreads := r.PageSpreads.Get()
	if container.IsZero() || index >= len(spreads) {
		return
	}
	meta := spreads[index].Pages
	layout := r.Layout.Get()
	scaleType := r.ScaleType.Get()
	allowUpsample := r.AllowUpsample.Get()

	job := r.loader.LaunchLoadJob(r.ctx, meta, container, layout, scaleType, allowUpsample)

	preload := int(r.preload.Load())
	for i := index - preload; i <= index+preload; i++ {
		if i == index || i < 0 || i >= len(spreads) {
			continue
		}
		r.loader.LaunchLoadJob(r.ctx, spreads[i].Pages, container, layout, scaleType, allowUpsample)
	}

	// Show the unsized page list right away while the load runs.
	select {
	case <-job.Done():
	default:
		if r.generation.Load() == gen {
			r.CurrentSpread.Set(SpreadState{Pages: unsizedSpreadPages(meta)})
			r.CurrentSpreadIndex.Set(index)
			r.TransitionPage.Set(nil)
		}
	}

	loaded, err := job.Await(r.ctx)
	if err != nil {
		return
	}
	if r.generation.Load() != gen {
		// A newer navigation superseded this load.
		return
	}

	loadedMeta := spreadMetadata(loaded)
	if anyUnsized(meta) {
		r.PageSpreads.Update(func(current []Spread) []Spread {
			if index >= len(current) {
				return current
			}
			updated := make([]Spread, len(current))
			copy(updated, current)
			updated[index] = Spread{Pages: loadedMeta}
			return updated
		})
	}

	scale := spreadScaleFor(loadedMeta, container, maxPageSize(loadedMeta, container), scaleType)
	r.snapToReadingEdge(scale)

	r.CurrentSpread.Set(SpreadState{Pages: loaded, Scale: scale})
	r.CurrentSpreadIndex.Set(index)
	r.TransitionPage.Set(nil)
}

// snapToReadingEdge pans a freshly scaled spread to its starting edge:
// top-left for left-to-right, top-right for right-to-left.
func (r *PagedReader) snapToReadingEdge(scale *ScreenScale) {
	xLo, xHi := scale.OffsetXLimits()
	_, yHi := scale.OffsetYLimits()
	if r.ReadingDirection.Get() == RightToLeft {
		scale.AddPan(geometry.Point{X: xLo, Y: yHi})
	} else {
		scale.AddPan(geometry.Point{X: xHi, Y: yHi})
	}
}

func (r *PagedReader) OnContentSizeChange(areaSize geometry.Size) {
	if r.ContainerSize.Get() == areaSize {
		return
	}
	r.ContainerSize.Set(areaSize)
	debugLog("container size change: %dx%d", areaSize.Width, areaSize.Height)
	r.loadPage(r.CurrentSpreadIndex.Get())
}

// AddZoom scales the current spread around focus and schedules a
// debounced re-decode at the new zoom.
func (r *PagedReader) AddZoom(multiplier float64, focus geometry.Point) {
	scale := r.CurrentSpread.Get().Scale
	if scale == nil {
		return
	}
	if multiplier > 1 && !scale.CanZoomIn() {
		return
	}
	if multiplier < 1 && !scale.CanZoomOut() {
		return
	}
	scale.AddZoom(multiplier, focus)
	r.resamplePages()
}

func (r *PagedReader) AddPan(pan geometry.Point) {
	scale := r.CurrentSpread.Get().Scale
	if scale == nil {
		return
	}
	scale.AddPan(pan)
}

// resamplePages re-decodes the displayed spread at the current zoom
// after a short debounce, cancelling any still-pending resample.
func (r *PagedReader) resamplePages() {
	container := r.ContainerSize.Get()
	current := r.CurrentSpread.Get()
	if container.IsZero() || current.Scale == nil {
		return
	}
	zoomFactor := current.Scale.Transformation().Scale

	r.resampleMu.Lock()
	if r.resampleCancel != nil {
		r.resampleCancel()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.resampleCancel = cancel
	r.resampleMu.Unlock()

	go func() {
		defer cancel()
		select {
		case <-time.After(resampleDebounce):
		case <-ctx.Done():
			return
		}

		pages := spreadMetadata(r.CurrentSpread.Get().Pages)
		resampled := r.loader.LoadScaledPages(ctx, pages, container, zoomFactor, r.ScaleType.Get(), r.AllowUpsample.Get())
		if ctx.Err() != nil {
			return
		}
		r.CurrentSpread.Update(func(s SpreadState) SpreadState {
			s.Pages = resampled
			return s
		})
	}()
}

// OnLayoutChange rebuilds spreads for the new layout and reloads the
// spread containing the page that was being viewed.
func (r *PagedReader) OnLayoutChange(layout PageLayout) {
	r.Layout.Set(layout)
	r.saveSettings(func(s *Settings) { s.PagedLayout = layout })
	r.session.Notify(fmt.Sprintf("Changed layout to %s", layout))
	r.rebuildSpreads(layout)
}

func (r *PagedReader) OnLayoutCycle() {
	r.OnLayoutChange(r.Layout.Get().Next())
}

func (r *PagedReader) OnLayoutOffsetChange(offset bool) {
	layout := r.Layout.Get()
	if layout != DoublePages {
		return
	}
	r.LayoutOffset.Set(offset)
	r.saveSettings(func(s *Settings) { s.DoublePageOffset = offset })
	r.session.Notify("Changed double page offset")
	r.rebuildSpreads(layout)
}

func (r *PagedReader) rebuildSpreads(layout PageLayout) {
	state := r.session.BooksState.Get()
	if state == nil {
		return
	}
	spreads := BuildSpreads(state.CurrentBookPages, layout, r.LayoutOffset.Get())
	r.PageSpreads.Set(spreads)

	current := r.CurrentSpread.Get().Pages
	if len(current) == 0 {
		return
	}
	r.loadPage(SpreadIndexOf(spreads, current[0].Metadata.Number))
}

func (r *PagedReader) OnScaleTypeChange(scaleType ScaleType) {
	r.ScaleType.Set(scaleType)
	r.saveSettings(func(s *Settings) { s.ScaleType = scaleType })
	r.session.Notify(fmt.Sprintf("Changed scale type to %s", scaleType))

	current := r.CurrentSpread.Get().Pages
	if len(current) == 0 {
		return
	}
	r.loadPage(SpreadIndexOf(r.PageSpreads.Get(), current[0].Metadata.Number))
}

func (r *PagedReader) OnScaleTypeCycle() {
	r.OnScaleTypeChange(r.ScaleType.Get().Next())
}

func (r *PagedReader) OnReadingDirectionChange(direction ReadingDirection) {
	r.ReadingDirection.Set(direction)
	r.saveSettings(func(s *Settings) { s.PagedDirection = direction })
	r.session.Notify(fmt.Sprintf("Changed reading direction to %s", direction))
}

func (r *PagedReader) OnStretchToFitChange(stretch bool) {
	r.StretchToFit.Set(stretch)
	r.saveSettings(func(s *Settings) { s.StretchToFit = stretch })
}

func (r *PagedReader) OnAllowUpsampleChange(allow bool) {
	r.AllowUpsample.Set(allow)
	r.saveSettings(func(s *Settings) { s.AllowUpsample = allow })
	r.loadPage(r.CurrentSpreadIndex.Get())
}

func (r *PagedReader) saveSettings(mutate func(*Settings)) {
	r.settingsMu.Lock()
	mutate(&r.settings)
	settings := r.settings
	r.settingsMu.Unlock()
	r.session.SaveSettings(settings)
}

func unsizedSpreadPages(meta []PageMetadata) []SpreadPage {
	pages := make([]SpreadPage, 0, len(meta))
	for _, m := range meta {
		pages = append(pages, SpreadPage{Metadata: m})
	}
	return pages
}

func spreadMetadata(pages []SpreadPage) []PageMetadata {
	meta := make([]PageMetadata, 0, len(pages))
	for _, p := range pages {
		meta = append(meta, p.Metadata)
	}
	return meta
}

func anyUnsized(pages []PageMetadata) bool {
	for _, p := range pages {
		if p.Size == nil {
			return true
		}
	}
	return false
}
