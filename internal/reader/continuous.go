package reader

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"komavi/internal/geometry"
)

const (
	// continuousImageCacheSize bounds decoded page images kept around the
	// scroll position.
	continuousImageCacheSize = 10

	// prependPageLimit caps how many pages can be spliced in front of the
	// scroll list without the visible position jumping.
	prependPageLimit = 100

	visibleImagesDebounce = 100 * time.Millisecond
)

// BookPagesInterval is one book's identity plus its (possibly partial)
// page list within the sliding window.
type BookPagesInterval struct {
	Book  Book
	Pages []PageMetadata
}

// ListItem is one entry of the UI's virtualized scroll list: a page or
// a book-boundary separator, with its leading-edge offset in viewport
// pixels.
type ListItem struct {
	Page      PageMetadata
	Separator bool
	Offset    int
}

// ScrollController is the UI's scroll list as seen by the continuous
// reader. Implementations must be safe to call from any goroutine.
type ScrollController interface {
	ScrollToItem(index int)
	AnimateScrollBy(amount float64)
	CanScrollForward() bool
	CanScrollBackward() bool
	FirstVisibleItemOffset() int
	VisibleItems() []ListItem
}

// NopScrollController is used until a real list attaches.
type NopScrollController struct{}

func (NopScrollController) ScrollToItem(int)             {}
func (NopScrollController) AnimateScrollBy(float64)      {}
func (NopScrollController) CanScrollForward() bool       { return false }
func (NopScrollController) CanScrollBackward() bool      { return false }
func (NopScrollController) FirstVisibleItemOffset() int  { return 0 }
func (NopScrollController) VisibleItems() []ListItem     { return nil }

// imageLoadJob is one in-flight or completed page image load.
type imageLoadJob struct {
	done      chan struct{}
	result    ImageResult
	cancelled atomic.Bool
}

func (j *imageLoadJob) await(ctx context.Context) ImageResult {
	select {
	case <-j.done:
		return j.result
	case <-ctx.Done():
		return ImageResult{Err: ctx.Err()}
	}
}

// ContinuousReader is the scrolling reading mode: a virtualized list of
// pages across a sliding window of up to three books, with
// visible-region-driven partial decodes.
type ContinuousReader struct {
	session *Session
	source  ImageSource
	scale   *ScreenScale

	ReadingDirection    *Value[ContinuousDirection]
	SidePaddingFraction *Value[float64]
	SidePaddingPx       *Value[int]
	PageSpacing         *Value[int]
	StretchToFit        *Value[bool]

	PageIntervals        *Value[[]BookPagesInterval]
	currentIntervalIndex *Value[int]

	scrollMu sync.Mutex
	scroll   ScrollController

	imagesMu    sync.Mutex
	imagesInUse map[PageID]ReaderImage
	imageCache  *lru.Cache[PageID, *imageLoadJob]

	// loadSem limits decoding to one page at a time.
	loadSem chan struct{}

	visibleTrigger chan struct{}

	// bookShift holds off repeat sibling loads while one is in flight.
	bookShift atomic.Bool

	settingsMu sync.Mutex
	settings   Settings

	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewContinuousReader(session *Session, source ImageSource, scale *ScreenScale) *ContinuousReader {
	ctx, cancel := context.WithCancel(context.Background())
	r := &ContinuousReader{
		session:              session,
		source:               source,
		scale:                scale,
		ReadingDirection:     NewValue(TopToBottom),
		SidePaddingFraction:  NewValue(0.3),
		SidePaddingPx:        NewValue(0),
		PageSpacing:          NewValue(0),
		StretchToFit:         NewValue(true),
		PageIntervals:        NewValue[[]BookPagesInterval](nil),
		currentIntervalIndex: NewValue(0),
		scroll:               NopScrollController{},
		imagesInUse:          make(map[PageID]ReaderImage),
		loadSem:              make(chan struct{}, 1),
		visibleTrigger:       make(chan struct{}, 1),
		ctx:                  ctx,
		cancel:               cancel,
	}
	cache, err := lru.NewWithEvict(continuousImageCacheSize, func(key PageID, job *imageLoadJob) {
		go r.onImageEvicted(key, job)
	})
	if err != nil {
		panic(err)
	}
	r.imageCache = cache
	return r
}

// AttachScrollController wires the UI's scroll list in.
func (r *ContinuousReader) AttachScrollController(scroll ScrollController) {
	r.scrollMu.Lock()
	r.scroll = scroll
	r.scrollMu.Unlock()
}

func (r *ContinuousReader) scroller() ScrollController {
	r.scrollMu.Lock()
	defer r.scrollMu.Unlock()
	return r.scroll
}

// Initialize applies persisted settings and starts following book state
// and visible-image update requests.
func (r *ContinuousReader) Initialize() {
	settings := r.session.Settings()
	r.settingsMu.Lock()
	r.settings = settings
	r.settingsMu.Unlock()

	r.ReadingDirection.Set(settings.ContinuousDirection)
	if settings.SidePaddingFraction > 0 {
		r.SidePaddingFraction.Set(settings.SidePaddingFraction)
	}
	r.PageSpacing.Set(settings.PageSpacing)
	r.StretchToFit.Set(settings.StretchToFit)

	books, cancelBooks := r.session.BooksState.Subscribe()
	go func() {
		defer cancelBooks()
		for {
			select {
			case state, ok := <-books:
				if !ok {
					return
				}
				if state != nil {
					r.onBookStateChange(state)
				}
			case <-r.ctx.Done():
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-r.visibleTrigger:
				r.updateVisibleImages()
				select {
				case <-time.After(visibleImagesDebounce):
				case <-r.ctx.Done():
					return
				}
			case <-r.ctx.Done():
				return
			}
		}
	}()

	if state := r.session.BooksState.Get(); state != nil {
		r.onBookStateChange(state)
	}
}

// Stop tears the reader down: all in-use images are closed and the
// cache is invalidated. Safe to call repeatedly.
func (r *ContinuousReader) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.PageIntervals.Set(nil)
		r.currentIntervalIndex.Set(0)

		r.imagesMu.Lock()
		for _, image := range r.imagesInUse {
			image.Close()
		}
		r.imagesInUse = make(map[PageID]ReaderImage)
		r.imagesMu.Unlock()

		r.imageCache.Purge()
	})
}

// onBookStateChange maintains the interval window. Three outcomes:
// initialize it, splice in a newly known sibling, or just shift the
// current-index pointer when the user scrolled across a boundary into
// an interval that is already present.
func (r *ContinuousReader) onBookStateChange(state *BookState) {
	intervals := r.PageIntervals.Get()
	var currentBook *Book
	if index := r.currentIntervalIndex.Get(); index < len(intervals) {
		currentBook = &intervals[index].Book
	}
	wasPreviousBookLoaded := currentBook != nil && state.NextBook != nil && currentBook.ID == state.NextBook.ID

	switch {
	case len(intervals) == 0:
		var window []BookPagesInterval
		if state.PreviousBook != nil {
			window = append(window, BookPagesInterval{Book: *state.PreviousBook, Pages: state.PreviousBookPages})
		}
		window = append(window, BookPagesInterval{Book: state.CurrentBook, Pages: state.CurrentBookPages})
		if state.NextBook != nil {
			window = append(window, BookPagesInterval{Book: *state.NextBook, Pages: state.NextBookPages})
		}
		r.PageIntervals.Set(window)

		progressIndex := r.session.ReadProgressPage.Get() - 1
		if state.PreviousBook == nil {
			r.currentIntervalIndex.Set(0)
			r.scroller().ScrollToItem(progressIndex + 1)
		} else {
			r.currentIntervalIndex.Set(1)
			bookStartIndex := len(window[0].Pages)
			r.scroller().ScrollToItem(bookStartIndex + progressIndex + 2)
		}

	case wasPreviousBookLoaded:
		isNew := state.PreviousBook != nil && !windowContains(intervals, state.PreviousBook.ID)
		if isNew {
			// The old previous interval becomes current, so the index does
			// not move. The prepended page list is truncated to what the
			// list can absorb without losing scroll position.
			pages := state.PreviousBookPages
			if len(pages) > prependPageLimit {
				pages = pages[len(pages)-prependPageLimit:]
			}
			window := append(
				[]BookPagesInterval{{Book: *state.PreviousBook, Pages: pages}},
				intervals...,
			)
			r.PageIntervals.Set(window)
		} else {
			r.currentIntervalIndex.Update(func(i int) int { return i - 1 })
		}

	default:
		isNew := state.NextBook != nil && !windowContains(intervals, state.NextBook.ID)
		if isNew {
			window := append(append([]BookPagesInterval{}, intervals...),
				BookPagesInterval{Book: *state.NextBook, Pages: state.NextBookPages})
			r.PageIntervals.Set(window)
		}
		r.currentIntervalIndex.Update(func(i int) int { return i + 1 })
	}
}

func windowContains(intervals []BookPagesInterval, bookID string) bool {
	for _, interval := range intervals {
		if interval.Book.ID == bookID {
			return true
		}
	}
	return false
}

// SetImageCacheSize resizes the decoded-page cache. Shrinking evicts
// the oldest entries through the usual release path.
func (r *ContinuousReader) SetImageCacheSize(size int) {
	if size < 1 {
		size = 1
	}
	r.imagesMu.Lock()
	r.imageCache.Resize(size)
	r.imagesMu.Unlock()
}

// OnAreaSizeChange re-derives padding and resets zoom to fit for the
// new viewport.
func (r *ContinuousReader) OnAreaSizeChange(size geometry.Size) {
	if size.IsZero() {
		return
	}
	r.scale.SetAreaSize(size)
	r.applyPadding()
	r.scale.SetZoom(0, geometry.Point{})
	r.RequestVisibleImagesUpdate()
}

// OnCurrentPageChange is called by the UI's visible-item tracker with
// the page considered current. Crossing into a sibling book advances
// the session; otherwise missing leading pages are backfilled.
// Sibling loads fetch over the network, so they run off the caller's
// goroutine; the update loop must never wait on them.
func (r *ContinuousReader) OnCurrentPageChange(page PageMetadata) {
	state := r.session.BooksState.Get()
	if state == nil {
		return
	}
	switch {
	case state.NextBook != nil && page.BookID == state.NextBook.ID:
		if !r.bookShift.CompareAndSwap(false, true) {
			return
		}
		go func() {
			defer r.bookShift.Store(false)
			if err := r.session.LoadNextBook(r.ctx); err != nil {
				log.Printf("failed to load next book: %v", err)
				return
			}
			r.session.OnProgressChange(page.Number)
		}()
	case state.PreviousBook != nil && page.BookID == state.PreviousBook.ID:
		if !r.bookShift.CompareAndSwap(false, true) {
			return
		}
		go func() {
			defer r.bookShift.Store(false)
			if err := r.session.LoadPreviousBook(r.ctx); err != nil {
				log.Printf("failed to load previous book: %v", err)
				return
			}
			r.session.OnProgressChange(page.Number)
		}()
	default:
		r.checkAndLoadMissingIntervalPagesAt(page, state.CurrentBookPages)
		r.session.OnProgressChange(page.Number)
	}
}

// checkAndLoadMissingIntervalPagesAt backfills a truncated interval
// when the reader scrolls backward to the edge of the missing region.
func (r *ContinuousReader) checkAndLoadMissingIntervalPagesAt(page PageMetadata, fullBookPages []PageMetadata) {
	index := r.currentIntervalIndex.Get()
	intervals := r.PageIntervals.Get()
	if index >= len(intervals) {
		return
	}
	current := intervals[index]
	if len(current.Pages) == 0 || current.Pages[0].Number == 1 {
		return
	}
	if len(current.Pages) == len(fullBookPages) {
		return
	}

	missing := len(fullBookPages) - len(current.Pages)
	if page.Number != missing+1 {
		return
	}

	from := missing - prependPageLimit
	if from < 0 {
		from = 0
	}
	updatedPages := append(append([]PageMetadata{}, fullBookPages[from:missing]...), current.Pages...)
	r.setIntervalPages(index, updatedPages)
}

// ScrollToBookPage jumps to a page of the current book. A partial
// interval is fully materialized first because the target index assumes
// the complete page list.
func (r *ContinuousReader) ScrollToBookPage(pageNumber int) {
	state := r.session.BooksState.Get()
	if state == nil {
		return
	}
	index := r.currentIntervalIndex.Get()
	intervals := r.PageIntervals.Get()
	if index >= len(intervals) {
		return
	}
	current := intervals[index]

	fullBookPages := state.CurrentBookPages
	if len(current.Pages) != len(fullBookPages) {
		r.setIntervalPages(index, fullBookPages)
	}

	intervals = r.PageIntervals.Get()
	bookStartIndex := -1
	for _, interval := range intervals[:index] {
		bookStartIndex += len(interval.Pages)
	}
	r.scroller().ScrollToItem(bookStartIndex + pageNumber + index + 1)
}

func (r *ContinuousReader) setIntervalPages(index int, pages []PageMetadata) {
	r.PageIntervals.Update(func(current []BookPagesInterval) []BookPagesInterval {
		if index >= len(current) {
			return current
		}
		updated := make([]BookPagesInterval, len(current))
		copy(updated, current)
		updated[index] = BookPagesInterval{Book: current[index].Book, Pages: pages}
		return updated
	})
}

// ScrollScreenForward advances by one viewport extent along the scroll
// axis.
func (r *ContinuousReader) ScrollScreenForward() {
	r.scrollScreen(1)
}

func (r *ContinuousReader) ScrollScreenBackward() {
	r.scrollScreen(-1)
}

func (r *ContinuousReader) scrollScreen(direction float64) {
	area := r.scale.AreaSize()
	amount := float64(area.Height)
	if r.ReadingDirection.Get() != TopToBottom {
		amount = float64(area.Width)
	}
	amount *= direction

	scroll := r.scroller()
	switch {
	case amount > 0 && scroll.CanScrollForward():
		scroll.AnimateScrollBy(amount)
	case amount < 0 && scroll.CanScrollBackward():
		scroll.AnimateScrollBy(amount)
	default:
		r.ScrollBy(amount)
	}
}

// ScrollBy pans the scale state along the scroll axis, used past the
// ends of the list.
func (r *ContinuousReader) ScrollBy(amount float64) {
	if r.ReadingDirection.Get() == TopToBottom {
		r.scale.AddPan(geometry.Point{Y: amount})
	} else {
		r.scale.AddPan(geometry.Point{X: amount})
	}
}

func (r *ContinuousReader) pagesFor(bookID string) []PageMetadata {
	intervals := r.PageIntervals.Get()
	index := r.currentIntervalIndex.Get()
	if index < len(intervals) && intervals[index].Book.ID == bookID {
		return intervals[index].Pages
	}
	if index+1 < len(intervals) && intervals[index+1].Book.ID == bookID {
		return intervals[index+1].Pages
	}
	if index-1 >= 0 && index-1 < len(intervals) && intervals[index-1].Book.ID == bookID {
		return intervals[index-1].Pages
	}
	for _, interval := range intervals {
		if interval.Book.ID == bookID {
			return interval.Pages
		}
	}
	return nil
}

// GetImage loads the page image, reusing the cache, and prefetches the
// following page.
func (r *ContinuousReader) GetImage(ctx context.Context, page PageMetadata) ImageResult {
	job := r.launchImageJob(page)

	pages := r.pagesFor(page.BookID)
	if page.Number < len(pages) {
		nextPage := pages[page.Number]
		r.imagesMu.Lock()
		_, inUse := r.imagesInUse[nextPage.ID()]
		r.imagesMu.Unlock()
		if !inUse {
			go func() {
				result := r.launchImageJob(nextPage).await(r.ctx)
				if result.Image != nil {
					display := r.imageDisplaySize(result.Image)
					area := r.scale.AreaSize()
					result.Image.RequestUpdate(geometry.RectOf(area), r.scale.Transformation().Scale, display.maxSize)
				}
			}()
		}
	}

	return job.await(ctx)
}

func (r *ContinuousReader) launchImageJob(page PageMetadata) *imageLoadJob {
	r.imagesMu.Lock()
	defer r.imagesMu.Unlock()

	key := page.ID()
	if cached, ok := r.imageCache.Get(key); ok && !cached.cancelled.Load() {
		return cached
	}

	job := &imageLoadJob{done: make(chan struct{})}
	r.imageCache.Add(key, job)

	go func() {
		select {
		case r.loadSem <- struct{}{}:
		case <-r.ctx.Done():
			job.cancelled.Store(true)
			job.result = ImageResult{Err: r.ctx.Err()}
			close(job.done)
			return
		}
		defer func() { <-r.loadSem }()

		image, err := r.source.FetchPage(r.ctx, key, geometry.Size{}, false)
		if r.ctx.Err() != nil {
			job.cancelled.Store(true)
			if image != nil {
				image.Close()
				image = nil
			}
		}
		job.result = ImageResult{Image: image, Err: err}
		close(job.done)
	}()
	return job
}

func (r *ContinuousReader) onImageEvicted(key PageID, job *imageLoadJob) {
	select {
	case <-job.done:
	case <-r.ctx.Done():
		return
	}
	if job.result.Image == nil {
		return
	}
	r.imagesMu.Lock()
	_, inUse := r.imagesInUse[key]
	r.imagesMu.Unlock()
	if !inUse {
		job.result.Image.Close()
	}
}

// OnPageDisplay registers an image as visible, pinning it against cache
// eviction.
func (r *ContinuousReader) OnPageDisplay(page PageMetadata, image ReaderImage) {
	r.imagesMu.Lock()
	r.imagesInUse[page.ID()] = image
	r.imagesMu.Unlock()

	if page.Size == nil {
		r.updatePageSize(page, image)
	}
	r.RequestVisibleImagesUpdate()
}

// OnPageDispose releases an image that scrolled out of the
// virtualization window. It is closed right away unless the cache still
// holds it, in which case closure happens at eviction.
func (r *ContinuousReader) OnPageDispose(page PageMetadata) {
	key := page.ID()
	r.imagesMu.Lock()
	image := r.imagesInUse[key]
	delete(r.imagesInUse, key)
	_, cached := r.imageCache.Peek(key)
	r.imagesMu.Unlock()

	if image != nil && !cached {
		image.Close()
	}
}

// updatePageSize records decode-discovered dimensions back into the
// owning interval.
func (r *ContinuousReader) updatePageSize(page PageMetadata, image ReaderImage) {
	updated := page.WithSize(image.OriginalSize())

	r.PageIntervals.Update(func(current []BookPagesInterval) []BookPagesInterval {
		intervalIndex := -1
		for i, interval := range current {
			if interval.Book.ID == updated.BookID {
				intervalIndex = i
				break
			}
		}
		if intervalIndex == -1 {
			return current
		}

		interval := current[intervalIndex]
		pageIndex := -1
		for i, p := range interval.Pages {
			if p.Number == updated.Number {
				pageIndex = i
				break
			}
		}
		if pageIndex == -1 {
			return current
		}

		pages := make([]PageMetadata, len(interval.Pages))
		copy(pages, interval.Pages)
		pages[pageIndex] = updated

		intervals := make([]BookPagesInterval, len(current))
		copy(intervals, current)
		intervals[intervalIndex] = BookPagesInterval{Book: interval.Book, Pages: pages}
		return intervals
	})
}

// RequestVisibleImagesUpdate schedules a debounced visible-region
// recompute. Call on every scroll, zoom, or viewport change.
func (r *ContinuousReader) RequestVisibleImagesUpdate() {
	select {
	case r.visibleTrigger <- struct{}{}:
	default:
	}
}

// updateVisibleImages pushes per-image visible rectangles: the first
// and last visible images get partial rects for their offscreen slice,
// anything fully visible in between gets its full rect.
func (r *ContinuousReader) updateVisibleImages() {
	scroll := r.scroller()
	items := scroll.VisibleItems()
	if len(items) == 0 {
		return
	}

	var visibleImages []ReaderImage
	r.imagesMu.Lock()
	for _, item := range items {
		if item.Separator {
			continue
		}
		visibleImages = append(visibleImages, r.imagesInUse[item.Page.ID()])
	}
	r.imagesMu.Unlock()
	if len(visibleImages) == 0 {
		return
	}

	zoom := r.scale.Transformation().Scale
	firstOffset := scroll.FirstVisibleItemOffset()
	direction := r.ReadingDirection.Get()

	if first := visibleImages[0]; first != nil {
		size := r.imageDisplaySize(first)
		if items[0].Separator {
			// A separator leads, so the first image is fully visible.
			first.RequestUpdate(geometry.RectOf(size.displaySize), zoom, size.maxSize)
		} else {
			var visible geometry.Rect
			if direction == TopToBottom {
				visible = geometry.Rect{
					Top:    firstOffset,
					Right:  size.displaySize.Width,
					Bottom: size.displaySize.Height,
				}
			} else {
				visible = geometry.Rect{
					Left:   firstOffset,
					Right:  size.displaySize.Width,
					Bottom: size.displaySize.Height,
				}
			}
			first.RequestUpdate(visible, zoom, size.maxSize)
		}
	}
	if len(visibleImages) == 1 {
		return
	}

	for _, image := range visibleImages[1 : len(visibleImages)-1] {
		if image == nil {
			continue
		}
		size := r.imageDisplaySize(image)
		image.RequestUpdate(geometry.RectOf(size.displaySize), zoom, size.maxSize)
	}

	last := visibleImages[len(visibleImages)-1]
	if last == nil {
		return
	}
	area := r.scale.AreaSize()
	lastItem := items[len(items)-1]
	size := r.imageDisplaySize(last)
	var visible geometry.Rect
	if direction == TopToBottom {
		visible = geometry.Rect{
			Right:  size.displaySize.Width,
			Bottom: area.Height - lastItem.Offset,
		}
	} else {
		visible = geometry.Rect{
			Right:  area.Width - lastItem.Offset,
			Bottom: area.Height,
		}
	}
	last.RequestUpdate(visible, zoom, size.maxSize)
}

type imageDisplaySize struct {
	displaySize geometry.Size
	maxSize     geometry.Size
}

// imageDisplaySize is the image's on-screen size along with the maximum
// extent it may occupy: unbounded along the scroll axis, padded across
// it.
func (r *ContinuousReader) imageDisplaySize(image ReaderImage) imageDisplaySize {
	area := r.scale.AreaSize()
	padding := r.SidePaddingPx.Get()
	stretch := r.StretchToFit.Get()

	var maxSize geometry.Size
	if r.ReadingDirection.Get() == TopToBottom {
		maxSize = geometry.Size{Width: area.Width - padding*2, Height: math.MaxInt32}
	} else {
		maxSize = geometry.Size{Width: math.MaxInt32, Height: area.Height - padding*2}
	}
	return imageDisplaySize{
		displaySize: image.CalculateSizeForArea(maxSize, stretch),
		maxSize:     maxSize,
	}
}

// GuessPageDisplaySize estimates a page's display size before its image
// loads, from its own known size or a neighboring page's.
func (r *ContinuousReader) GuessPageDisplaySize(page PageMetadata) geometry.Size {
	area := r.scale.AreaSize()
	padding := r.SidePaddingPx.Get()
	stretch := r.StretchToFit.Get()
	vertical := r.ReadingDirection.Get() == TopToBottom

	pageSize := page.Size
	if pageSize == nil {
		pages := r.pagesFor(page.BookID)
		var neighbor *geometry.Size
		if i := page.Number - 2; i >= 0 && i < len(pages) && pages[i].Size != nil {
			neighbor = pages[i].Size
		} else if i := page.Number; i < len(pages) && pages[i].Size != nil {
			neighbor = pages[i].Size
		}
		if neighbor == nil {
			if vertical {
				return geometry.Size{Width: area.Width, Height: area.Height / 2}
			}
			return geometry.Size{Width: area.Width / 2, Height: area.Height}
		}
		if vertical {
			return geometry.FitInto(*neighbor, geometry.Size{Width: area.Width - padding*2, Height: math.MaxInt32})
		}
		return geometry.FitInto(*neighbor, geometry.Size{Width: math.MaxInt32, Height: area.Height - padding*2})
	}

	if vertical {
		constrainedWidth := area.Width - padding*2
		if !stretch {
			if constrainedWidth > pageSize.Width {
				constrainedWidth = pageSize.Width
			}
			return geometry.FitInto(*pageSize, geometry.Size{Width: constrainedWidth, Height: pageSize.Height})
		}
		return geometry.FitInto(*pageSize, geometry.Size{Width: constrainedWidth, Height: math.MaxInt32})
	}

	constrainedHeight := area.Height - padding*2
	if !stretch {
		if constrainedHeight > pageSize.Height {
			constrainedHeight = pageSize.Height
		}
		return geometry.FitInto(*pageSize, geometry.Size{Width: pageSize.Width, Height: constrainedHeight})
	}
	return geometry.FitInto(*pageSize, geometry.Size{Width: math.MaxInt32, Height: constrainedHeight})
}

func (r *ContinuousReader) OnReadingDirectionChange(direction ContinuousDirection) {
	r.ReadingDirection.Set(direction)
	r.applyPadding()
	r.saveSettings(func(s *Settings) { s.ContinuousDirection = direction })
}

func (r *ContinuousReader) OnSidePaddingChange(fraction float64) {
	r.SidePaddingFraction.Set(fraction)
	r.applyPadding()
	r.scale.SetZoom(0, geometry.Point{})
	r.saveSettings(func(s *Settings) { s.SidePaddingFraction = fraction })
}

func (r *ContinuousReader) OnPageSpacingChange(distance int) {
	r.PageSpacing.Set(distance)
	r.saveSettings(func(s *Settings) { s.PageSpacing = distance })
}

func (r *ContinuousReader) OnStretchToFitChange(stretch bool) {
	r.StretchToFit.Set(stretch)
	r.RequestVisibleImagesUpdate()
	r.saveSettings(func(s *Settings) { s.StretchToFit = stretch })
}

// applyPadding recomputes side padding pixels and the scale target size
// from the viewport and padding fraction.
func (r *ContinuousReader) applyPadding() {
	area := r.scale.AreaSize()
	fraction := r.SidePaddingFraction.Get()

	if r.ReadingDirection.Get() == TopToBottom {
		padding := int(math.Round(float64(area.Width) * fraction))
		r.SidePaddingPx.Set(padding)
		r.scale.SetTargetSize(geometry.SizeF{
			Width:  float64(area.Width - padding*2),
			Height: float64(area.Height),
		})
	} else {
		padding := int(math.Round(float64(area.Height) * fraction))
		r.SidePaddingPx.Set(padding)
		r.scale.SetTargetSize(geometry.SizeF{
			Width:  float64(area.Width),
			Height: float64(area.Height - padding*2),
		})
	}
}

func (r *ContinuousReader) saveSettings(mutate func(*Settings)) {
	r.settingsMu.Lock()
	mutate(&r.settings)
	settings := r.settings
	r.settingsMu.Unlock()
	r.session.SaveSettings(settings)
}
