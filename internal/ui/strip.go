package ui

import (
	"context"
	"sync"

	"komavi/internal/geometry"
	"komavi/internal/reader"
)

const (
	// separatorExtent is the height (or width, sideways) of the book
	// boundary band between intervals.
	separatorExtent = 48

	// overscanItems keeps a few offscreen pages materialized in both
	// directions so scrolling does not start from a blank page.
	overscanItems = 2
)

// stripItem is one laid-out entry of the continuous strip: a page or a
// book separator, with its position along the scroll axis.
type stripItem struct {
	page      reader.PageMetadata
	separator bool
	bookTitle string
	start     float64
	extent    float64
}

// StripList is the virtualized scroll list of continuous mode. It owns
// the scroll offset, materializes page images around the viewport, and
// reports visibility back to the reader.
type StripList struct {
	reader *reader.ContinuousReader

	mu       sync.Mutex
	offset   float64
	target   float64
	viewport geometry.Size

	images  map[reader.PageID]reader.ImageResult
	loading map[reader.PageID]bool
	held    map[reader.PageID]reader.PageMetadata

	currentPage reader.PageID

	ctx    context.Context
	cancel context.CancelFunc
}

func NewStripList(r *reader.ContinuousReader) *StripList {
	ctx, cancel := context.WithCancel(context.Background())
	return &StripList{
		reader:  r,
		images:  make(map[reader.PageID]reader.ImageResult),
		loading: make(map[reader.PageID]bool),
		held:    make(map[reader.PageID]reader.PageMetadata),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (l *StripList) Stop() {
	l.cancel()
}

// SetViewport records the drawable area. Call on window resize.
func (l *StripList) SetViewport(size geometry.Size) {
	l.mu.Lock()
	l.viewport = size
	l.mu.Unlock()
	l.reader.RequestVisibleImagesUpdate()
}

func (l *StripList) vertical() bool {
	return l.reader.ReadingDirection.Get() == reader.TopToBottom
}

func (l *StripList) viewExtent() float64 {
	if l.vertical() {
		return float64(l.viewport.Height)
	}
	return float64(l.viewport.Width)
}

// layout lays out every interval page behind a leading separator per
// book plus one trailing separator, matching the index arithmetic the
// reader scrolls by.
func (l *StripList) layout() []stripItem {
	intervals := l.reader.PageIntervals.Get()
	spacing := float64(l.reader.PageSpacing.Get())
	vertical := l.vertical()

	var items []stripItem
	pos := 0.0
	push := func(item stripItem, extent float64) {
		item.start = pos
		item.extent = extent
		items = append(items, item)
		pos += extent + spacing
	}

	for _, interval := range intervals {
		push(stripItem{separator: true, bookTitle: interval.Book.Title}, separatorExtent)
		for _, page := range interval.Pages {
			size := l.reader.GuessPageDisplaySize(page)
			extent := float64(size.Height)
			if !vertical {
				extent = float64(size.Width)
			}
			push(stripItem{page: page}, extent)
		}
	}
	if len(intervals) > 0 {
		push(stripItem{separator: true}, separatorExtent)
	}
	return items
}

func totalExtent(items []stripItem) float64 {
	if len(items) == 0 {
		return 0
	}
	last := items[len(items)-1]
	return last.start + last.extent
}

// visibleRange returns the index span of items intersecting the
// viewport, widened by overscan.
func visibleRange(items []stripItem, offset, extent float64, overscan int) (first, last int) {
	first, last = -1, -1
	for i, item := range items {
		if item.start+item.extent <= offset {
			continue
		}
		if item.start >= offset+extent {
			break
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		return -1, -1
	}
	first -= overscan
	if first < 0 {
		first = 0
	}
	last += overscan
	if last >= len(items) {
		last = len(items) - 1
	}
	return first, last
}

// ScrollToItem jumps so the item's leading edge sits at the viewport
// start, without animation.
func (l *StripList) ScrollToItem(index int) {
	items := l.layout()
	l.mu.Lock()
	if index >= 0 && index < len(items) {
		l.offset = items[index].start
		l.target = l.offset
	}
	l.mu.Unlock()
	l.reader.RequestVisibleImagesUpdate()
}

// AnimateScrollBy moves the scroll target; Step eases toward it.
func (l *StripList) AnimateScrollBy(amount float64) {
	l.mu.Lock()
	l.target += amount
	l.mu.Unlock()
}

func (l *StripList) CanScrollForward() bool {
	items := l.layout()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset+l.viewExtent() < totalExtent(items)
}

func (l *StripList) CanScrollBackward() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset > 0
}

// FirstVisibleItemOffset is how far the first visible item has scrolled
// past the viewport's leading edge.
func (l *StripList) FirstVisibleItemOffset() int {
	items := l.layout()
	l.mu.Lock()
	defer l.mu.Unlock()
	first, _ := visibleRange(items, l.offset, l.viewExtent(), 0)
	if first == -1 {
		return 0
	}
	return int(l.offset - items[first].start)
}

// VisibleItems reports the onscreen items with their viewport-relative
// leading offsets.
func (l *StripList) VisibleItems() []reader.ListItem {
	items := l.layout()
	l.mu.Lock()
	defer l.mu.Unlock()
	first, last := visibleRange(items, l.offset, l.viewExtent(), 0)
	if first == -1 {
		return nil
	}

	visible := make([]reader.ListItem, 0, last-first+1)
	for _, item := range items[first : last+1] {
		visible = append(visible, reader.ListItem{
			Page:      item.page,
			Separator: item.separator,
			Offset:    int(item.start - l.offset),
		})
	}
	return visible
}

// Step advances the scroll animation and the materialization window by
// one frame. Call from the game's Update.
func (l *StripList) Step() {
	items := l.layout()
	total := totalExtent(items)

	l.mu.Lock()
	extent := l.viewExtent()
	maxOffset := total - extent
	if maxOffset < 0 {
		maxOffset = 0
	}
	l.target = geometry.Clamp(l.target, 0, maxOffset)

	moved := false
	if l.offset != l.target {
		delta := (l.target - l.offset) * 0.3
		if delta > -1 && delta < 1 {
			l.offset = l.target
		} else {
			l.offset += delta
		}
		moved = true
	}
	offset := l.offset
	l.mu.Unlock()

	l.materialize(items, offset, extent)
	l.trackCurrentPage(items, offset, extent)

	if moved {
		l.reader.RequestVisibleImagesUpdate()
	}
}

// materialize loads pages entering the overscan window and disposes
// pages leaving it.
func (l *StripList) materialize(items []stripItem, offset, extent float64) {
	first, last := visibleRange(items, offset, extent, overscanItems)

	wanted := make(map[reader.PageID]reader.PageMetadata)
	if first != -1 {
		for _, item := range items[first : last+1] {
			if !item.separator {
				wanted[item.page.ID()] = item.page
			}
		}
	}

	l.mu.Lock()
	var added []reader.PageMetadata
	var removed []reader.PageMetadata
	for id, page := range wanted {
		if _, held := l.held[id]; !held {
			l.held[id] = page
			added = append(added, page)
		}
	}
	for id, page := range l.held {
		if _, still := wanted[id]; !still {
			delete(l.held, id)
			delete(l.images, id)
			removed = append(removed, page)
		}
	}
	l.mu.Unlock()

	for _, page := range removed {
		l.reader.OnPageDispose(page)
	}
	for _, page := range added {
		l.load(page)
	}
}

func (l *StripList) load(page reader.PageMetadata) {
	id := page.ID()
	l.mu.Lock()
	if l.loading[id] {
		l.mu.Unlock()
		return
	}
	l.loading[id] = true
	l.mu.Unlock()

	go func() {
		result := l.reader.GetImage(l.ctx, page)

		l.mu.Lock()
		delete(l.loading, id)
		_, stillHeld := l.held[id]
		if stillHeld {
			l.images[id] = result
		}
		l.mu.Unlock()

		if !stillHeld {
			return
		}
		if result.Image != nil {
			l.reader.OnPageDisplay(page, result.Image)
		}
	}()
}

// trackCurrentPage reports the page under the viewport midpoint so the
// reader can advance progress and shift the book window.
func (l *StripList) trackCurrentPage(items []stripItem, offset, extent float64) {
	mid := offset + extent/2
	var current *stripItem
	for i := range items {
		item := &items[i]
		if item.separator {
			continue
		}
		if item.start <= mid && mid < item.start+item.extent {
			current = item
			break
		}
	}
	if current == nil {
		return
	}

	l.mu.Lock()
	id := current.page.ID()
	changed := id != l.currentPage
	l.currentPage = id
	l.mu.Unlock()

	if changed {
		l.reader.OnCurrentPageChange(current.page)
	}
}

// ImageFor returns the fetch outcome for a materialized page, if any.
func (l *StripList) ImageFor(id reader.PageID) (reader.ImageResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	result, ok := l.images[id]
	return result, ok
}

// renderSlice returns the laid-out items intersecting the viewport for
// drawing, with starts rebased to viewport coordinates.
func (l *StripList) renderSlice() []stripItem {
	items := l.layout()
	l.mu.Lock()
	offset := l.offset
	extent := l.viewExtent()
	l.mu.Unlock()

	first, last := visibleRange(items, offset, extent, 0)
	if first == -1 {
		return nil
	}
	visible := make([]stripItem, last-first+1)
	copy(visible, items[first:last+1])
	for i := range visible {
		visible[i].start -= offset
	}
	return visible
}

// Offset returns the current scroll position in layout pixels.
func (l *StripList) Offset() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset
}
