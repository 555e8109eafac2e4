package reader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"komavi/internal/geometry"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type updateRequest struct {
	visible geometry.Rect
	zoom    float64
	maxSize geometry.Size
}

type fakeImage struct {
	id   PageID
	size geometry.Size

	mu      sync.Mutex
	closed  bool
	updates []updateRequest
}

func (f *fakeImage) PageID() PageID               { return f.id }
func (f *fakeImage) OriginalSize() geometry.Size  { return f.size }

func (f *fakeImage) CalculateSizeForArea(max geometry.Size, stretch bool) geometry.Size {
	fitted := geometry.FitInto(f.size, max)
	if !stretch {
		fitted = fitted.CoerceAtMost(f.size)
	}
	return fitted
}

func (f *fakeImage) RequestUpdate(visible geometry.Rect, zoom float64, maxSize geometry.Size) {
	f.mu.Lock()
	f.updates = append(f.updates, updateRequest{visible: visible, zoom: zoom, maxSize: maxSize})
	f.mu.Unlock()
}

func (f *fakeImage) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeImage) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeImage) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type fakeImageSource struct {
	mu          sync.Mutex
	sizes       map[PageID]geometry.Size
	fetchErr    map[PageID]error
	probeErr    map[PageID]error
	fetchCount  map[PageID]int
	probeCount  map[PageID]int
	lastTarget  map[PageID]geometry.Size
	lastImages  map[PageID]*fakeImage
	fetchGate   chan struct{}
}

func newFakeImageSource() *fakeImageSource {
	return &fakeImageSource{
		sizes:      make(map[PageID]geometry.Size),
		fetchErr:   make(map[PageID]error),
		probeErr:   make(map[PageID]error),
		fetchCount: make(map[PageID]int),
		probeCount: make(map[PageID]int),
		lastTarget: make(map[PageID]geometry.Size),
		lastImages: make(map[PageID]*fakeImage),
	}
}

func (s *fakeImageSource) setPage(id PageID, size geometry.Size) {
	s.mu.Lock()
	s.sizes[id] = size
	s.mu.Unlock()
}

func (s *fakeImageSource) FetchPage(ctx context.Context, id PageID, targetSize geometry.Size, allowUpsample bool) (ReaderImage, error) {
	s.mu.Lock()
	gate := s.fetchGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCount[id]++
	s.lastTarget[id] = targetSize
	if err := s.fetchErr[id]; err != nil {
		return nil, err
	}
	original, ok := s.sizes[id]
	if !ok {
		return nil, fmt.Errorf("no page %v", id)
	}
	size := original
	if !targetSize.IsZero() {
		size = targetSize
	}
	img := &fakeImage{id: id, size: size}
	s.lastImages[id] = img
	return img, nil
}

func (s *fakeImageSource) FetchOriginalSize(ctx context.Context, id PageID) (geometry.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeCount[id]++
	if err := s.probeErr[id]; err != nil {
		return geometry.Size{}, err
	}
	original, ok := s.sizes[id]
	if !ok {
		return geometry.Size{}, fmt.Errorf("no page %v", id)
	}
	return original, nil
}

func (s *fakeImageSource) fetches(id PageID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCount[id]
}

func (s *fakeImageSource) probes(id PageID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeCount[id]
}

func (s *fakeImageSource) targetFor(id PageID) geometry.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTarget[id]
}

type fakeBookSource struct {
	mu       sync.Mutex
	books    map[string]Book
	pages    map[string][]PageMetadata
	order    []string
	progress map[string]int

	// siblingGate, when set, holds sibling lookups until closed.
	siblingGate chan struct{}
}

func newFakeBookSource(books ...Book) *fakeBookSource {
	s := &fakeBookSource{
		books:    make(map[string]Book),
		pages:    make(map[string][]PageMetadata),
		progress: make(map[string]int),
	}
	for _, b := range books {
		s.books[b.ID] = b
		s.order = append(s.order, b.ID)
		pages := make([]PageMetadata, 0, b.PageCount)
		for i := 1; i <= b.PageCount; i++ {
			size := geometry.Size{Width: 800, Height: 1200}
			pages = append(pages, PageMetadata{BookID: b.ID, Number: i, Size: &size})
		}
		s.pages[b.ID] = pages
	}
	return s
}

func (s *fakeBookSource) Book(ctx context.Context, bookID string) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[bookID]
	if !ok {
		return Book{}, fmt.Errorf("no book %s", bookID)
	}
	return b, nil
}

func (s *fakeBookSource) BookPages(ctx context.Context, bookID string) ([]PageMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, ok := s.pages[bookID]
	if !ok {
		return nil, fmt.Errorf("no book %s", bookID)
	}
	return pages, nil
}

func (s *fakeBookSource) siblingAt(bookID string, step int) *Book {
	for i, id := range s.order {
		if id == bookID {
			j := i + step
			if j < 0 || j >= len(s.order) {
				return nil
			}
			b := s.books[s.order[j]]
			return &b
		}
	}
	return nil
}

func (s *fakeBookSource) setSiblingGate(gate chan struct{}) {
	s.mu.Lock()
	s.siblingGate = gate
	s.mu.Unlock()
}

func (s *fakeBookSource) awaitSiblingGate(ctx context.Context) error {
	s.mu.Lock()
	gate := s.siblingGate
	s.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeBookSource) PreviousBook(ctx context.Context, bookID string) (*Book, error) {
	if err := s.awaitSiblingGate(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siblingAt(bookID, -1), nil
}

func (s *fakeBookSource) NextBook(ctx context.Context, bookID string) (*Book, error) {
	if err := s.awaitSiblingGate(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siblingAt(bookID, 1), nil
}

func (s *fakeBookSource) MarkProgress(ctx context.Context, bookID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[bookID] = page
	return nil
}

type memorySettings struct {
	mu       sync.Mutex
	settings Settings
	saves    int
}

func (m *memorySettings) ReaderSettings() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memorySettings) SaveReaderSettings(s Settings) error {
	m.mu.Lock()
	m.settings = s
	m.saves++
	m.mu.Unlock()
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}
