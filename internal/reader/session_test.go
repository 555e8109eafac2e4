package reader

import (
	"context"
	"errors"
	"testing"
)

func threeVolumeSession(t *testing.T, currentBookID string, progress *ReadProgress) (*Session, *fakeBookSource, *recordingNotifier) {
	t.Helper()
	books := newFakeBookSource(
		Book{ID: "b1", SeriesID: "s1", Title: "Volume 1", PageCount: 8},
		Book{ID: "b2", SeriesID: "s1", Title: "Volume 2", PageCount: 10, ReadProgress: progress},
		Book{ID: "b3", SeriesID: "s1", Title: "Volume 3", PageCount: 12},
	)
	notifier := &recordingNotifier{}
	session := NewSession(books, &memorySettings{}, notifier, true)
	if err := session.Initialize(context.Background(), currentBookID); err != nil {
		t.Fatal(err)
	}
	return session, books, notifier
}

func TestSessionInitialize(t *testing.T) {
	session, _, _ := threeVolumeSession(t, "b2", &ReadProgress{Page: 7})

	state := session.BooksState.Get()
	if state == nil {
		t.Fatal("book state not set")
	}
	if state.CurrentBook.ID != "b2" || len(state.CurrentBookPages) != 10 {
		t.Errorf("current = %s with %d pages", state.CurrentBook.ID, len(state.CurrentBookPages))
	}
	if state.PreviousBook == nil || state.PreviousBook.ID != "b1" || len(state.PreviousBookPages) != 8 {
		t.Errorf("previous sibling = %+v", state.PreviousBook)
	}
	if state.NextBook == nil || state.NextBook.ID != "b3" || len(state.NextBookPages) != 12 {
		t.Errorf("next sibling = %+v", state.NextBook)
	}
	if got := session.ReadProgressPage.Get(); got != 7 {
		t.Errorf("read progress page = %d, want 7", got)
	}
}

func TestSessionInitializeProgressDefaults(t *testing.T) {
	tests := []struct {
		name     string
		progress *ReadProgress
		want     int
	}{
		{name: "no progress starts at page 1", progress: nil, want: 1},
		{name: "completed book restarts at page 1", progress: &ReadProgress{Page: 10, Completed: true}, want: 1},
		{name: "partial progress is restored", progress: &ReadProgress{Page: 4}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _, _ := threeVolumeSession(t, "b2", tt.progress)
			if got := session.ReadProgressPage.Get(); got != tt.want {
				t.Errorf("read progress page = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionInitializeUnknownBook(t *testing.T) {
	session := NewSession(newFakeBookSource(), &memorySettings{}, nil, false)
	if err := session.Initialize(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unknown book")
	}
	if session.BooksState.Get() != nil {
		t.Error("failed initialization must not publish book state")
	}
}

func TestSessionEdgeBookHasOneSibling(t *testing.T) {
	session, _, _ := threeVolumeSession(t, "b1", nil)

	state := session.BooksState.Get()
	if state.PreviousBook != nil {
		t.Errorf("first volume has previous sibling %+v", state.PreviousBook)
	}
	if state.NextBook == nil || state.NextBook.ID != "b2" {
		t.Errorf("next sibling = %+v, want b2", state.NextBook)
	}
}

func TestSessionLoadNextBook(t *testing.T) {
	session, _, _ := threeVolumeSession(t, "b2", &ReadProgress{Page: 9})

	if err := session.LoadNextBook(context.Background()); err != nil {
		t.Fatal(err)
	}

	state := session.BooksState.Get()
	if state.CurrentBook.ID != "b3" {
		t.Fatalf("current = %s, want b3", state.CurrentBook.ID)
	}
	if state.PreviousBook == nil || state.PreviousBook.ID != "b2" {
		t.Errorf("previous = %+v, want b2", state.PreviousBook)
	}
	if state.NextBook != nil {
		t.Errorf("b3 is the last volume but next = %+v", state.NextBook)
	}
	if got := session.ReadProgressPage.Get(); got != 1 {
		t.Errorf("next book should open at page 1, got %d", got)
	}
}

func TestSessionLoadPreviousBookOpensAtLastPage(t *testing.T) {
	session, _, _ := threeVolumeSession(t, "b2", nil)

	if err := session.LoadPreviousBook(context.Background()); err != nil {
		t.Fatal(err)
	}

	state := session.BooksState.Get()
	if state.CurrentBook.ID != "b1" {
		t.Fatalf("current = %s, want b1", state.CurrentBook.ID)
	}
	if state.NextBook == nil || state.NextBook.ID != "b2" {
		t.Errorf("next = %+v, want b2", state.NextBook)
	}
	if got := session.ReadProgressPage.Get(); got != 8 {
		t.Errorf("previous book should open at its last page, got %d", got)
	}
}

func TestSessionWindowShiftAtSeriesEdgeNotifies(t *testing.T) {
	session, _, notifier := threeVolumeSession(t, "b3", nil)

	if err := session.LoadNextBook(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := notifier.last(); got != "You're at the end of the book" {
		t.Errorf("notification = %q", got)
	}
	if got := session.BooksState.Get().CurrentBook.ID; got != "b3" {
		t.Errorf("current book moved to %s at series end", got)
	}

	session2, _, notifier2 := threeVolumeSession(t, "b1", nil)
	if err := session2.LoadPreviousBook(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := notifier2.last(); got != "You're at the beginning of the book" {
		t.Errorf("notification = %q", got)
	}
}

func TestSessionProgressWriteThrough(t *testing.T) {
	session, books, _ := threeVolumeSession(t, "b2", nil)

	session.OnProgressChange(6)

	if got := session.ReadProgressPage.Get(); got != 6 {
		t.Errorf("read progress page = %d, want 6", got)
	}
	waitFor(t, "progress write", func() bool {
		books.mu.Lock()
		defer books.mu.Unlock()
		return books.progress["b2"] == 6
	})
}

func TestSessionProgressMarkingDisabled(t *testing.T) {
	books := newFakeBookSource(Book{ID: "b1", SeriesID: "s1", Title: "Volume 1", PageCount: 8})
	session := NewSession(books, &memorySettings{}, nil, false)
	if err := session.Initialize(context.Background(), "b1"); err != nil {
		t.Fatal(err)
	}

	session.OnProgressChange(3)

	if got := session.ReadProgressPage.Get(); got != 3 {
		t.Errorf("read progress page = %d, want 3", got)
	}
	// The local pointer moves but nothing is written back.
	books.mu.Lock()
	_, written := books.progress["b1"]
	books.mu.Unlock()
	if written {
		t.Error("progress written back with marking disabled")
	}
}

func TestSessionSettingsFallBackToDefaults(t *testing.T) {
	session := NewSession(newFakeBookSource(), &failingSettings{}, nil, false)
	if got := session.Settings(); got != (Settings{}) {
		t.Errorf("settings on load failure = %+v, want defaults", got)
	}
}

type failingSettings struct{}

func (failingSettings) ReaderSettings() (Settings, error) {
	return Settings{}, errors.New("corrupt settings file")
}

func (failingSettings) SaveReaderSettings(Settings) error {
	return errors.New("read-only config")
}
