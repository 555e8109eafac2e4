package reader

import (
	"context"
	"fmt"
	"log"
)

// Session owns the sliding book window around the book being read and
// the read-progress write-through. Paged and continuous mode states
// both consume its book state.
type Session struct {
	books        BookSource
	settings     SettingsStore
	notifier     Notifier
	markProgress bool

	// BooksState is nil until Initialize succeeds.
	BooksState       *Value[*BookState]
	ReadProgressPage *Value[int]
}

func NewSession(books BookSource, settings SettingsStore, notifier Notifier, markProgress bool) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Session{
		books:            books,
		settings:         settings,
		notifier:         notifier,
		markProgress:     markProgress,
		BooksState:       NewValue[*BookState](nil),
		ReadProgressPage: NewValue(1),
	}
}

// Initialize loads the book, its pages and both siblings, and seeds the
// read-progress pointer from persisted progress.
func (s *Session) Initialize(ctx context.Context, bookID string) error {
	book, err := s.books.Book(ctx, bookID)
	if err != nil {
		return fmt.Errorf("load book %s: %w", bookID, err)
	}
	pages, err := s.books.BookPages(ctx, bookID)
	if err != nil {
		return fmt.Errorf("load pages of book %s: %w", bookID, err)
	}

	prevBook, err := s.books.PreviousBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("load previous book of %s: %w", bookID, err)
	}
	var prevPages []PageMetadata
	if prevBook != nil {
		if prevPages, err = s.books.BookPages(ctx, prevBook.ID); err != nil {
			return fmt.Errorf("load pages of book %s: %w", prevBook.ID, err)
		}
	}

	nextBook, err := s.books.NextBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("load next book of %s: %w", bookID, err)
	}
	var nextPages []PageMetadata
	if nextBook != nil {
		if nextPages, err = s.books.BookPages(ctx, nextBook.ID); err != nil {
			return fmt.Errorf("load pages of book %s: %w", nextBook.ID, err)
		}
	}

	s.BooksState.Set(&BookState{
		CurrentBook:       book,
		CurrentBookPages:  pages,
		PreviousBook:      prevBook,
		PreviousBookPages: prevPages,
		NextBook:          nextBook,
		NextBookPages:     nextPages,
	})

	progress := book.ReadProgress
	if progress == nil || progress.Completed {
		s.ReadProgressPage.Set(1)
	} else {
		s.ReadProgressPage.Set(progress.Page)
	}
	return nil
}

// LoadNextBook shifts the window forward: the known next book becomes
// current and its own next sibling is fetched. Without a next book the
// user is just told so.
func (s *Session) LoadNextBook(ctx context.Context) error {
	state := s.BooksState.Get()
	if state == nil {
		return fmt.Errorf("no book loaded")
	}
	if state.NextBook == nil {
		s.notifier.Notify("You're at the end of the book")
		return nil
	}

	nextBook, err := s.books.NextBook(ctx, state.NextBook.ID)
	if err != nil {
		return fmt.Errorf("load next book of %s: %w", state.NextBook.ID, err)
	}
	var nextPages []PageMetadata
	if nextBook != nil {
		if nextPages, err = s.books.BookPages(ctx, nextBook.ID); err != nil {
			return fmt.Errorf("load pages of book %s: %w", nextBook.ID, err)
		}
	}

	s.ReadProgressPage.Set(1)
	s.BooksState.Set(&BookState{
		CurrentBook:       *state.NextBook,
		CurrentBookPages:  state.NextBookPages,
		PreviousBook:      &state.CurrentBook,
		PreviousBookPages: state.CurrentBookPages,
		NextBook:          nextBook,
		NextBookPages:     nextPages,
	})
	return nil
}

// LoadPreviousBook shifts the window backward and points the progress
// at the previous book's last page.
func (s *Session) LoadPreviousBook(ctx context.Context) error {
	state := s.BooksState.Get()
	if state == nil {
		return fmt.Errorf("no book loaded")
	}
	if state.PreviousBook == nil {
		s.notifier.Notify("You're at the beginning of the book")
		return nil
	}

	prevBook, err := s.books.PreviousBook(ctx, state.PreviousBook.ID)
	if err != nil {
		return fmt.Errorf("load previous book of %s: %w", state.PreviousBook.ID, err)
	}
	var prevPages []PageMetadata
	if prevBook != nil {
		if prevPages, err = s.books.BookPages(ctx, prevBook.ID); err != nil {
			return fmt.Errorf("load pages of book %s: %w", prevBook.ID, err)
		}
	}

	s.ReadProgressPage.Set(len(state.PreviousBookPages))
	s.BooksState.Set(&BookState{
		CurrentBook:       *state.PreviousBook,
		CurrentBookPages:  state.PreviousBookPages,
		NextBook:          &state.CurrentBook,
		NextBookPages:     state.CurrentBookPages,
		PreviousBook:      prevBook,
		PreviousBookPages: prevPages,
	})
	return nil
}

// OnProgressChange records the page the user is on. The server write is
// fire and forget; a failed write never interrupts reading.
func (s *Session) OnProgressChange(page int) {
	if s.markProgress {
		state := s.BooksState.Get()
		if state != nil {
			bookID := state.CurrentBook.ID
			go func() {
				if err := s.books.MarkProgress(context.Background(), bookID, page); err != nil {
					log.Printf("failed to mark read progress for book %s page %d: %v", bookID, page, err)
				}
			}()
		}
	}
	s.ReadProgressPage.Set(page)
}

// Notify forwards a short user-facing message to the notifier.
func (s *Session) Notify(message string) {
	s.notifier.Notify(message)
}

// Settings loads persisted reader preferences, falling back to the zero
// defaults on error.
func (s *Session) Settings() Settings {
	settings, err := s.settings.ReaderSettings()
	if err != nil {
		log.Printf("failed to load reader settings: %v", err)
		return Settings{}
	}
	return settings
}

// SaveSettings persists reader preferences in the background.
func (s *Session) SaveSettings(settings Settings) {
	go func() {
		if err := s.settings.SaveReaderSettings(settings); err != nil {
			log.Printf("failed to save reader settings: %v", err)
		}
	}()
}
