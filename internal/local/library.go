// Package local serves books from a directory of comic archives
// (cbz/zip, cbr/rar, cb7/7z). One archive is one book; the directory is
// the series; read progress lives in a JSON sidecar next to the
// archives.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/maruel/natural"

	"komavi/internal/geometry"
	"komavi/internal/imaging"
	"komavi/internal/reader"
)

// Library is an archive-backed BookSource and ImageSource. Book IDs are
// archive file names; pages are the archive's image entries in natural
// order.
type Library struct {
	root   string
	filter imaging.Filter

	mu       sync.Mutex
	order    []string            // book ids, natural order
	entries  map[string][]string // book id -> sorted image entries
	progress *progressStore
}

func Open(root string, filter imaging.Filter) (*Library, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", root)
	}

	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read library %s: %w", root, err)
	}

	var order []string
	for _, entry := range dirEntries {
		if !entry.IsDir() && isArchiveExt(entry.Name()) {
			order = append(order, entry.Name())
		}
	}
	sort.Slice(order, func(i, j int) bool { return natural.Less(order[i], order[j]) })

	progress, err := loadProgress(filepath.Join(root, progressFileName))
	if err != nil {
		return nil, err
	}

	return &Library{
		root:     root,
		filter:   filter,
		order:    order,
		entries:  make(map[string][]string),
		progress: progress,
	}, nil
}

// Books returns the book ids in reading order.
func (l *Library) Books() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.order...)
}

// bookEntries lists an archive's image entries, natural-sorted, caching
// the listing.
func (l *Library) bookEntries(bookID string) ([]string, error) {
	l.mu.Lock()
	if cached, ok := l.entries[bookID]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	entries, err := listArchiveEntries(filepath.Join(l.root, bookID))
	if err != nil {
		return nil, fmt.Errorf("list pages of %s: %w", bookID, err)
	}
	sort.Slice(entries, func(i, j int) bool { return natural.Less(entries[i], entries[j]) })

	l.mu.Lock()
	l.entries[bookID] = entries
	l.mu.Unlock()
	return entries, nil
}

func (l *Library) indexOf(bookID string) int {
	for i, id := range l.order {
		if id == bookID {
			return i
		}
	}
	return -1
}

func (l *Library) Book(ctx context.Context, bookID string) (reader.Book, error) {
	l.mu.Lock()
	known := l.indexOf(bookID) >= 0
	l.mu.Unlock()
	if !known {
		return reader.Book{}, fmt.Errorf("no book %s in %s", bookID, l.root)
	}

	entries, err := l.bookEntries(bookID)
	if err != nil {
		return reader.Book{}, err
	}

	book := reader.Book{
		ID:        bookID,
		SeriesID:  filepath.Base(l.root),
		Title:     strings.TrimSuffix(bookID, filepath.Ext(bookID)),
		PageCount: len(entries),
	}
	if saved, ok := l.progress.get(bookID); ok {
		book.ReadProgress = &reader.ReadProgress{Page: saved.Page, Completed: saved.Completed}
	}
	return book, nil
}

func (l *Library) BookPages(ctx context.Context, bookID string) ([]reader.PageMetadata, error) {
	entries, err := l.bookEntries(bookID)
	if err != nil {
		return nil, err
	}
	pages := make([]reader.PageMetadata, 0, len(entries))
	for i := range entries {
		// Sizes stay unknown until a probe or decode; archives carry no
		// dimension metadata.
		pages = append(pages, reader.PageMetadata{BookID: bookID, Number: i + 1})
	}
	return pages, nil
}

func (l *Library) sibling(bookID string, step int) (*reader.Book, error) {
	l.mu.Lock()
	index := l.indexOf(bookID)
	var siblingID string
	if index >= 0 {
		if j := index + step; j >= 0 && j < len(l.order) {
			siblingID = l.order[j]
		}
	}
	l.mu.Unlock()

	if index < 0 {
		return nil, fmt.Errorf("no book %s in %s", bookID, l.root)
	}
	if siblingID == "" {
		return nil, nil
	}
	book, err := l.Book(context.Background(), siblingID)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (l *Library) PreviousBook(ctx context.Context, bookID string) (*reader.Book, error) {
	return l.sibling(bookID, -1)
}

func (l *Library) NextBook(ctx context.Context, bookID string) (*reader.Book, error) {
	return l.sibling(bookID, 1)
}

func (l *Library) MarkProgress(ctx context.Context, bookID string, page int) error {
	entries, err := l.bookEntries(bookID)
	if err != nil {
		return err
	}
	return l.progress.set(bookID, savedProgress{
		Page:      page,
		Completed: page >= len(entries),
	})
}

// entryFor maps a page id to its archive entry name.
func (l *Library) entryFor(id reader.PageID) (string, error) {
	entries, err := l.bookEntries(id.BookID)
	if err != nil {
		return "", err
	}
	if id.Number < 1 || id.Number > len(entries) {
		return "", fmt.Errorf("book %s has no page %d", id.BookID, id.Number)
	}
	return entries[id.Number-1], nil
}

func (l *Library) FetchPage(ctx context.Context, id reader.PageID, targetSize geometry.Size, allowUpsample bool) (reader.ReaderImage, error) {
	entry, err := l.entryFor(id)
	if err != nil {
		return nil, err
	}
	data, err := readArchiveEntry(filepath.Join(l.root, id.BookID), entry)
	if err != nil {
		return nil, fmt.Errorf("read page %d of %s: %w", id.Number, id.BookID, err)
	}
	img, original, err := imaging.DecodeScaled(data, targetSize, l.filter)
	if err != nil {
		return nil, fmt.Errorf("decode page %d of %s: %w", id.Number, id.BookID, err)
	}
	return imaging.NewPageImage(id, img, original), nil
}

func (l *Library) FetchOriginalSize(ctx context.Context, id reader.PageID) (geometry.Size, error) {
	entry, err := l.entryFor(id)
	if err != nil {
		return geometry.Size{}, err
	}
	data, err := readArchiveEntry(filepath.Join(l.root, id.BookID), entry)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("read page %d of %s: %w", id.Number, id.BookID, err)
	}
	size, err := imaging.DecodeSize(data)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("probe page %d of %s: %w", id.Number, id.BookID, err)
	}
	return size, nil
}
