package reader

import (
	"context"

	"komavi/internal/geometry"
)

// ReaderImage is a decoded page image handle. Implementations own the
// pixel data; Close must be idempotent.
type ReaderImage interface {
	PageID() PageID
	OriginalSize() geometry.Size

	// CalculateSizeForArea returns the display size for the image inside
	// max. With stretch false the image is never scaled above its
	// original size.
	CalculateSizeForArea(max geometry.Size, stretch bool) geometry.Size

	// RequestUpdate tells the image which display region is visible so it
	// can restrict decoding/rendering to that slice.
	RequestUpdate(visible geometry.Rect, zoomFactor float64, maxSize geometry.Size)

	Close()
}

// ImageResult is a per-page fetch outcome. Exactly one of Image and Err
// is set; a failed page never aborts its siblings.
type ImageResult struct {
	Image ReaderImage
	Err   error
}

// ImageSource fetches decoded page images.
type ImageSource interface {
	// FetchPage decodes the page at the given target size. A zero target
	// size requests the original dimensions.
	FetchPage(ctx context.Context, id PageID, targetSize geometry.Size, allowUpsample bool) (ReaderImage, error)

	// FetchOriginalSize probes the page's true pixel dimensions without
	// populating any size-keyed cache.
	FetchOriginalSize(ctx context.Context, id PageID) (geometry.Size, error)
}

// BookSource yields book metadata and sibling pointers.
type BookSource interface {
	Book(ctx context.Context, bookID string) (Book, error)
	BookPages(ctx context.Context, bookID string) ([]PageMetadata, error)

	// PreviousBook and NextBook return nil when no sibling exists.
	PreviousBook(ctx context.Context, bookID string) (*Book, error)
	NextBook(ctx context.Context, bookID string) (*Book, error)

	MarkProgress(ctx context.Context, bookID string, page int) error
}

// SettingsStore persists reader preferences.
type SettingsStore interface {
	ReaderSettings() (Settings, error)
	SaveReaderSettings(Settings) error
}

// Notifier shows a short user-facing message. Implementations must not
// block.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards all messages.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}
