package reader

import "komavi/internal/geometry"

// PageID identifies a page independently of display parameters.
type PageID struct {
	BookID string
	Number int
}

// PageMetadata describes one page of a book. Size stays nil until the
// server reports dimensions or a decode reveals them.
type PageMetadata struct {
	BookID string
	Number int // 1-based
	Size   *geometry.Size
}

func (p PageMetadata) ID() PageID {
	return PageID{BookID: p.BookID, Number: p.Number}
}

func (p PageMetadata) IsLandscape() bool {
	if p.Size == nil {
		return false
	}
	return p.Size.Width > p.Size.Height
}

// ContentSizeForArea scales the page to fit inside max, preserving aspect
// ratio. Pages with unknown dimensions fill the whole area.
func (p PageMetadata) ContentSizeForArea(max geometry.Size) geometry.Size {
	if p.Size == nil {
		return max
	}
	return geometry.FitInto(*p.Size, max)
}

// WithSize returns a copy of the page with discovered dimensions.
func (p PageMetadata) WithSize(size geometry.Size) PageMetadata {
	s := size
	p.Size = &s
	return p
}

// Book is the metadata of a single readable book.
type Book struct {
	ID           string
	SeriesID     string
	Title        string
	PageCount    int
	ReadProgress *ReadProgress
}

type ReadProgress struct {
	Page      int
	Completed bool
}

// BookState is one snapshot of the session's sliding book window:
// the current book plus its known siblings.
type BookState struct {
	CurrentBook       Book
	CurrentBookPages  []PageMetadata
	PreviousBook      *Book
	PreviousBookPages []PageMetadata
	NextBook          *Book
	NextBookPages     []PageMetadata
}

// PageLayout selects how many pages share one spread in paged mode.
type PageLayout int

const (
	SinglePage PageLayout = iota
	DoublePages
)

func (l PageLayout) String() string {
	switch l {
	case SinglePage:
		return "single page"
	case DoublePages:
		return "double pages"
	default:
		return "unknown"
	}
}

// Next cycles through layouts in declaration order, wrapping.
func (l PageLayout) Next() PageLayout {
	return (l + 1) % (DoublePages + 1)
}

// ScaleType selects the baseline zoom applied when a spread loads.
type ScaleType int

const (
	ScaleScreen ScaleType = iota
	ScaleFitWidth
	ScaleFitHeight
	ScaleOriginal
)

func (s ScaleType) String() string {
	switch s {
	case ScaleScreen:
		return "screen"
	case ScaleFitWidth:
		return "fit width"
	case ScaleFitHeight:
		return "fit height"
	case ScaleOriginal:
		return "original"
	default:
		return "unknown"
	}
}

func (s ScaleType) Next() ScaleType {
	return (s + 1) % (ScaleOriginal + 1)
}

// ReadingDirection is the paged-mode page order on screen.
type ReadingDirection int

const (
	LeftToRight ReadingDirection = iota
	RightToLeft
)

func (d ReadingDirection) String() string {
	if d == RightToLeft {
		return "right to left"
	}
	return "left to right"
}

// ContinuousDirection is the continuous-mode scroll axis and order.
type ContinuousDirection int

const (
	TopToBottom ContinuousDirection = iota
	ContinuousLeftToRight
	ContinuousRightToLeft
)

func (d ContinuousDirection) String() string {
	switch d {
	case ContinuousLeftToRight:
		return "left to right"
	case ContinuousRightToLeft:
		return "right to left"
	default:
		return "top to bottom"
	}
}

// Settings are the persisted reader preferences.
type Settings struct {
	PagedLayout         PageLayout
	DoublePageOffset    bool
	ScaleType           ScaleType
	PagedDirection      ReadingDirection
	ContinuousDirection ContinuousDirection
	StretchToFit        bool
	AllowUpsample       bool
	SidePaddingFraction float64
	PageSpacing         int
}
