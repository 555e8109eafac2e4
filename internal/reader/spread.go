package reader

import "komavi/internal/geometry"

// Spread is an ordered group of 1-2 pages displayed together. Landscape
// pages always get a spread of their own.
type Spread struct {
	Pages []PageMetadata
}

// BuildSpreads partitions pages into display spreads. The partition
// covers every page exactly once, in order. With doublePageOffset the
// first double-page chunk holds a single page, shifting pair alignment
// by one for books whose page 1 is a cover.
func BuildSpreads(pages []PageMetadata, layout PageLayout, doublePageOffset bool) []Spread {
	if len(pages) == 0 {
		return nil
	}
	if layout == SinglePage {
		spreads := make([]Spread, 0, len(pages))
		for _, p := range pages {
			spreads = append(spreads, Spread{Pages: []PageMetadata{p}})
		}
		return spreads
	}
	return buildDoublePageSpreads(pages, doublePageOffset)
}

func buildDoublePageSpreads(pages []PageMetadata, offset bool) []Spread {
	var spreads []Spread

	for _, chunk := range chunkPairs(pages, offset) {
		var buffer []PageMetadata
		for _, page := range chunk {
			if page.IsLandscape() {
				if len(buffer) > 0 {
					spreads = append(spreads, Spread{Pages: buffer})
					buffer = nil
				}
				spreads = append(spreads, Spread{Pages: []PageMetadata{page}})
			} else {
				buffer = append(buffer, page)
			}
		}
		if len(buffer) > 0 {
			spreads = append(spreads, Spread{Pages: buffer})
		}
	}

	return spreads
}

// chunkPairs splits pages into chunks of 2, with an initial chunk of 1
// when offset is set.
func chunkPairs(pages []PageMetadata, offset bool) [][]PageMetadata {
	var chunks [][]PageMetadata
	rest := pages
	if offset {
		chunks = append(chunks, rest[:1])
		rest = rest[1:]
	}
	for len(rest) > 0 {
		n := 2
		if len(rest) < 2 {
			n = len(rest)
		}
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}
	return chunks
}

// SpreadIndexOf returns the index of the spread containing the given
// page number, or 0 when not found.
func SpreadIndexOf(spreads []Spread, pageNumber int) int {
	for i, spread := range spreads {
		for _, p := range spread.Pages {
			if p.Number == pageNumber {
				return i
			}
		}
	}
	return 0
}

// spreadContentSize lays pages out side by side: widths sum, height is
// the max across pages. Unsized pages contribute maxPageSize.
func spreadContentSize(pages []PageMetadata, maxPageSize geometry.Size) geometry.Size {
	var total geometry.Size
	for _, p := range pages {
		size := p.ContentSizeForArea(maxPageSize)
		total.Width += size.Width
		if size.Height > total.Height {
			total.Height = size.Height
		}
	}
	return total
}
