package reader

import (
	"testing"

	"komavi/internal/geometry"
)

func portrait(number int) PageMetadata {
	size := geometry.Size{Width: 800, Height: 1200}
	return PageMetadata{BookID: "book1", Number: number, Size: &size}
}

func landscape(number int) PageMetadata {
	size := geometry.Size{Width: 1600, Height: 1000}
	return PageMetadata{BookID: "book1", Number: number, Size: &size}
}

func spreadNumbers(spreads []Spread) [][]int {
	var got [][]int
	for _, s := range spreads {
		var numbers []int
		for _, p := range s.Pages {
			numbers = append(numbers, p.Number)
		}
		got = append(got, numbers)
	}
	return got
}

func sameSpreads(a [][]int, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestBuildSpreads(t *testing.T) {
	tests := []struct {
		name   string
		pages  []PageMetadata
		layout PageLayout
		offset bool
		want   [][]int
	}{
		{
			name:   "single page layout",
			pages:  []PageMetadata{portrait(1), portrait(2), portrait(3)},
			layout: SinglePage,
			want:   [][]int{{1}, {2}, {3}},
		},
		{
			name:   "double pages",
			pages:  []PageMetadata{portrait(1), portrait(2), portrait(3), portrait(4)},
			layout: DoublePages,
			want:   [][]int{{1, 2}, {3, 4}},
		},
		{
			name:   "double pages with offset",
			pages:  []PageMetadata{portrait(1), portrait(2), portrait(3), portrait(4)},
			layout: DoublePages,
			offset: true,
			want:   [][]int{{1}, {2, 3}, {4}},
		},
		{
			name:   "landscape page gets its own spread",
			pages:  []PageMetadata{portrait(1), landscape(2), portrait(3), portrait(4)},
			layout: DoublePages,
			want:   [][]int{{1}, {2}, {3, 4}},
		},
		{
			name:   "landscape first in chunk",
			pages:  []PageMetadata{landscape(1), portrait(2), portrait(3)},
			layout: DoublePages,
			want:   [][]int{{1}, {2}, {3}},
		},
		{
			name:   "odd page count leaves a trailing singleton",
			pages:  []PageMetadata{portrait(1), portrait(2), portrait(3)},
			layout: DoublePages,
			want:   [][]int{{1, 2}, {3}},
		},
		{
			name:   "single page book",
			pages:  []PageMetadata{portrait(1)},
			layout: DoublePages,
			want:   [][]int{{1}},
		},
		{
			name:   "unsized pages are treated as portrait",
			pages:  []PageMetadata{{BookID: "book1", Number: 1}, {BookID: "book1", Number: 2}},
			layout: DoublePages,
			want:   [][]int{{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spreadNumbers(BuildSpreads(tt.pages, tt.layout, tt.offset))
			if !sameSpreads(got, tt.want) {
				t.Errorf("BuildSpreads = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildSpreadsEmpty(t *testing.T) {
	if got := BuildSpreads(nil, DoublePages, true); got != nil {
		t.Errorf("empty page list should produce no spreads, got %v", got)
	}
}

func TestBuildSpreadsPartition(t *testing.T) {
	pages := []PageMetadata{
		portrait(1), landscape(2), portrait(3), portrait(4), landscape(5), portrait(6), portrait(7),
	}

	for _, offset := range []bool{false, true} {
		spreads := BuildSpreads(pages, DoublePages, offset)

		var flattened []int
		for _, s := range spreads {
			if len(s.Pages) == 0 || len(s.Pages) > 2 {
				t.Fatalf("offset=%t: spread size %d out of range", offset, len(s.Pages))
			}
			if len(s.Pages) == 2 && (s.Pages[0].IsLandscape() || s.Pages[1].IsLandscape()) {
				t.Fatalf("offset=%t: landscape page shares a spread", offset)
			}
			for _, p := range s.Pages {
				flattened = append(flattened, p.Number)
			}
		}

		if len(flattened) != len(pages) {
			t.Fatalf("offset=%t: partition covers %d pages, want %d", offset, len(flattened), len(pages))
		}
		for i, number := range flattened {
			if number != i+1 {
				t.Fatalf("offset=%t: pages out of order: %v", offset, flattened)
			}
		}
	}
}

func TestSpreadIndexOf(t *testing.T) {
	spreads := BuildSpreads([]PageMetadata{portrait(1), portrait(2), portrait(3), portrait(4)}, DoublePages, false)

	if got := SpreadIndexOf(spreads, 3); got != 1 {
		t.Errorf("SpreadIndexOf(3) = %d, want 1", got)
	}
	if got := SpreadIndexOf(spreads, 99); got != 0 {
		t.Errorf("SpreadIndexOf(unknown) = %d, want 0", got)
	}
}
