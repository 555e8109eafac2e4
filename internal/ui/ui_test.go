package ui

import (
	"strings"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"komavi/internal/config"
	"komavi/internal/reader"
)

var _ reader.ScrollController = (*StripList)(nil)
var _ reader.Notifier = (*Notices)(nil)

func TestParseKeyString(t *testing.T) {
	km := NewKeybindingManager(nil)

	tests := []struct {
		input string
		want  KeyCombination
		ok    bool
	}{
		{input: "KeyA", want: KeyCombination{Key: ebiten.KeyA}, ok: true},
		{input: "shift+KeyD", want: KeyCombination{Key: ebiten.KeyD, Shift: true}, ok: true},
		{input: "ctrl+alt+KeyZ", want: KeyCombination{Key: ebiten.KeyZ, Ctrl: true, Alt: true}, ok: true},
		{input: "NumpadAdd", want: KeyCombination{Key: ebiten.KeyNumpadAdd}, ok: true},
		{input: "Bogus", ok: false},
		{input: "shift+Bogus", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := km.parseKeyString(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseKeyString(%q) ok = %t, want %t", tt.input, ok, tt.ok)
			}
			if ok && *got != tt.want {
				t.Errorf("parseKeyString(%q) = %+v, want %+v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestHelpLinesKnownActionsOnly(t *testing.T) {
	lines := helpLines(map[string][]string{
		"quit":          {"KeyQ"},
		"next_page":     {"ArrowRight", "Space"},
		"not_an_action": {"KeyX"},
	})

	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2 entries", lines)
	}
	// Sorted by action name: next_page before quit.
	if !strings.Contains(lines[0], "ArrowRight, Space") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Quit") {
		t.Errorf("second line = %q", lines[1])
	}
	for _, line := range lines {
		if strings.Contains(line, "KeyX") {
			t.Errorf("unknown action leaked into help: %q", line)
		}
	}
}

// Every default action must show up in the help overlay, and every
// described action must have a default binding; a mismatch means an
// action was added on one side only.
func TestDefaultActionsAndDescriptionsMatch(t *testing.T) {
	defaults := config.GetDefaultKeybindings()
	for action := range defaults {
		if _, ok := actionDescriptions[action]; !ok {
			t.Errorf("default action %q has no help description", action)
		}
	}
	for action := range actionDescriptions {
		if _, ok := defaults[action]; !ok {
			t.Errorf("described action %q has no default binding", action)
		}
	}
}

func stripItems(extents ...float64) []stripItem {
	items := make([]stripItem, len(extents))
	pos := 0.0
	for i, extent := range extents {
		items[i] = stripItem{start: pos, extent: extent}
		pos += extent
	}
	return items
}

func TestVisibleRange(t *testing.T) {
	items := stripItems(100, 200, 300, 100)

	tests := []struct {
		name      string
		offset    float64
		extent    float64
		overscan  int
		wantFirst int
		wantLast  int
	}{
		{name: "from start", offset: 0, extent: 150, wantFirst: 0, wantLast: 1},
		{name: "mid list", offset: 150, extent: 200, wantFirst: 1, wantLast: 2},
		{name: "item boundary excluded", offset: 100, extent: 200, wantFirst: 1, wantLast: 1},
		{name: "tail", offset: 650, extent: 100, wantFirst: 3, wantLast: 3},
		{name: "past end", offset: 900, extent: 100, wantFirst: -1, wantLast: -1},
		{name: "overscan clamps", offset: 0, extent: 150, overscan: 5, wantFirst: 0, wantLast: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := visibleRange(items, tt.offset, tt.extent, tt.overscan)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("visibleRange = (%d, %d), want (%d, %d)", first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestTotalExtent(t *testing.T) {
	if got := totalExtent(nil); got != 0 {
		t.Errorf("empty extent = %v", got)
	}
	if got := totalExtent(stripItems(100, 200, 50)); got != 350 {
		t.Errorf("extent = %v, want 350", got)
	}
}

func TestNotices(t *testing.T) {
	n := NewNotices()
	if got := n.Current(); got != "" {
		t.Errorf("fresh notices show %q", got)
	}
	n.Notify("saved")
	if got := n.Current(); got != "saved" {
		t.Errorf("Current = %q, want saved", got)
	}
	n.Notify("replaced")
	if got := n.Current(); got != "replaced" {
		t.Errorf("Current = %q, want replaced", got)
	}
}

func TestModeString(t *testing.T) {
	if ModePaged.String() != "paged" || ModeContinuous.String() != "continuous" {
		t.Error("mode names changed")
	}
}
