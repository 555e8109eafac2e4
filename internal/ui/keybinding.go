package ui

import (
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// KeybindingManager resolves the config's action -> key strings table
// against ebiten's per-frame key state.
type KeybindingManager struct {
	keybindings map[string][]string
	keyMapping  map[string]ebiten.Key
}

// NewKeybindingManager creates a new KeybindingManager
func NewKeybindingManager(keybindings map[string][]string) *KeybindingManager {
	return &KeybindingManager{
		keybindings: keybindings,
		keyMapping:  getKeyMapping(),
	}
}

// getKeyMapping returns a mapping from string keys to Ebiten keys
func getKeyMapping() map[string]ebiten.Key {
	return map[string]ebiten.Key{
		// Letters
		"KeyA": ebiten.KeyA, "KeyB": ebiten.KeyB, "KeyC": ebiten.KeyC, "KeyD": ebiten.KeyD,
		"KeyE": ebiten.KeyE, "KeyF": ebiten.KeyF, "KeyG": ebiten.KeyG, "KeyH": ebiten.KeyH,
		"KeyI": ebiten.KeyI, "KeyJ": ebiten.KeyJ, "KeyK": ebiten.KeyK, "KeyL": ebiten.KeyL,
		"KeyM": ebiten.KeyM, "KeyN": ebiten.KeyN, "KeyO": ebiten.KeyO, "KeyP": ebiten.KeyP,
		"KeyQ": ebiten.KeyQ, "KeyR": ebiten.KeyR, "KeyS": ebiten.KeyS, "KeyT": ebiten.KeyT,
		"KeyU": ebiten.KeyU, "KeyV": ebiten.KeyV, "KeyW": ebiten.KeyW, "KeyX": ebiten.KeyX,
		"KeyY": ebiten.KeyY, "KeyZ": ebiten.KeyZ,

		// Numbers
		"Key0": ebiten.Key0, "Key1": ebiten.Key1, "Key2": ebiten.Key2, "Key3": ebiten.Key3,
		"Key4": ebiten.Key4, "Key5": ebiten.Key5, "Key6": ebiten.Key6, "Key7": ebiten.Key7,
		"Key8": ebiten.Key8, "Key9": ebiten.Key9,

		// Special keys
		"Space":      ebiten.KeySpace,
		"Backspace":  ebiten.KeyBackspace,
		"Enter":      ebiten.KeyEnter,
		"Escape":     ebiten.KeyEscape,
		"Tab":        ebiten.KeyTab,
		"Home":       ebiten.KeyHome,
		"End":        ebiten.KeyEnd,
		"PageUp":     ebiten.KeyPageUp,
		"PageDown":   ebiten.KeyPageDown,
		"ArrowUp":    ebiten.KeyArrowUp,
		"ArrowDown":  ebiten.KeyArrowDown,
		"ArrowLeft":  ebiten.KeyArrowLeft,
		"ArrowRight": ebiten.KeyArrowRight,

		// Punctuation
		"Comma":     ebiten.KeyComma,
		"Period":    ebiten.KeyPeriod,
		"Slash":     ebiten.KeySlash,
		"Semicolon": ebiten.KeySemicolon,
		"Quote":     ebiten.KeyQuote,
		"Minus":     ebiten.KeyMinus,
		"Equal":     ebiten.KeyEqual,

		// Numpad
		"Numpad0":        ebiten.KeyNumpad0,
		"Numpad1":        ebiten.KeyNumpad1,
		"Numpad2":        ebiten.KeyNumpad2,
		"Numpad3":        ebiten.KeyNumpad3,
		"Numpad4":        ebiten.KeyNumpad4,
		"Numpad5":        ebiten.KeyNumpad5,
		"Numpad6":        ebiten.KeyNumpad6,
		"Numpad7":        ebiten.KeyNumpad7,
		"Numpad8":        ebiten.KeyNumpad8,
		"Numpad9":        ebiten.KeyNumpad9,
		"NumpadEnter":    ebiten.KeyNumpadEnter,
		"NumpadAdd":      ebiten.KeyNumpadAdd,
		"NumpadSubtract": ebiten.KeyNumpadSubtract,
	}
}

// KeyCombination represents a key with optional modifiers
type KeyCombination struct {
	Key   ebiten.Key
	Shift bool
	Ctrl  bool
	Alt   bool
}

// parseKeyString parses a key string like "shift+KeyD" into a KeyCombination
func (km *KeybindingManager) parseKeyString(keyStr string) (*KeyCombination, bool) {
	parts := strings.Split(keyStr, "+")
	if len(parts) == 0 {
		return nil, false
	}

	combination := &KeyCombination{}

	// Last part should be the actual key
	keyName := parts[len(parts)-1]
	key, exists := km.keyMapping[keyName]
	if !exists {
		return nil, false
	}
	combination.Key = key

	// Check for modifiers
	for i := 0; i < len(parts)-1; i++ {
		switch strings.ToLower(parts[i]) {
		case "shift":
			combination.Shift = true
		case "ctrl":
			combination.Ctrl = true
		case "alt":
			combination.Alt = true
		}
	}

	return combination, true
}

// isKeyPressed checks if a key combination is currently being pressed
func (km *KeybindingManager) isKeyPressed(combination *KeyCombination) bool {
	// Check if the main key was just pressed
	if !inpututil.IsKeyJustPressed(combination.Key) {
		return false
	}

	// Check modifiers
	if combination.Shift && !ebiten.IsKeyPressed(ebiten.KeyShift) {
		return false
	}
	if combination.Ctrl && !ebiten.IsKeyPressed(ebiten.KeyControl) {
		return false
	}
	if combination.Alt && !ebiten.IsKeyPressed(ebiten.KeyAlt) {
		return false
	}

	// Check that unwanted modifiers aren't pressed
	if !combination.Shift && ebiten.IsKeyPressed(ebiten.KeyShift) {
		return false
	}
	if !combination.Ctrl && ebiten.IsKeyPressed(ebiten.KeyControl) {
		return false
	}
	if !combination.Alt && ebiten.IsKeyPressed(ebiten.KeyAlt) {
		return false
	}

	return true
}

// CheckAction checks if any keybinding for the given action is pressed
func (km *KeybindingManager) CheckAction(action string) bool {
	keyStrings, exists := km.keybindings[action]
	if !exists {
		return false
	}

	for _, keyStr := range keyStrings {
		combination, valid := km.parseKeyString(keyStr)
		if valid && km.isKeyPressed(combination) {
			return true
		}
	}

	return false
}

// GetKeybindings returns the current keybindings map (for display purposes)
func (km *KeybindingManager) GetKeybindings() map[string][]string {
	return km.keybindings
}

// actionDescriptions maps actions to the help overlay's descriptions.
var actionDescriptions = map[string]string{
	"next_page":         "Next page / spread",
	"previous_page":     "Previous page / spread",
	"first_page":        "First page of book",
	"last_page":         "Last page of book",
	"scroll_forward":    "Scroll forward (continuous)",
	"scroll_backward":   "Scroll backward (continuous)",
	"toggle_mode":       "Toggle paged / continuous mode",
	"cycle_layout":      "Cycle single / double page layout",
	"toggle_offset":     "Toggle double page offset",
	"cycle_scale_type":  "Cycle scale type",
	"toggle_direction":  "Toggle reading direction",
	"toggle_stretch":    "Toggle stretch to fit",
	"toggle_upsample":   "Toggle upsampling",
	"zoom_in":           "Zoom in",
	"zoom_out":          "Zoom out",
	"zoom_reset":        "Reset zoom",
	"page_jump":         "Jump to page number",
	"toggle_fullscreen": "Toggle fullscreen",
	"toggle_info":       "Toggle info display",
	"toggle_help":       "Toggle this help",
	"match_metadata":    "Match series metadata (komf)",
	"reset_metadata":    "Reset series metadata (komf)",
	"quit":              "Quit",
}

// helpLines renders the keybinding table into sorted display lines.
func helpLines(keybindings map[string][]string) []string {
	actions := make([]string, 0, len(keybindings))
	for action := range keybindings {
		if _, known := actionDescriptions[action]; known {
			actions = append(actions, action)
		}
	}
	sort.Strings(actions)

	lines := make([]string, 0, len(actions))
	for _, action := range actions {
		keys := strings.Join(keybindings[action], ", ")
		lines = append(lines, keys+"  -  "+actionDescriptions[action])
	}
	return lines
}
