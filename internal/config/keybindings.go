package config

import (
	"fmt"
	"strings"
)

// GetDefaultKeybindings returns the default action -> key list table.
// Key names follow ebiten's Key naming; internal/ui resolves them.
func GetDefaultKeybindings() map[string][]string {
	return map[string][]string{
		"next_page":         {"ArrowRight", "Space", "KeyL"},
		"previous_page":     {"ArrowLeft", "Backspace", "KeyH"},
		"first_page":        {"Home"},
		"last_page":         {"End"},
		"scroll_forward":    {"ArrowDown", "KeyJ", "PageDown"},
		"scroll_backward":   {"ArrowUp", "KeyK", "PageUp"},
		"toggle_mode":       {"KeyC"},
		"cycle_layout":      {"KeyD"},
		"toggle_offset":     {"shift+KeyD"},
		"cycle_scale_type":  {"KeyS"},
		"toggle_direction":  {"KeyR"},
		"toggle_stretch":    {"KeyT"},
		"toggle_upsample":   {"KeyU"},
		"zoom_in":           {"Equal", "NumpadAdd"},
		"zoom_out":          {"Minus", "NumpadSubtract"},
		"zoom_reset":        {"Key0"},
		"page_jump":         {"KeyG"},
		"toggle_fullscreen": {"KeyF", "Enter"},
		"toggle_info":       {"KeyI"},
		"toggle_help":       {"Slash"},
		"match_metadata":    {"KeyM"},
		"reset_metadata":    {"shift+KeyM"},
		"quit":              {"KeyQ", "Escape"},
	}
}

// ValidateKeybindings checks key name format and detects conflicts.
func ValidateKeybindings(keybindings map[string][]string) error {
	keyToAction := make(map[string]string)
	validKeys := validKeyNames()

	for action, keys := range keybindings {
		for _, keyStr := range keys {
			if err := validateKeyString(keyStr, validKeys); err != nil {
				return fmt.Errorf("invalid key '%s' for action '%s': %v", keyStr, action, err)
			}

			if existingAction, exists := keyToAction[keyStr]; exists {
				return fmt.Errorf("key conflict: '%s' is bound to both '%s' and '%s'", keyStr, existingAction, action)
			}
			keyToAction[keyStr] = action
		}
	}

	return nil
}

// validateKeyString validates a single key string like "shift+KeyD".
func validateKeyString(keyStr string, validKeys map[string]bool) error {
	parts := strings.Split(keyStr, "+")
	if len(parts) == 0 {
		return fmt.Errorf("empty key string")
	}

	keyName := parts[len(parts)-1]
	if !validKeys[keyName] {
		return fmt.Errorf("unknown key: %s", keyName)
	}

	for i := 0; i < len(parts)-1; i++ {
		modifier := strings.ToLower(parts[i])
		if modifier != "shift" && modifier != "ctrl" && modifier != "alt" {
			return fmt.Errorf("unknown modifier: %s", parts[i])
		}
	}

	return nil
}

func validKeyNames() map[string]bool {
	keyMapping := map[string]bool{
		// Letters
		"KeyA": true, "KeyB": true, "KeyC": true, "KeyD": true,
		"KeyE": true, "KeyF": true, "KeyG": true, "KeyH": true,
		"KeyI": true, "KeyJ": true, "KeyK": true, "KeyL": true,
		"KeyM": true, "KeyN": true, "KeyO": true, "KeyP": true,
		"KeyQ": true, "KeyR": true, "KeyS": true, "KeyT": true,
		"KeyU": true, "KeyV": true, "KeyW": true, "KeyX": true,
		"KeyY": true, "KeyZ": true,

		// Numbers
		"Key0": true, "Key1": true, "Key2": true, "Key3": true,
		"Key4": true, "Key5": true, "Key6": true, "Key7": true,
		"Key8": true, "Key9": true,

		// Special keys
		"Space": true, "Backspace": true, "Enter": true, "Escape": true,
		"Tab": true, "Home": true, "End": true, "PageUp": true, "PageDown": true,
		"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,

		// Punctuation
		"Comma": true, "Period": true, "Slash": true, "Semicolon": true,
		"Quote": true, "Minus": true, "Equal": true,

		// Numpad
		"Numpad0": true, "Numpad1": true, "Numpad2": true, "Numpad3": true,
		"Numpad4": true, "Numpad5": true, "Numpad6": true, "Numpad7": true,
		"Numpad8": true, "Numpad9": true, "NumpadEnter": true,
		"NumpadAdd": true, "NumpadSubtract": true,
	}

	return keyMapping
}
