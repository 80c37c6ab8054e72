package keyboard

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUntranslatable is returned by Resolve for keys outside the US table.
var ErrUntranslatable = errors.New("couldn't translate key")

// KeyCode is the result of resolving a key: the HID usage to press and the
// modifier the key needs on its own (e.g. SHIFT_L for '!' or 'A').
type KeyCode struct {
	Usage    uint8
	Modifier Modifier
}

// keyCodes maps special key names and single characters to HID usages.
// Shifted and unshifted glyphs on the same physical key share a usage.
var keyCodes = map[string]uint8{
	// Function keys
	"F1": KeyF1, "F2": KeyF2, "F3": KeyF3, "F4": KeyF4,
	"F5": KeyF5, "F6": KeyF6, "F7": KeyF7, "F8": KeyF8,
	"F9": KeyF9, "F10": KeyF10, "F11": KeyF11, "F12": KeyF12,

	// Symbols above the row of numbers
	"!": Key1, "@": Key2, "#": Key3, "$": Key4, "%": Key5,
	"^": Key6, "&": Key7, "*": Key8, "(": Key9, ")": Key0,

	// Row of numbers
	"1": Key1, "2": Key2, "3": Key3, "4": Key4, "5": Key5,
	"6": Key6, "7": Key7, "8": Key8, "9": Key9, "0": Key0,

	// Navigation/Editing
	"INSERT": KeyInsert, "HOME": KeyHome, "PRIOR": KeyPageUp,
	"DELETE": KeyDelete, "END": KeyEnd, "NEXT": KeyPageDown,

	"ENTER": KeyEnter, "ESCAPE": KeyEscape, "BACKSPACE": KeyBackspace,
	"TAB": KeyTab, " ": KeySpace,

	// One physical key per row
	"-": KeyMinus, "_": KeyMinus,
	"=": KeyEqual, "+": KeyEqual,
	"[": KeyLeftBrace, "{": KeyLeftBrace,
	"]": KeyRightBrace, "}": KeyRightBrace,
	`\`: KeyBackslash, "|": KeyBackslash,
	";": KeySemicolon, ":": KeySemicolon,
	"'": KeyApostrophe, `"`: KeyApostrophe,
	"`": KeyGrave, "~": KeyGrave,
	",": KeyComma, "<": KeyComma,
	".": KeyPeriod, ">": KeyPeriod,
	"/": KeySlash, "?": KeySlash,

	// Arrow keys
	"RIGHT": KeyRight, "LEFT": KeyLeft, "DOWN": KeyDown, "UP": KeyUp,
}

// shiftKeys are table entries that need SHIFT_L to produce their glyph.
var shiftKeys = map[string]bool{
	"!": true, "@": true, "#": true, "$": true, "%": true,
	"^": true, "&": true, "*": true, "(": true, ")": true,
	"_": true, "+": true, "{": true, "}": true, "|": true,
	":": true, `"`: true, "~": true, "<": true, ">": true, "?": true,
}

// Resolve translates a special key name ("F2", "ENTER") or a single
// character ("a", "Z", "!") into its HID usage and implied modifier.
func Resolve(key string) (KeyCode, error) {
	if usage, ok := keyCodes[key]; ok {
		kc := KeyCode{Usage: usage}
		if shiftKeys[key] {
			kc.Modifier = ModShiftL
		}
		return kc, nil
	}

	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'A' && c <= 'Z':
			return KeyCode{Usage: c - 'A' + KeyA, Modifier: ModShiftL}, nil
		case c >= 'a' && c <= 'z':
			return KeyCode{Usage: c - 'a' + KeyA}, nil
		}
	}

	if len([]rune(key)) == 1 {
		return KeyCode{}, fmt.Errorf("%w: '%s'", ErrUntranslatable, key)
	}
	return KeyCode{}, fmt.Errorf("%w: <%s>", ErrUntranslatable, key)
}

// ResolveRune is Resolve for a single literal character.
func ResolveRune(r rune) (KeyCode, error) {
	return Resolve(string(r))
}

// KeyNames returns the special key names usable inside <...>, sorted.
func KeyNames() []string {
	var names []string
	for name := range keyCodes {
		if len(name) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ModifierNames returns the modifier names usable inside <...>, sorted.
func ModifierNames() []string {
	names := make([]string, 0, len(modifierNames))
	for name := range modifierNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
