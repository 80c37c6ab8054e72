// Package keyboard maps script key names and characters to USB HID boot
// keyboard usages (US layout) and builds the 8-byte reports sent for them.
package keyboard

import "strings"

// Modifier is the modifier byte of a boot keyboard report.
type Modifier uint8

// Modifier key bitmasks
const (
	ModNone           Modifier = 0x00
	ModControlL       Modifier = 0x01
	ModShiftL         Modifier = 0x02
	ModAltL           Modifier = 0x04
	ModSuperL         Modifier = 0x08 // Windows/Command key, also MULTI
	ModControlR       Modifier = 0x10
	ModShiftR         Modifier = 0x20
	ModISOLevel3Shift Modifier = 0x40 // AltGr
	ModMenu           Modifier = 0x80
)

// HID usage codes used by the script language (USB HID Keyboard/Keypad page).
const (
	KeyA = 0x04
	KeyZ = 0x1D

	// Numbers 1-0 (top row)
	Key1 = 0x1E
	Key2 = 0x1F
	Key3 = 0x20
	Key4 = 0x21
	Key5 = 0x22
	Key6 = 0x23
	Key7 = 0x24
	Key8 = 0x25
	Key9 = 0x26
	Key0 = 0x27

	KeyEnter      = 0x28
	KeyEscape     = 0x29
	KeyBackspace  = 0x2A
	KeyTab        = 0x2B
	KeySpace      = 0x2C
	KeyMinus      = 0x2D // - and _
	KeyEqual      = 0x2E // = and +
	KeyLeftBrace  = 0x2F // [ and {
	KeyRightBrace = 0x30 // ] and }
	KeyBackslash  = 0x31 // \ and |
	KeySemicolon  = 0x33 // ; and :
	KeyApostrophe = 0x34 // ' and "
	KeyGrave      = 0x35 // ` and ~
	KeyComma      = 0x36 // , and <
	KeyPeriod     = 0x37 // . and >
	KeySlash      = 0x38 // / and ?

	KeyF1  = 0x3A
	KeyF2  = 0x3B
	KeyF3  = 0x3C
	KeyF4  = 0x3D
	KeyF5  = 0x3E
	KeyF6  = 0x3F
	KeyF7  = 0x40
	KeyF8  = 0x41
	KeyF9  = 0x42
	KeyF10 = 0x43
	KeyF11 = 0x44
	KeyF12 = 0x45

	KeyInsert   = 0x49
	KeyHome     = 0x4A
	KeyPageUp   = 0x4B // PRIOR
	KeyDelete   = 0x4C
	KeyEnd      = 0x4D
	KeyPageDown = 0x4E // NEXT

	KeyRight = 0x4F
	KeyLeft  = 0x50
	KeyDown  = 0x51
	KeyUp    = 0x52
)

var modifierNames = map[string]Modifier{
	"CONTROL_L":        ModControlL,
	"SHIFT_L":          ModShiftL,
	"ALT_L":            ModAltL,
	"SUPER_L":          ModSuperL,
	"MULTI":            ModSuperL,
	"CONTROL_R":        ModControlR,
	"SHIFT_R":          ModShiftR,
	"MENU":             ModMenu,
	"ISO_LEVEL3_SHIFT": ModISOLevel3Shift,
}

// ModifierByName looks up a modifier by its script name (e.g. "SHIFT_L").
// Names are case-sensitive.
func ModifierByName(name string) (Modifier, bool) {
	m, ok := modifierNames[name]
	return m, ok
}

// String returns the script name of a single modifier bit. MULTI and SUPER_L
// share a bit and render as SUPER_L.
func (m Modifier) String() string {
	if m == ModNone {
		return "NONE"
	}
	var parts []string
	for _, bit := range []struct {
		m    Modifier
		name string
	}{
		{ModControlL, "CONTROL_L"},
		{ModShiftL, "SHIFT_L"},
		{ModAltL, "ALT_L"},
		{ModSuperL, "SUPER_L"},
		{ModControlR, "CONTROL_R"},
		{ModShiftR, "SHIFT_R"},
		{ModISOLevel3Shift, "ISO_LEVEL3_SHIFT"},
		{ModMenu, "MENU"},
	} {
		if m&bit.m != 0 {
			parts = append(parts, bit.name)
		}
	}
	return strings.Join(parts, "|")
}
