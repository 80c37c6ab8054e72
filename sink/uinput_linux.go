package sink

import (
	"fmt"
	"io"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/gadgetkb/gadgetkb/keyboard"
)

// modifierCodes maps boot report modifier bits, LSB first, to evdev keys.
var modifierCodes = [8]evdev.EvCode{
	evdev.KEY_LEFTCTRL,
	evdev.KEY_LEFTSHIFT,
	evdev.KEY_LEFTALT,
	evdev.KEY_LEFTMETA,
	evdev.KEY_RIGHTCTRL,
	evdev.KEY_RIGHTSHIFT,
	evdev.KEY_RIGHTALT,
	evdev.KEY_RIGHTMETA,
}

// usageCodes maps the HID usages the script language produces to evdev keys.
var usageCodes = map[uint8]evdev.EvCode{
	0x04: evdev.KEY_A, 0x05: evdev.KEY_B, 0x06: evdev.KEY_C, 0x07: evdev.KEY_D,
	0x08: evdev.KEY_E, 0x09: evdev.KEY_F, 0x0A: evdev.KEY_G, 0x0B: evdev.KEY_H,
	0x0C: evdev.KEY_I, 0x0D: evdev.KEY_J, 0x0E: evdev.KEY_K, 0x0F: evdev.KEY_L,
	0x10: evdev.KEY_M, 0x11: evdev.KEY_N, 0x12: evdev.KEY_O, 0x13: evdev.KEY_P,
	0x14: evdev.KEY_Q, 0x15: evdev.KEY_R, 0x16: evdev.KEY_S, 0x17: evdev.KEY_T,
	0x18: evdev.KEY_U, 0x19: evdev.KEY_V, 0x1A: evdev.KEY_W, 0x1B: evdev.KEY_X,
	0x1C: evdev.KEY_Y, 0x1D: evdev.KEY_Z,

	keyboard.Key1: evdev.KEY_1, keyboard.Key2: evdev.KEY_2, keyboard.Key3: evdev.KEY_3,
	keyboard.Key4: evdev.KEY_4, keyboard.Key5: evdev.KEY_5, keyboard.Key6: evdev.KEY_6,
	keyboard.Key7: evdev.KEY_7, keyboard.Key8: evdev.KEY_8, keyboard.Key9: evdev.KEY_9,
	keyboard.Key0: evdev.KEY_0,

	keyboard.KeyEnter:      evdev.KEY_ENTER,
	keyboard.KeyEscape:     evdev.KEY_ESC,
	keyboard.KeyBackspace:  evdev.KEY_BACKSPACE,
	keyboard.KeyTab:        evdev.KEY_TAB,
	keyboard.KeySpace:      evdev.KEY_SPACE,
	keyboard.KeyMinus:      evdev.KEY_MINUS,
	keyboard.KeyEqual:      evdev.KEY_EQUAL,
	keyboard.KeyLeftBrace:  evdev.KEY_LEFTBRACE,
	keyboard.KeyRightBrace: evdev.KEY_RIGHTBRACE,
	keyboard.KeyBackslash:  evdev.KEY_BACKSLASH,
	keyboard.KeySemicolon:  evdev.KEY_SEMICOLON,
	keyboard.KeyApostrophe: evdev.KEY_APOSTROPHE,
	keyboard.KeyGrave:      evdev.KEY_GRAVE,
	keyboard.KeyComma:      evdev.KEY_COMMA,
	keyboard.KeyPeriod:     evdev.KEY_DOT,
	keyboard.KeySlash:      evdev.KEY_SLASH,

	keyboard.KeyF1: evdev.KEY_F1, keyboard.KeyF2: evdev.KEY_F2, keyboard.KeyF3: evdev.KEY_F3,
	keyboard.KeyF4: evdev.KEY_F4, keyboard.KeyF5: evdev.KEY_F5, keyboard.KeyF6: evdev.KEY_F6,
	keyboard.KeyF7: evdev.KEY_F7, keyboard.KeyF8: evdev.KEY_F8, keyboard.KeyF9: evdev.KEY_F9,
	keyboard.KeyF10: evdev.KEY_F10, keyboard.KeyF11: evdev.KEY_F11, keyboard.KeyF12: evdev.KEY_F12,

	keyboard.KeyInsert:   evdev.KEY_INSERT,
	keyboard.KeyHome:     evdev.KEY_HOME,
	keyboard.KeyPageUp:   evdev.KEY_PAGEUP,
	keyboard.KeyDelete:   evdev.KEY_DELETE,
	keyboard.KeyEnd:      evdev.KEY_END,
	keyboard.KeyPageDown: evdev.KEY_PAGEDOWN,
	keyboard.KeyRight:    evdev.KEY_RIGHT,
	keyboard.KeyLeft:     evdev.KEY_LEFT,
	keyboard.KeyDown:     evdev.KEY_DOWN,
	keyboard.KeyUp:       evdev.KEY_UP,
}

// Uinput injects reports into the local input stack through a virtual
// evdev keyboard. The device is created on the first Open and kept until
// Close, since the desktop needs time to pick up a new input device.
type Uinput struct {
	Name string

	mu      sync.Mutex
	dev     *evdev.InputDevice
	pressed map[evdev.EvCode]bool
}

func (u *Uinput) Open() (io.WriteCloser, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		codes := make([]evdev.EvCode, 0, len(usageCodes)+len(modifierCodes))
		codes = append(codes, modifierCodes[:]...)
		for _, c := range usageCodes {
			codes = append(codes, c)
		}
		id := evdev.InputID{
			BusType: uint16(evdev.BUS_VIRTUAL),
			Vendor:  0x1,
			Product: 0x1,
			Version: 1,
		}
		dev, err := evdev.CreateDevice(u.Name, id, map[evdev.EvType][]evdev.EvCode{
			evdev.EV_KEY: codes,
		})
		if err != nil {
			return nil, fmt.Errorf("create uinput device: %w", err)
		}
		u.dev = dev
		u.pressed = map[evdev.EvCode]bool{}
	}
	return &uinputWriter{u: u}, nil
}

func (u *Uinput) String() string { return "uinput:" + u.Name }

// Close destroys the virtual device.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return nil
	}
	err := u.dev.Close()
	u.dev = nil
	return err
}

// apply diffs a report against the keys currently held and writes the key
// transitions followed by a SYN_REPORT.
func (u *Uinput) apply(r keyboard.Report) error {
	want := map[evdev.EvCode]bool{}
	for bit, code := range modifierCodes {
		if r[0]&(1<<bit) != 0 {
			want[code] = true
		}
	}
	for _, usage := range r[2:] {
		if usage == 0 {
			continue
		}
		code, ok := usageCodes[usage]
		if !ok {
			return fmt.Errorf("no evdev key for usage 0x%02x", usage)
		}
		want[code] = true
	}

	var events []evdev.InputEvent
	for code := range u.pressed {
		if !want[code] {
			events = append(events, evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: 0})
		}
	}
	// modifiers go down before the key they modify
	for _, code := range modifierCodes {
		if want[code] && !u.pressed[code] {
			events = append(events, evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: 1})
		}
	}
	for code := range want {
		if !u.pressed[code] && !isModifierCode(code) {
			events = append(events, evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: 1})
		}
	}
	events = append(events, evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0})

	for i := range events {
		if err := u.dev.WriteOne(&events[i]); err != nil {
			return err
		}
	}
	u.pressed = want
	return nil
}

func isModifierCode(code evdev.EvCode) bool {
	for _, c := range modifierCodes {
		if c == code {
			return true
		}
	}
	return false
}

type uinputWriter struct{ u *Uinput }

func (w *uinputWriter) Write(p []byte) (int, error) {
	if len(p) != keyboard.ReportSize {
		return 0, fmt.Errorf("uinput: report must be %d bytes, got %d", keyboard.ReportSize, len(p))
	}
	var r keyboard.Report
	copy(r[:], p)

	w.u.mu.Lock()
	defer w.u.mu.Unlock()
	if w.u.dev == nil {
		return 0, io.ErrClosedPipe
	}
	if err := w.u.apply(r); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close keeps the device; it is shared by every Open.
func (w *uinputWriter) Close() error { return nil }
