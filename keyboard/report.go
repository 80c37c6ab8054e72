package keyboard

// ReportSize is the length of a boot protocol keyboard report.
const ReportSize = 8

// Report is a boot protocol keyboard report.
//
// Report layout (8 bytes):
//
//	Byte 0: Modifiers (8 bits)
//	Byte 1: Reserved (0x00)
//	Bytes 2-7: Key usages, only the first is ever set here
type Report [ReportSize]byte

// Release is the all-zero report that lifts every key.
var Release Report

// Press builds the report pressing a single key with the given modifier.
func Press(usage uint8, mod Modifier) Report {
	var r Report
	r[0] = uint8(mod)
	r[2] = usage
	return r
}

// Modifier returns the modifier byte.
func (r Report) Modifier() Modifier { return Modifier(r[0]) }

// Usage returns the first key slot.
func (r Report) Usage() uint8 { return r[2] }

// IsRelease reports whether no key or modifier is held.
func (r Report) IsRelease() bool { return r == Release }

// BuildReport encodes the report into a byte slice for the device endpoint.
func (r Report) BuildReport() []byte {
	b := make([]byte, ReportSize)
	copy(b, r[:])
	return b
}

// MarshalBinary encodes the report in the VIIPER keyboard stream format.
//
// Wire format:
//
//	Byte 0: Modifiers
//	Byte 1: Key count
//	Bytes 2+: Key codes (HID usage codes of pressed keys)
func (r Report) MarshalBinary() ([]byte, error) {
	keys := make([]byte, 0, 6)
	for _, k := range r[2:] {
		if k != 0 {
			keys = append(keys, k)
		}
	}
	b := make([]byte, 2+len(keys))
	b[0] = r[0]
	b[1] = uint8(len(keys))
	copy(b[2:], keys)
	return b, nil
}
