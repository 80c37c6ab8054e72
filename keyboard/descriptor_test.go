package keyboard_test

import (
	"testing"

	"github.com/gadgetkb/gadgetkb/keyboard"
	"github.com/stretchr/testify/assert"
)

func TestReportDescriptor(t *testing.T) {
	// boot keyboard descriptor as documented for the Linux HID gadget
	want := []byte{
		0x05, 0x01, 0x09, 0x06, 0xa1, 0x01, 0x05, 0x07,
		0x19, 0xe0, 0x29, 0xe7, 0x15, 0x00, 0x25, 0x01,
		0x75, 0x01, 0x95, 0x08, 0x81, 0x02, 0x95, 0x01,
		0x75, 0x08, 0x81, 0x03, 0x95, 0x05, 0x75, 0x01,
		0x05, 0x08, 0x19, 0x01, 0x29, 0x05, 0x91, 0x02,
		0x95, 0x01, 0x75, 0x03, 0x91, 0x03, 0x95, 0x06,
		0x75, 0x08, 0x15, 0x00, 0x25, 0x65, 0x05, 0x07,
		0x19, 0x00, 0x29, 0x65, 0x81, 0x00, 0xc0,
	}
	assert.Equal(t, want, keyboard.ReportDescriptor.Bytes())
}
