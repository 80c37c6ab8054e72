package keyboard

import "github.com/gadgetkb/gadgetkb/usb"

// ReportDescriptor describes the boot protocol keyboard whose reports
// Press and Release build: a modifier byte, a reserved byte and six key
// slots, plus the five LED output bits.
var ReportDescriptor = usb.Report{
	Items: []usb.Item{
		usb.UsagePage{Page: usb.UsagePageGenericDesktop},
		usb.Usage{Usage: usb.UsageKeyboard},
		usb.Collection{
			Kind: usb.CollectionApplication,
			Items: []usb.Item{
				// Modifiers (1 byte)
				usb.UsagePage{Page: usb.UsagePageKeyboard},
				usb.UsageMinimum{Min: 0xE0}, // Left Control
				usb.UsageMaximum{Max: 0xE7}, // Right GUI
				usb.LogicalMinimum{Min: 0},
				usb.LogicalMaximum{Max: 1},
				usb.ReportSize{Bits: 1},
				usb.ReportCount{Count: 8},
				usb.Input{Flags: usb.MainData | usb.MainVar | usb.MainAbs},

				// Reserved (1 byte)
				usb.ReportCount{Count: 1},
				usb.ReportSize{Bits: 8},
				usb.Input{Flags: usb.MainConst | usb.MainVar},

				// LEDs (5 bits + 3 padding)
				usb.ReportCount{Count: 5},
				usb.ReportSize{Bits: 1},
				usb.UsagePage{Page: usb.UsagePageLEDs},
				usb.UsageMinimum{Min: 0x01}, // Num Lock
				usb.UsageMaximum{Max: 0x05}, // Kana
				usb.Output{Flags: usb.MainData | usb.MainVar | usb.MainAbs},
				usb.ReportCount{Count: 1},
				usb.ReportSize{Bits: 3},
				usb.Output{Flags: usb.MainConst | usb.MainVar},

				// Key slots (6 bytes)
				usb.ReportCount{Count: 6},
				usb.ReportSize{Bits: 8},
				usb.LogicalMinimum{Min: 0},
				usb.LogicalMaximum{Max: 0x65},
				usb.UsagePage{Page: usb.UsagePageKeyboard},
				usb.UsageMinimum{Min: 0x00},
				usb.UsageMaximum{Max: 0x65}, // Keyboard Application
				usb.Input{Flags: usb.MainData | usb.MainArray | usb.MainAbs},
			},
		},
	},
}
