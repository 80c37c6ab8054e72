// Package usb contains helpers for building USB HID descriptors.
package usb

import (
	"bytes"
	"encoding/binary"
	"math"
)

// HID item types (bits 2-3 of a short item prefix).
const (
	itemMain   = 0
	itemGlobal = 1
	itemLocal  = 2
)

// Main item data flags.
const (
	MainData  = 0x00
	MainConst = 0x01
	MainArray = 0x00
	MainVar   = 0x02
	MainAbs   = 0x00
	MainRel   = 0x04
)

// Usage pages.
const (
	UsagePageGenericDesktop = 0x01
	UsagePageKeyboard       = 0x07
	UsagePageLEDs           = 0x08
)

// Generic desktop usages.
const (
	UsageKeyboard = 0x06
)

// Collection kinds.
const (
	CollectionPhysical    = 0x00
	CollectionApplication = 0x01
	CollectionLogical     = 0x02
)

// Item is one entry of a HID report descriptor.
type Item interface {
	write(b *bytes.Buffer)
}

// Report is a HID report descriptor (0x22).
type Report struct {
	Items []Item
}

// Bytes encodes the descriptor using short items.
func (r Report) Bytes() []byte {
	var b bytes.Buffer
	for _, it := range r.Items {
		it.write(&b)
	}
	return b.Bytes()
}

func writeItem(b *bytes.Buffer, tag, typ uint8, data []byte) {
	size := uint8(len(data))
	if size == 4 {
		size = 3
	}
	b.WriteByte(tag<<4 | typ<<2 | size)
	b.Write(data)
}

// unsigned encodes v in the smallest of 1, 2 or 4 bytes.
func unsigned(v uint32) []byte {
	switch {
	case v <= math.MaxUint8:
		return []byte{uint8(v)}
	case v <= math.MaxUint16:
		return binary.LittleEndian.AppendUint16(nil, uint16(v))
	default:
		return binary.LittleEndian.AppendUint32(nil, v)
	}
}

// signed encodes v two's complement in the smallest of 1, 2 or 4 bytes.
func signed(v int32) []byte {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return []byte{uint8(int8(v))}
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return binary.LittleEndian.AppendUint16(nil, uint16(int16(v)))
	default:
		return binary.LittleEndian.AppendUint32(nil, uint32(v))
	}
}

type UsagePage struct{ Page uint16 }

func (i UsagePage) write(b *bytes.Buffer) { writeItem(b, 0x0, itemGlobal, unsigned(uint32(i.Page))) }

type LogicalMinimum struct{ Min int32 }

func (i LogicalMinimum) write(b *bytes.Buffer) { writeItem(b, 0x1, itemGlobal, signed(i.Min)) }

type LogicalMaximum struct{ Max int32 }

func (i LogicalMaximum) write(b *bytes.Buffer) { writeItem(b, 0x2, itemGlobal, signed(i.Max)) }

type ReportSize struct{ Bits uint32 }

func (i ReportSize) write(b *bytes.Buffer) { writeItem(b, 0x7, itemGlobal, unsigned(i.Bits)) }

type ReportCount struct{ Count uint32 }

func (i ReportCount) write(b *bytes.Buffer) { writeItem(b, 0x9, itemGlobal, unsigned(i.Count)) }

type Usage struct{ Usage uint32 }

func (i Usage) write(b *bytes.Buffer) { writeItem(b, 0x0, itemLocal, unsigned(i.Usage)) }

type UsageMinimum struct{ Min uint32 }

func (i UsageMinimum) write(b *bytes.Buffer) { writeItem(b, 0x1, itemLocal, unsigned(i.Min)) }

type UsageMaximum struct{ Max uint32 }

func (i UsageMaximum) write(b *bytes.Buffer) { writeItem(b, 0x2, itemLocal, unsigned(i.Max)) }

type Input struct{ Flags uint8 }

func (i Input) write(b *bytes.Buffer) { writeItem(b, 0x8, itemMain, []byte{i.Flags}) }

type Output struct{ Flags uint8 }

func (i Output) write(b *bytes.Buffer) { writeItem(b, 0x9, itemMain, []byte{i.Flags}) }

// Collection wraps Items in a collection and closes it with End Collection.
type Collection struct {
	Kind  uint8
	Items []Item
}

func (c Collection) write(b *bytes.Buffer) {
	writeItem(b, 0xA, itemMain, []byte{c.Kind})
	for _, it := range c.Items {
		it.write(b)
	}
	writeItem(b, 0xC, itemMain, nil)
}
