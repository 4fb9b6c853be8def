// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frame decodes the 32-bit frame headers of the MVLC wire protocol.
//
// A frame header packs the frame type, a set of flags, the stack number,
// the controller ID and the number of payload words following the header:
//
//	TTTT TTTT CEEE SSSS IIIL LLLL LLLL LLLL
//
//	Type[31:24] Flags[23:20] StackNum[19:16] CtrlID[15:13] Length[12:0]
package frame // import "github.com/go-lpc/mvlc/frame"

import (
	"fmt"
	"strings"
)

const (
	typeShift = 24
	typeMask  = 0xff

	flagsShift = 20
	flagsMask  = 0xf

	stackNumShift = 16
	stackNumMask  = 0xf

	ctrlIDShift = 13
	ctrlIDMask  = 0x7

	lengthShift = 0
	lengthMask  = 0x1fff
)

// MaxLength is the largest payload length a single frame may declare.
const MaxLength = lengthMask

// Type identifies the kind of a frame.
type Type uint8

const (
	SuperFrame        Type = 0xf1 // outermost command buffer response frame
	SuperContinuation Type = 0xf2 // continuation of a super frame
	StackFrame        Type = 0xf3 // outermost frame of stack execution data
	BlockRead         Type = 0xf5 // inner frame of a block read
	StackError        Type = 0xf7 // stack error notification
	StackContinuation Type = 0xf9 // continuation of a stack frame
	SystemEvent       Type = 0xfa // software generated frame
	SystemEvent2      Type = 0xfb // software generated frame (2nd kind)
)

// Valid reports whether t is a frame type of the MVLC protocol.
func (t Type) Valid() bool {
	switch t {
	case SuperFrame, SuperContinuation,
		StackFrame, BlockRead, StackError, StackContinuation,
		SystemEvent, SystemEvent2:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case SuperFrame:
		return "SuperFrame"
	case SuperContinuation:
		return "SuperContinuation"
	case StackFrame:
		return "StackFrame"
	case BlockRead:
		return "BlockRead"
	case StackError:
		return "StackError"
	case StackContinuation:
		return "StackContinuation"
	case SystemEvent:
		return "SystemEvent"
	case SystemEvent2:
		return "SystemEvent2"
	}
	return fmt.Sprintf("Type(0x%02x)", uint8(t))
}

// Flags holds the 4-bit flag field of a frame header.
type Flags uint8

const (
	Timeout     Flags = 1 << 0
	BusError    Flags = 1 << 1
	SyntaxError Flags = 1 << 2
	Continue    Flags = 1 << 3
)

// Errors returns the subset of f signaling an execution error.
func (f Flags) Errors() Flags {
	return f & (Timeout | BusError | SyntaxError)
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, v := range []struct {
		f    Flags
		name string
	}{
		{Timeout, "timeout"},
		{BusError, "buserror"},
		{SyntaxError, "syntaxerror"},
		{Continue, "continue"},
	} {
		if f&v.f != 0 {
			names = append(names, v.name)
		}
	}
	return strings.Join(names, "|")
}

// Header is the decoded form of a frame header word.
type Header struct {
	Type     Type
	Flags    Flags
	StackNum uint8
	CtrlID   uint8
	Length   uint16 // number of payload words following the header
}

// Decode decodes the frame header held in w.
// Decode never fails: unknown frame types are returned as-is and can be
// detected with Type.Valid.
func Decode(w uint32) Header {
	return Header{
		Type:     Type((w >> typeShift) & typeMask),
		Flags:    Flags((w >> flagsShift) & flagsMask),
		StackNum: uint8((w >> stackNumShift) & stackNumMask),
		CtrlID:   uint8((w >> ctrlIDShift) & ctrlIDMask),
		Length:   uint16((w >> lengthShift) & lengthMask),
	}
}

// Encode packs the header into a frame header word.
// Fields wider than their wire representation are truncated.
func (hdr Header) Encode() uint32 {
	return uint32(hdr.Type)&typeMask<<typeShift |
		uint32(hdr.Flags)&flagsMask<<flagsShift |
		uint32(hdr.StackNum)&stackNumMask<<stackNumShift |
		uint32(hdr.CtrlID)&ctrlIDMask<<ctrlIDShift |
		uint32(hdr.Length)&lengthMask<<lengthShift
}

// Continue reports whether the frame is continued by a following frame.
func (hdr Header) Continue() bool {
	return hdr.Flags&Continue != 0
}

func (hdr Header) String() string {
	return fmt.Sprintf(
		"%v{flags=%v, stack=%d, ctrl=%d, len=%d}",
		hdr.Type, hdr.Flags, hdr.StackNum, hdr.CtrlID, hdr.Length,
	)
}
