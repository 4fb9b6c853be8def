// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vme holds VME address modifiers and data widths.
package vme // import "github.com/go-lpc/mvlc/vme"

import (
	"fmt"
	"strings"
)

// AMod is a VME address modifier.
type AMod uint8

// Single cycle address modifiers (non-privileged data access).
const (
	A16 AMod = 0x29
	A24 AMod = 0x39
	A32 AMod = 0x09
)

// Block transfer address modifiers.
const (
	A24BLT   AMod = 0x3b
	A24MBLT  AMod = 0x38
	A32BLT   AMod = 0x0b
	A32MBLT  AMod = 0x08
	Blk2eSST AMod = 0x20
)

// IsBlock reports whether amod selects a block transfer.
func IsBlock(amod AMod) bool {
	switch amod {
	case A24BLT, A24MBLT, A32BLT, A32MBLT, Blk2eSST:
		return true
	}
	return false
}

// IsMBLT reports whether amod selects a 64-bit block transfer.
// Each 64-bit transfer yields two 32-bit words.
func IsMBLT(amod AMod) bool {
	switch amod {
	case A24MBLT, A32MBLT, Blk2eSST:
		return true
	}
	return false
}

func (amod AMod) String() string {
	switch amod {
	case A16:
		return "A16"
	case A24:
		return "A24"
	case A32:
		return "A32"
	case A24BLT:
		return "A24/BLT"
	case A24MBLT:
		return "A24/MBLT"
	case A32BLT:
		return "A32/BLT"
	case A32MBLT:
		return "A32/MBLT"
	case Blk2eSST:
		return "2eSST"
	}
	return fmt.Sprintf("AMod(0x%02x)", uint8(amod))
}

// DataWidth is the width of a single cycle VME data transfer.
type DataWidth uint8

const (
	D16 DataWidth = 0x1
	D32 DataWidth = 0x2
)

func (dw DataWidth) String() string {
	switch dw {
	case D16:
		return "D16"
	case D32:
		return "D32"
	}
	return fmt.Sprintf("DataWidth(%d)", uint8(dw))
}

// AddrWidthFromArg returns the single cycle address modifier for an
// address width given in bits (16, 24 or 32).
func AddrWidthFromArg(bits uint8) (AMod, error) {
	switch bits {
	case 16:
		return A16, nil
	case 24:
		return A24, nil
	case 32:
		return A32, nil
	}
	return 0, fmt.Errorf("vme: invalid address width: %d", bits)
}

// DataWidthFromArg returns the data width for a width given in bits
// (16 or 32).
func DataWidthFromArg(bits uint8) (DataWidth, error) {
	switch bits {
	case 16:
		return D16, nil
	case 32:
		return D32, nil
	}
	return 0, fmt.Errorf("vme: invalid data width: %d", bits)
}

// ParseAMod parses a block transfer address modifier given either by
// name (e.g. "a32/mblt") or as a number (e.g. "0x08").
func ParseAMod(s string) (AMod, error) {
	for _, amod := range []AMod{A24BLT, A24MBLT, A32BLT, A32MBLT, Blk2eSST, A16, A24, A32} {
		if strings.EqualFold(s, amod.String()) {
			return amod, nil
		}
	}
	var v uint8
	_, err := fmt.Sscanf(s, "%v", &v)
	if err != nil {
		return 0, fmt.Errorf("vme: invalid address modifier %q: %w", s, err)
	}
	return AMod(v), nil
}
