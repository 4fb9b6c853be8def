// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"errors"

	"golang.org/x/xerrors"
)

// ErrTruncated is returned when more words are consumed from a frame
// than its header declared.
var ErrTruncated = errors.New("frame: truncated")

// Cursor tracks the payload words of a single frame that remain to be
// consumed.
type Cursor struct {
	hdr  Header
	left int
}

// NewCursor returns a cursor over the payload declared by hdr.
func NewCursor(hdr Header) Cursor {
	return Cursor{hdr: hdr, left: int(hdr.Length)}
}

// Header returns the header the cursor was created from.
func (cur *Cursor) Header() Header { return cur.hdr }

// Left returns the number of payload words still to be consumed.
func (cur *Cursor) Left() int { return cur.left }

// Exhausted reports whether all declared payload words were consumed.
func (cur *Cursor) Exhausted() bool { return cur.left == 0 }

// Consume accounts for one payload word.
// Consume returns an error wrapping ErrTruncated if the frame was
// already exhausted.
func (cur *Cursor) Consume() error {
	if cur.left == 0 {
		return xerrors.Errorf(
			"frame: %v has no payload word left (len=%d): %w",
			cur.hdr.Type, cur.hdr.Length, ErrTruncated,
		)
	}
	cur.left--
	return nil
}
