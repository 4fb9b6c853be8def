// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blkread strips the MVLC framing off directly executed VME block
// reads (BLT/MBLT).
//
// The response to a direct block read is a stack frame header, a
// reference word and a block read frame header followed by its payload.
// Block reads larger than a single frame are split: the block read frame
// has the Continue flag set and is followed by a stack continuation frame
// header and a new block read frame header.
//
//	StackFrame  ref  BlockRead(C)  payload...
//	StackContinuation  BlockRead(C)  payload...
//	StackContinuation  BlockRead     payload...
package blkread // import "github.com/go-lpc/mvlc/blkread"

import (
	"errors"
	"fmt"

	"github.com/go-lpc/mvlc/frame"
	"golang.org/x/xerrors"
)

var (
	ErrInputTooShort       = errors.New("blkread: input too short")
	ErrUnexpectedFrameType = errors.New("blkread: unexpected frame type")
	ErrTruncated           = frame.ErrTruncated
)

// Status summarizes the outcome of stripping a block read response.
type Status int

const (
	Ok Status = iota
	InputTooShort
	UnexpectedFrameType
	Truncated
)

func (st Status) String() string {
	switch st {
	case Ok:
		return "ok"
	case InputTooShort:
		return "input-too-short"
	case UnexpectedFrameType:
		return "unexpected-frame-type"
	case Truncated:
		return "truncated"
	}
	return fmt.Sprintf("Status(%d)", int(st))
}

// StatusOf returns the status corresponding to an error returned by Strip.
// Errors that did not originate from Strip are reported as Truncated.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Ok
	case errors.Is(err, ErrInputTooShort):
		return InputTooShort
	case errors.Is(err, ErrUnexpectedFrameType):
		return UnexpectedFrameType
	default:
		return Truncated
	}
}

// Strip copies the payload words of the block read response src into dst,
// removing all framing words.
// Strip never writes more than len(dst) words: filling dst before the end
// of the payload is not an error.
//
// Strip returns the number of words copied into dst.
// On error, the returned count still reflects the words already copied,
// which are valid payload of an incomplete transfer.
func Strip(dst, src []uint32) (int, error) {
	n, _, err := StripFlags(dst, src)
	return n, err
}

// StripFlags is like Strip but also returns the union of the error flags
// (timeout, bus error, syntax error) found in the frame headers.
func StripFlags(dst, src []uint32) (int, frame.Flags, error) {
	p := parser{dst: dst, src: src}
	err := p.run()
	return p.n, p.flags, err
}

type parser struct {
	src []uint32
	pos int // position of the next word to read from src

	dst []uint32
	n   int // number of words written to dst

	flags frame.Flags
}

func (p *parser) run() error {
	const minWords = 3 // stack header + reference word + block header
	if len(p.src) < minWords {
		return xerrors.Errorf(
			"blkread: response holds %d words, need at least %d: %w",
			len(p.src), minWords, ErrInputTooShort,
		)
	}

	stack := frame.StackFrame
	for {
		_, err := p.header(stack)
		if err != nil {
			return err
		}

		if stack == frame.StackFrame {
			_ = p.next() // reference word
			stack = frame.StackContinuation
		}

		blk, err := p.header(frame.BlockRead)
		if err != nil {
			return err
		}

		cur := frame.NewCursor(blk)
		for !cur.Exhausted() {
			if p.full() {
				return nil
			}
			if p.pos == len(p.src) {
				return xerrors.Errorf(
					"blkread: %v declared %d payload words, response ended after %d: %w",
					blk.Type, blk.Length, int(blk.Length)-cur.Left(), ErrTruncated,
				)
			}
			err = cur.Consume()
			if err != nil {
				return xerrors.Errorf("blkread: could not consume word %d: %w", p.pos, err)
			}
			p.dst[p.n] = p.next()
			p.n++
		}

		if !blk.Continue() || p.full() {
			return nil
		}

		if left := len(p.src) - p.pos; left < 2 {
			return xerrors.Errorf(
				"blkread: continued block read needs 2 more header words, got %d: %w",
				left, ErrInputTooShort,
			)
		}
	}
}

func (p *parser) next() uint32 {
	v := p.src[p.pos]
	p.pos++
	return v
}

func (p *parser) full() bool {
	return p.n == len(p.dst)
}

func (p *parser) header(want frame.Type) (frame.Header, error) {
	pos := p.pos
	w := p.next()
	hdr := frame.Decode(w)
	if hdr.Type != want {
		return hdr, xerrors.Errorf(
			"blkread: word %d (0x%08x): got %v header, want %v: %w",
			pos, w, hdr.Type, want, ErrUnexpectedFrameType,
		)
	}
	p.flags |= hdr.Flags.Errors()
	return hdr, nil
}
