// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name string
		word uint32
		want Header
	}{
		{
			name: "stack-frame",
			word: 0xf3000000,
			want: Header{Type: StackFrame},
		},
		{
			name: "block-read",
			word: 0xf5000003,
			want: Header{Type: BlockRead, Length: 3},
		},
		{
			name: "block-read-continue",
			word: 0xf5801fff,
			want: Header{Type: BlockRead, Flags: Continue, Length: MaxLength},
		},
		{
			name: "stack-continuation",
			word: 0xf9000010,
			want: Header{Type: StackContinuation, Length: 16},
		},
		{
			name: "all-fields",
			word: 0xf3a7e123,
			want: Header{
				Type:     StackFrame,
				Flags:    Continue | BusError,
				StackNum: 7,
				CtrlID:   7,
				Length:   0x0123,
			},
		},
		{
			name: "error-flags",
			word: 0xf7700000,
			want: Header{Type: StackError, Flags: Timeout | BusError | SyntaxError},
		},
		{
			name: "unknown",
			word: 0x12345678,
			want: Header{Type: 0x12, Flags: 0x3, StackNum: 4, CtrlID: 2, Length: 0x1678},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode(tc.word)
			if got != tc.want {
				t.Fatalf("invalid header:\ngot= %v\nwant=%v", got, tc.want)
			}
			if got, want := got.Encode(), tc.word; got != want {
				t.Fatalf("invalid round-trip: got=0x%08x, want=0x%08x", got, want)
			}
		})
	}
}

func TestEncodeMasks(t *testing.T) {
	hdr := Header{
		Type:     BlockRead,
		Flags:    0xff,
		StackNum: 0xff,
		CtrlID:   0xff,
		Length:   0xffff,
	}
	if got, want := hdr.Encode(), uint32(0xf5ffffff); got != want {
		t.Fatalf("invalid encoding: got=0x%08x, want=0x%08x", got, want)
	}
}

func TestTypeValid(t *testing.T) {
	valid := map[Type]bool{
		SuperFrame:        true,
		SuperContinuation: true,
		StackFrame:        true,
		BlockRead:         true,
		StackError:        true,
		StackContinuation: true,
		SystemEvent:       true,
		SystemEvent2:      true,
	}
	for i := 0; i < 256; i++ {
		typ := Type(i)
		if got, want := typ.Valid(), valid[typ]; got != want {
			t.Fatalf("invalid validity for %v: got=%v, want=%v", typ, got, want)
		}
	}

	if got, want := Type(0x42).String(), "Type(0x42)"; got != want {
		t.Fatalf("invalid stringer: got=%q, want=%q", got, want)
	}
}

func TestFlags(t *testing.T) {
	for _, tc := range []struct {
		flags Flags
		str   string
		errs  Flags
	}{
		{0, "none", 0},
		{Continue, "continue", 0},
		{Timeout | Continue, "timeout|continue", Timeout},
		{BusError | SyntaxError, "buserror|syntaxerror", BusError | SyntaxError},
	} {
		t.Run(tc.str, func(t *testing.T) {
			if got, want := tc.flags.String(), tc.str; got != want {
				t.Fatalf("invalid stringer: got=%q, want=%q", got, want)
			}
			if got, want := tc.flags.Errors(), tc.errs; got != want {
				t.Fatalf("invalid error flags: got=%v, want=%v", got, want)
			}
		})
	}
}

func TestCursor(t *testing.T) {
	cur := NewCursor(Header{Type: BlockRead, Length: 2})
	if cur.Exhausted() {
		t.Fatalf("cursor should not be exhausted")
	}

	for i := 0; i < 2; i++ {
		err := cur.Consume()
		if err != nil {
			t.Fatalf("could not consume word %d: %+v", i, err)
		}
		if got, want := cur.Left(), 1-i; got != want {
			t.Fatalf("invalid words left: got=%d, want=%d", got, want)
		}
	}

	if !cur.Exhausted() {
		t.Fatalf("cursor should be exhausted")
	}

	err := cur.Consume()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrTruncated)
	}
	if got, want := cur.Left(), 0; got != want {
		t.Fatalf("invalid words left after underflow: got=%d, want=%d", got, want)
	}
}

func TestCursorEmpty(t *testing.T) {
	cur := NewCursor(Decode(0xf5000000))
	if !cur.Exhausted() {
		t.Fatalf("empty frame should be exhausted")
	}
	if got, want := cur.Header().Type, BlockRead; got != want {
		t.Fatalf("invalid header type: got=%v, want=%v", got, want)
	}
	if err := cur.Consume(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrTruncated)
	}
}
