// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blkread

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-lpc/mvlc/frame"
)

const ref = 0x01010042 // reference word

func stack(n uint16) uint32 {
	return frame.Header{Type: frame.StackFrame, Length: n}.Encode()
}

func contd(n uint16) uint32 {
	return frame.Header{Type: frame.StackContinuation, Length: n}.Encode()
}

func block(n uint16, more bool) uint32 {
	hdr := frame.Header{Type: frame.BlockRead, Length: n}
	if more {
		hdr.Flags |= frame.Continue
	}
	return hdr.Encode()
}

func seq(beg, n int) []uint32 {
	o := make([]uint32, n)
	for i := range o {
		o[i] = uint32(beg + i)
	}
	return o
}

func cat(vs ...[]uint32) []uint32 {
	var o []uint32
	for _, v := range vs {
		o = append(o, v...)
	}
	return o
}

func TestStrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		src    []uint32
		cap    int
		want   []uint32
		status Status
	}{
		{
			name:   "example",
			src:    []uint32{stack(0), ref, block(3, false), 0x11, 0x22, 0x33},
			cap:    10,
			want:   []uint32{0x11, 0x22, 0x33},
			status: Ok,
		},
		{
			name:   "empty-block",
			src:    []uint32{stack(1), ref, block(0, false)},
			cap:    10,
			want:   []uint32{},
			status: Ok,
		},
		{
			name:   "exact-capacity",
			src:    cat([]uint32{stack(5), ref, block(4, false)}, seq(1, 4)),
			cap:    4,
			want:   seq(1, 4),
			status: Ok,
		},
		{
			name:   "clipped",
			src:    cat([]uint32{stack(7), ref, block(6, false)}, seq(1, 6)),
			cap:    3,
			want:   seq(1, 3),
			status: Ok,
		},
		{
			name:   "zero-capacity",
			src:    cat([]uint32{stack(3), ref, block(2, false)}, seq(1, 2)),
			cap:    0,
			want:   []uint32{},
			status: Ok,
		},
		{
			name:   "no-input",
			src:    nil,
			cap:    10,
			want:   []uint32{},
			status: InputTooShort,
		},
		{
			name:   "one-word",
			src:    []uint32{stack(0)},
			cap:    10,
			want:   []uint32{},
			status: InputTooShort,
		},
		{
			name:   "two-words",
			src:    []uint32{stack(0), ref},
			cap:    10,
			want:   []uint32{},
			status: InputTooShort,
		},
		{
			name:   "declared-shorter-than-data",
			src:    cat([]uint32{stack(6), ref, block(2, false)}, seq(1, 5)),
			cap:    10,
			want:   seq(1, 2),
			status: Ok,
		},
		{
			name: "declared-shorter-than-data-continued",
			src: cat(
				[]uint32{stack(0), ref, block(2, true)}, seq(1, 2),
				[]uint32{contd(0), block(1, false)}, seq(3, 1),
				[]uint32{0xdeadbeef, 0xcafefade},
			),
			cap:    10,
			want:   seq(1, 3),
			status: Ok,
		},
		{
			name: "continuation",
			src: cat(
				[]uint32{stack(0), ref, block(3, true)}, seq(1, 3),
				[]uint32{contd(0), block(4, false)}, seq(100, 4),
			),
			cap:    10,
			want:   cat(seq(1, 3), seq(100, 4)),
			status: Ok,
		},
		{
			name: "continuation-3-frames",
			src: cat(
				[]uint32{stack(0), ref, block(2, true)}, seq(1, 2),
				[]uint32{contd(0), block(2, true)}, seq(10, 2),
				[]uint32{contd(0), block(2, false)}, seq(20, 2),
			),
			cap:    10,
			want:   cat(seq(1, 2), seq(10, 2), seq(20, 2)),
			status: Ok,
		},
		{
			name: "continuation-clipped",
			src: cat(
				[]uint32{stack(0), ref, block(3, true)}, seq(1, 3),
				[]uint32{contd(0), block(4, false)}, seq(100, 4),
			),
			cap:    5,
			want:   cat(seq(1, 3), seq(100, 2)),
			status: Ok,
		},
		{
			name:   "continuation-clipped-at-frame-boundary",
			src:    cat([]uint32{stack(0), ref, block(3, true)}, seq(1, 3)),
			cap:    3,
			want:   seq(1, 3),
			status: Ok,
		},
		{
			name:   "dangling-continue",
			src:    cat([]uint32{stack(0), ref, block(3, true)}, seq(1, 3)),
			cap:    10,
			want:   seq(1, 3),
			status: InputTooShort,
		},
		{
			name:   "dangling-continue-one-word",
			src:    cat([]uint32{stack(0), ref, block(3, true)}, seq(1, 3), []uint32{contd(0)}),
			cap:    10,
			want:   seq(1, 3),
			status: InputTooShort,
		},
		{
			name:   "truncated",
			src:    cat([]uint32{stack(0), ref, block(5, false)}, seq(1, 2)),
			cap:    10,
			want:   seq(1, 2),
			status: Truncated,
		},
		{
			name: "truncated-continuation",
			src: cat(
				[]uint32{stack(0), ref, block(1, true)}, seq(1, 1),
				[]uint32{contd(0), block(3, false)}, seq(2, 1),
			),
			cap:    10,
			want:   seq(1, 2),
			status: Truncated,
		},
		{
			name:   "bad-stack-header",
			src:    cat([]uint32{block(0, false), ref, block(2, false)}, seq(1, 2)),
			cap:    10,
			want:   []uint32{},
			status: UnexpectedFrameType,
		},
		{
			name:   "bad-stack-header-continuation",
			src:    cat([]uint32{contd(0), ref, block(2, false)}, seq(1, 2)),
			cap:    10,
			want:   []uint32{},
			status: UnexpectedFrameType,
		},
		{
			name:   "bad-block-header",
			src:    cat([]uint32{stack(0), ref, stack(2)}, seq(1, 2)),
			cap:    10,
			want:   []uint32{},
			status: UnexpectedFrameType,
		},
		{
			name:   "invalid-block-header",
			src:    cat([]uint32{stack(0), ref, 0x42000002}, seq(1, 2)),
			cap:    10,
			want:   []uint32{},
			status: UnexpectedFrameType,
		},
		{
			name: "bad-continuation-stack-header",
			src: cat(
				[]uint32{stack(0), ref, block(2, true)}, seq(1, 2),
				[]uint32{stack(0), block(2, false)}, seq(3, 2),
			),
			cap:    10,
			want:   seq(1, 2),
			status: UnexpectedFrameType,
		},
		{
			name: "bad-continuation-block-header",
			src: cat(
				[]uint32{stack(0), ref, block(2, true)}, seq(1, 2),
				[]uint32{contd(0), contd(2)}, seq(3, 2),
			),
			cap:    10,
			want:   seq(1, 2),
			status: UnexpectedFrameType,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dst := make([]uint32, tc.cap)
			n, err := Strip(dst, tc.src)
			if got, want := StatusOf(err), tc.status; got != want {
				t.Fatalf("invalid status: got=%v, want=%v (err=%+v)", got, want, err)
			}
			if got, want := n, len(tc.want); got != want {
				t.Fatalf("invalid number of words: got=%d, want=%d", got, want)
			}
			if got, want := dst[:n], tc.want; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid payload:\ngot= %x\nwant=%x", got, want)
			}
		})
	}
}

func TestStripSingleFrame(t *testing.T) {
	const capacity = 64
	for n := 0; n <= capacity; n++ {
		src := cat([]uint32{stack(uint16(n + 2)), ref, block(uint16(n), false)}, seq(0x1000, n))
		dst := make([]uint32, capacity)
		got, err := Strip(dst, src)
		if err != nil {
			t.Fatalf("n=%d: could not strip: %+v", n, err)
		}
		if got != n {
			t.Fatalf("n=%d: invalid number of words: got=%d", n, got)
		}
		if !reflect.DeepEqual(dst[:got], seq(0x1000, n)) {
			t.Fatalf("n=%d: invalid payload: got=%x", n, dst[:got])
		}
	}
}

func TestStripClipping(t *testing.T) {
	src := cat(
		[]uint32{stack(0), ref, block(10, true)}, seq(0, 10),
		[]uint32{contd(0), block(10, false)}, seq(10, 10),
	)
	for c := 0; c <= 20; c++ {
		dst := make([]uint32, c)
		n, err := Strip(dst, src)
		if err != nil {
			t.Fatalf("cap=%d: could not strip: %+v", c, err)
		}
		if n != c {
			t.Fatalf("cap=%d: invalid number of words: got=%d", c, n)
		}
		if !reflect.DeepEqual(dst, seq(0, c)) {
			t.Fatalf("cap=%d: invalid payload: got=%x", c, dst)
		}
	}
}

func TestStripDoesNotWritePastCapacity(t *testing.T) {
	src := cat([]uint32{stack(0), ref, block(8, false)}, seq(1, 8))
	buf := make([]uint32, 8)
	for i := range buf {
		buf[i] = 0xffffffff
	}

	n, err := Strip(buf[:4:4], src)
	if err != nil {
		t.Fatalf("could not strip: %+v", err)
	}
	if n != 4 {
		t.Fatalf("invalid number of words: got=%d, want=4", n)
	}
	for i, v := range buf[4:] {
		if v != 0xffffffff {
			t.Fatalf("word %d past capacity was modified: 0x%x", 4+i, v)
		}
	}
}

func TestStripIdempotent(t *testing.T) {
	src := cat(
		[]uint32{stack(0), ref, block(3, true)}, seq(1, 3),
		[]uint32{contd(0), block(2, false)}, seq(7, 2),
	)
	orig := append([]uint32(nil), src...)

	dst1 := make([]uint32, 16)
	n1, err1 := Strip(dst1, src)

	dst2 := make([]uint32, 16)
	n2, err2 := Strip(dst2, src)

	if n1 != n2 || err1 != err2 {
		t.Fatalf("non idempotent strip: (%d, %v) != (%d, %v)", n1, err1, n2, err2)
	}
	if !reflect.DeepEqual(dst1, dst2) {
		t.Fatalf("non idempotent strip:\ndst1=%x\ndst2=%x", dst1, dst2)
	}
	if !reflect.DeepEqual(src, orig) {
		t.Fatalf("input was modified:\ngot= %x\nwant=%x", src, orig)
	}
}

func TestStripFlags(t *testing.T) {
	src := []uint32{
		frame.Header{Type: frame.StackFrame, Flags: frame.BusError}.Encode(),
		ref,
		block(1, true), 1,
		frame.Header{Type: frame.StackContinuation, Flags: frame.Timeout | frame.Continue}.Encode(),
		block(1, false), 2,
	}

	dst := make([]uint32, 4)
	n, flags, err := StripFlags(dst, src)
	if err != nil {
		t.Fatalf("could not strip: %+v", err)
	}
	if n != 2 {
		t.Fatalf("invalid number of words: got=%d, want=2", n)
	}
	if got, want := flags, frame.BusError|frame.Timeout; got != want {
		t.Fatalf("invalid flags: got=%v, want=%v", got, want)
	}
}

func TestStatusOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want Status
	}{
		{nil, Ok},
		{ErrInputTooShort, InputTooShort},
		{ErrUnexpectedFrameType, UnexpectedFrameType},
		{ErrTruncated, Truncated},
		{frame.ErrTruncated, Truncated},
		{errors.New("boom"), Truncated},
	} {
		if got, want := StatusOf(tc.err), tc.want; got != want {
			t.Fatalf("invalid status for %v: got=%v, want=%v", tc.err, got, want)
		}
	}

	for _, tc := range []struct {
		st   Status
		want string
	}{
		{Ok, "ok"},
		{InputTooShort, "input-too-short"},
		{UnexpectedFrameType, "unexpected-frame-type"},
		{Truncated, "truncated"},
		{Status(42), "Status(42)"},
	} {
		if got, want := tc.st.String(), tc.want; got != want {
			t.Fatalf("invalid stringer: got=%q, want=%q", got, want)
		}
	}
}
