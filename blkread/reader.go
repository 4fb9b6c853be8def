// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blkread

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/go-lpc/mvlc/frame"
	"github.com/go-lpc/mvlc/vme"
	"golang.org/x/xerrors"
)

// Transaction errors reported by a Transactor.
var (
	ErrBusError   = errors.New("blkread: VME bus error")
	ErrTimeout    = errors.New("blkread: transaction timeout")
	ErrConnection = errors.New("blkread: connection error")
	ErrShortRead  = errors.New("blkread: short read")
)

// Request describes a directly executed block read.
type Request struct {
	Addr         uint32
	AMod         vme.AMod
	MaxTransfers uint16
	FIFO         bool // do not increment the read address
	Swap         bool // swap the two 32-bit words of MBLT transfers
}

// Transactor executes block read requests on an MVLC controller.
//
// VMEBlockRead appends the raw, still framed, response words to dst and
// returns the extended slice.
// A response truncated by a VME bus error is returned together with an
// error wrapping ErrBusError.
type Transactor interface {
	VMEBlockRead(ctx context.Context, dst []uint32, req Request) ([]uint32, error)
}

// Kind is the kind of link a Transactor talks to the controller with.
type Kind uint8

const (
	Unknown Kind = iota
	Ethernet
	USB
)

func (k Kind) String() string {
	switch k {
	case Ethernet:
		return "eth"
	case USB:
		return "usb"
	}
	return "unknown"
}

// Kinder is implemented by transactors that know their link kind.
type Kinder interface {
	Kind() Kind
}

// KindOf returns the link kind of tr.
func KindOf(tr Transactor) Kind {
	if k, ok := tr.(Kinder); ok {
		return k.Kind()
	}
	return Unknown
}

// Params configures a block read.
type Params struct {
	AMod vme.AMod // block transfer address modifier
	FIFO bool     // if true the read address is not incremented
	Swap bool     // if true swaps the two 32-bit words of MBLT reads
}

// Result describes the outcome of a block read.
type Result struct {
	Words  int         // number of payload words copied
	Status Status      // framing status of the response
	Flags  frame.Flags // error flags found in the response frame headers
	TxErr  error       // error of the underlying transaction, if any
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used to report malformed responses.
func WithLogger(msg *log.Logger) Option {
	return func(r *Reader) {
		r.msg = msg
	}
}

// WithScratch preallocates a scratch buffer of n words to receive raw
// responses.
func WithScratch(n int) Option {
	return func(r *Reader) {
		r.buf = make([]uint32, 0, n)
	}
}

// Reader performs block reads through a Transactor and strips the
// framing off their responses.
//
// A Reader reuses an internal buffer across calls and must not be used
// concurrently from multiple goroutines.
type Reader struct {
	tr  Transactor
	msg *log.Logger
	buf []uint32
}

// NewReader returns a Reader executing block reads with tr.
func NewReader(tr Transactor, opts ...Option) *Reader {
	r := &Reader{
		tr:  tr,
		msg: log.New(os.Stdout, "blkread: ", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kind returns the link kind of the underlying transactor.
func (r *Reader) Kind() Kind {
	return KindOf(r.tr)
}

const maxTransfers = 0xffff

// Read reads a block starting at VME address addr into out.
// At most len(out) payload words are read.
//
// If the transaction itself failed, no words are copied, unless it failed
// with a VME bus error: the framed prefix received before the error is
// then stripped into out.
// Read returns an error if either the transaction or the stripping of the
// response failed. The returned Result holds the number of valid payload
// words written to out in both cases.
func (r *Reader) Read(ctx context.Context, addr uint32, out []uint32, p Params) (Result, error) {
	if !vme.IsBlock(p.AMod) {
		return Result{}, xerrors.Errorf("blkread: %v is not a block transfer address modifier", p.AMod)
	}

	n := len(out)
	if vme.IsMBLT(p.AMod) {
		n /= 2
	}
	if n > maxTransfers {
		n = maxTransfers
	}

	req := Request{
		Addr:         addr,
		AMod:         p.AMod,
		MaxTransfers: uint16(n),
		FIFO:         p.FIFO,
		Swap:         p.Swap,
	}

	resp, txErr := r.tr.VMEBlockRead(ctx, r.buf[:0], req)
	if cap(resp) > cap(r.buf) {
		r.buf = resp[:0]
	}
	if txErr != nil && !errors.Is(txErr, ErrBusError) {
		return Result{TxErr: txErr}, xerrors.Errorf(
			"blkread: could not read block at 0x%08x (%v): %w", addr, p.AMod, txErr,
		)
	}

	nw, flags, err := StripFlags(out, resp)
	res := Result{
		Words:  nw,
		Status: StatusOf(err),
		Flags:  flags,
		TxErr:  txErr,
	}

	if err != nil {
		r.msg.Printf(
			"could not strip framing of block read at 0x%08x (response=%d words, payload=%d words): %+v",
			addr, len(resp), nw, err,
		)
		return res, xerrors.Errorf("blkread: invalid response for block at 0x%08x: %w", addr, err)
	}

	if txErr != nil {
		return res, xerrors.Errorf("blkread: partial read of block at 0x%08x: %w", addr, txErr)
	}

	return res, nil
}
