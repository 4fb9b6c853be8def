// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawio reads and writes recorded MVLC responses.
//
// A recording is a sequence of records, all fields stored as
// little-endian 32-bit words:
//
//	size  uint32   // number of response words
//	code  uint32   // transaction status code (0: success)
//	words [size]uint32
package rawio // import "github.com/go-lpc/mvlc/internal/rawio"

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// MaxRecordSize is the largest number of words a record may hold.
const MaxRecordSize = 1 << 24

// Record is a single recorded response.
type Record struct {
	Code  uint32
	Words []uint32
}

// Decoder reads records from an underlying data source.
type Decoder struct {
	r   io.Reader
	buf []byte
	err error
}

// NewDecoder creates a decoder that reads records from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 8),
	}
}

// Decode reads the next record into rec, reusing rec.Words storage.
// Decode returns io.EOF when no more records are available.
func (dec *Decoder) Decode(rec *Record) error {
	size := dec.readU32()
	if dec.err != nil {
		if xerrors.Is(dec.err, io.EOF) {
			return io.EOF
		}
		return xerrors.Errorf("rawio: could not read record size: %w", dec.err)
	}

	rec.Code = dec.readU32()
	if dec.err != nil {
		return xerrors.Errorf("rawio: could not read record code: %w", dec.unexpected())
	}

	if size > MaxRecordSize {
		dec.err = xerrors.Errorf("rawio: record size too large (got=%d, max=%d)", size, MaxRecordSize)
		return dec.err
	}

	rec.Words = rec.Words[:0]
	for i := uint32(0); i < size; i++ {
		v := dec.readU32()
		if dec.err != nil {
			return xerrors.Errorf(
				"rawio: could not read word %d/%d: %w", i, size, dec.unexpected(),
			)
		}
		rec.Words = append(rec.Words, v)
	}

	return nil
}

func (dec *Decoder) unexpected() error {
	if xerrors.Is(dec.err, io.EOF) {
		dec.err = io.ErrUnexpectedEOF
	}
	return dec.err
}

func (dec *Decoder) readU32() uint32 {
	const n = 4
	dec.load(n)
	return binary.LittleEndian.Uint32(dec.buf[:n])
}

func (dec *Decoder) load(n int) {
	if dec.err != nil {
		return
	}
	if cap(dec.buf) < n {
		dec.buf = append(dec.buf[:len(dec.buf)], make([]byte, n-cap(dec.buf))...)
	}
	dec.buf = dec.buf[:n]
	_, dec.err = io.ReadFull(dec.r, dec.buf[:n])
}

// Encoder writes records to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 4),
	}
}

// Encode writes the record to the stream.
func (enc *Encoder) Encode(rec Record) error {
	if len(rec.Words) > MaxRecordSize {
		return xerrors.Errorf("rawio: record size too large (got=%d, max=%d)", len(rec.Words), MaxRecordSize)
	}

	enc.writeU32(uint32(len(rec.Words)))
	enc.writeU32(rec.Code)
	for _, v := range rec.Words {
		enc.writeU32(v)
	}

	if enc.err != nil {
		return xerrors.Errorf("rawio: could not write record: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) writeU32(v uint32) {
	if enc.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(enc.buf[:4], v)
	_, enc.err = enc.w.Write(enc.buf[:4])
}
