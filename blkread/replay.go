// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blkread

import (
	"context"
	"io"

	"github.com/go-lpc/mvlc/internal/rawio"
	"golang.org/x/xerrors"
)

// Transaction status codes of recorded responses.
const (
	codeOK = iota
	codeBusError
	codeTimeout
	codeConnection
	codeShortRead
)

// Response is a recorded block read response.
type Response struct {
	Words []uint32 // raw, framed, response words
	Err   error    // transaction error
}

// Replay is a Transactor serving recorded responses, in order.
type Replay struct {
	kind  Kind
	resps []Response
	reqs  []Request
}

// NewReplay returns a Transactor replaying resps over a link of the
// provided kind.
func NewReplay(kind Kind, resps ...Response) *Replay {
	return &Replay{kind: kind, resps: resps}
}

// LoadReplay creates a Replay from a recording read from r.
func LoadReplay(kind Kind, r io.Reader) (*Replay, error) {
	var (
		dec = rawio.NewDecoder(r)
		rp  = NewReplay(kind)
	)
	for {
		var rec rawio.Record
		err := dec.Decode(&rec)
		if err != nil {
			if xerrors.Is(err, io.EOF) {
				break
			}
			return nil, xerrors.Errorf("blkread: could not decode response %d: %w", len(rp.resps), err)
		}
		txErr, ok := txErrors[rec.Code]
		if !ok {
			return nil, xerrors.Errorf(
				"blkread: invalid response %d: unknown transaction code %d",
				len(rp.resps), rec.Code,
			)
		}
		rp.resps = append(rp.resps, Response{Words: rec.Words, Err: txErr})
	}
	return rp, nil
}

// SaveReplay writes the responses as a recording to w.
func SaveReplay(w io.Writer, resps []Response) error {
	enc := rawio.NewEncoder(w)
	for i, resp := range resps {
		err := enc.Encode(rawio.Record{
			Code:  txCodeFrom(resp.Err),
			Words: resp.Words,
		})
		if err != nil {
			return xerrors.Errorf("blkread: could not encode response %d: %w", i, err)
		}
	}
	return nil
}

func (rp *Replay) Kind() Kind { return rp.kind }

// Len returns the number of responses left to replay.
func (rp *Replay) Len() int { return len(rp.resps) }

// Requests returns the requests received so far.
func (rp *Replay) Requests() []Request { return rp.reqs }

func (rp *Replay) VMEBlockRead(ctx context.Context, dst []uint32, req Request) ([]uint32, error) {
	select {
	case <-ctx.Done():
		return dst, ctx.Err()
	default:
	}

	rp.reqs = append(rp.reqs, req)
	if len(rp.resps) == 0 {
		return dst, xerrors.Errorf("blkread: no more recorded responses: %w", io.EOF)
	}

	resp := rp.resps[0]
	rp.resps = rp.resps[1:]
	return append(dst, resp.Words...), resp.Err
}

var txErrors = map[uint32]error{
	codeOK:         nil,
	codeBusError:   ErrBusError,
	codeTimeout:    ErrTimeout,
	codeConnection: ErrConnection,
	codeShortRead:  ErrShortRead,
}

func txCodeFrom(err error) uint32 {
	switch {
	case err == nil:
		return codeOK
	case xerrors.Is(err, ErrBusError):
		return codeBusError
	case xerrors.Is(err, ErrTimeout):
		return codeTimeout
	case xerrors.Is(err, ErrShortRead):
		return codeShortRead
	default:
		return codeConnection
	}
}

var (
	_ Transactor = (*Replay)(nil)
	_ Kinder     = (*Replay)(nil)
)
