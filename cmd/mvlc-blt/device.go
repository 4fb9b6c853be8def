// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/mvlc"
	"github.com/go-lpc/mvlc/blkread"
	"github.com/go-lpc/mvlc/internal/mmap"
	"github.com/go-lpc/mvlc/vme"
)

const (
	defaultSize = 0xffff // capacity of the payload buffer, in 32-bit words
	queueSize   = 1024
)

type device struct {
	fname  string
	addr   uint32
	params blkread.Params
	size   int

	msg *log.Logger
	f   *mmap.Handle
	tr  *blkread.Replay
	rdo *blkread.Reader
	out []uint32

	iblk int // number of blocks read
	n    int // number of published blocks
	nerr int // number of discarded blocks
	data chan []byte
}

func newDevice(args []string) (*device, error) {
	if len(args) == 0 {
		return nil, errors.New("missing path to input recording")
	}

	dev := &device{
		fname:  args[0],
		params: blkread.Params{AMod: vme.A32BLT},
		size:   defaultSize,
		msg:    log.New(os.Stdout, "mvlc-blt: ", 0),
	}

	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return nil, fmt.Errorf("could not parse VME address %q: %w", args[1], err)
		}
		dev.addr = uint32(v)
	}

	if len(args) > 2 {
		am, err := vme.ParseAMod(args[2])
		if err != nil {
			return nil, fmt.Errorf("could not parse address modifier: %w", err)
		}
		if !vme.IsBlock(am) {
			return nil, fmt.Errorf("%v is not a block transfer address modifier", am)
		}
		dev.params.AMod = am
	}

	return dev, nil
}

func (dev *device) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	if v, _ := mvlc.Version(); v != "" {
		ctx.Msg.Infof("mvlc version: %s", v)
	}

	err := dev.open()
	if err != nil {
		ctx.Msg.Errorf("could not open recording %q: %+v", dev.fname, err)
		return err
	}
	return nil
}

func (dev *device) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.init()
	if err != nil {
		ctx.Msg.Errorf("could not load recording %q: %+v", dev.fname, err)
		return err
	}
	ctx.Msg.Infof("loaded %d responses from %q", dev.tr.Len(), dev.fname)
	return nil
}

func (dev *device) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := dev.init()
	if err != nil {
		ctx.Msg.Errorf("could not reload recording %q: %+v", dev.fname, err)
		return err
	}
	return nil
}

func (dev *device) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command... (addr=0x%08x, amod=%v)", dev.addr, dev.params.AMod)
	return nil
}

func (dev *device) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n
	nerr := dev.nerr
	ctx.Msg.Debugf("received /stop command... -> n=%d, discarded=%d", n, nerr)
	return nil
}

func (dev *device) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return dev.close()
}

func (dev *device) blt(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *device) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
		}

		raw, err := dev.next(ctx.Ctx)
		switch {
		case errors.Is(err, io.EOF):
			ctx.Msg.Infof("recording exhausted after %d blocks", dev.n)
			<-ctx.Ctx.Done()
			return nil
		case ctx.Ctx.Err() != nil:
			return nil
		case err != nil:
			ctx.Msg.Errorf("could not read block: %+v", err)
			return err
		case raw == nil:
			continue
		}

		select {
		case <-ctx.Ctx.Done():
			return nil
		case dev.data <- raw:
			dev.n++
		}
	}
}

func (dev *device) open() error {
	err := dev.close()
	if err != nil {
		return fmt.Errorf("could not close previous recording: %w", err)
	}

	f, err := mmap.Open(dev.fname)
	if err != nil {
		return fmt.Errorf("could not open recording: %w", err)
	}
	dev.f = f
	return nil
}

func (dev *device) init() error {
	if dev.f == nil {
		err := dev.open()
		if err != nil {
			return err
		}
	}

	tr, err := blkread.LoadReplay(blkread.Unknown, dev.f.Reader())
	if err != nil {
		return fmt.Errorf("could not decode recording: %w", err)
	}

	dev.tr = tr
	dev.rdo = blkread.NewReader(tr, blkread.WithLogger(dev.msg))
	dev.out = make([]uint32, dev.size)
	dev.data = make(chan []byte, queueSize)
	dev.iblk = 0
	dev.n = 0
	dev.nerr = 0
	return nil
}

func (dev *device) close() error {
	if dev.f == nil {
		return nil
	}
	err := dev.f.Close()
	dev.f = nil
	return err
}

// next reads the next block of the recording and returns its payload.
// Incomplete transfers are discarded and yield a nil slice.
// next returns io.EOF once the recording is exhausted.
func (dev *device) next(ctx context.Context) ([]byte, error) {
	if dev.tr.Len() == 0 {
		return nil, io.EOF
	}

	iblk := dev.iblk
	res, err := dev.rdo.Read(ctx, dev.addr, dev.out, dev.params)
	dev.iblk++
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		dev.nerr++
		dev.msg.Printf(
			"discarding block %d (status=%v, flags=%v, words=%d): %+v",
			iblk, res.Status, res.Flags, res.Words, err,
		)
		return nil, nil
	}

	return encode(dev.out[:res.Words]), nil
}

func encode(words []uint32) []byte {
	raw := make([]byte, 4*len(words))
	for i, v := range words {
		binary.LittleEndian.PutUint32(raw[4*i:], v)
	}
	return raw
}
