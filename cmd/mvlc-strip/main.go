// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mvlc-strip strips the MVLC framing off recorded block read responses
// and displays their payload.
//
// Usage: mvlc-strip [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> mvlc-strip ./testdata/blt.raw
//	=== ./testdata/blt.raw ===
//	resp    0: words=3 status=ok flags=none
//	  00000011 00000022 00000033
//	resp    1: words=0 status=ok flags=none error=blkread: could not read block at 0x00000000 (A32/BLT): blkread: transaction timeout
//	responses: 2, payload words: 3, errors: 1
package main // import "github.com/go-lpc/mvlc/cmd/mvlc-strip"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/mvlc/blkread"
	"github.com/go-lpc/mvlc/internal/mmap"
	"github.com/go-lpc/mvlc/vme"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("mvlc-strip: ")
	log.SetFlags(0)

	err := xmain(os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(stdout io.Writer, args []string) error {
	fset := flag.NewFlagSet("mvlc-strip", flag.ExitOnError)

	var (
		size    = fset.Int("n", 0xffff, "capacity of the output buffer, in 32-bit words")
		amod    = fset.String("amod", "a32/blt", "block transfer address modifier")
		partial = fset.Bool("partial", false, "display the payload of incomplete transfers")
	)

	fset.Usage = func() {
		fmt.Fprintf(fset.Output(), `mvlc-strip strips the MVLC framing off recorded block read responses.

Usage: mvlc-strip [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> mvlc-strip ./testdata/blt.raw

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse arguments: %w", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		return errors.New("missing path to input recording")
	}

	am, err := vme.ParseAMod(*amod)
	if err != nil {
		return fmt.Errorf("could not parse address modifier: %w", err)
	}

	var (
		fnames = fset.Args()
		outs   = make([]strings.Builder, len(fnames))
		grp    errgroup.Group
	)
	for i := range fnames {
		i := i
		grp.Go(func() error {
			return process(&outs[i], fnames[i], *size, blkread.Params{AMod: am}, *partial)
		})
	}
	err = grp.Wait()

	for i := range outs {
		_, _ = io.WriteString(stdout, outs[i].String())
	}

	return err
}

func process(w io.Writer, fname string, size int, params blkread.Params, partial bool) error {
	f, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open recording: %w", err)
	}
	defer f.Close()

	tr, err := blkread.LoadReplay(blkread.Unknown, f.Reader())
	if err != nil {
		return fmt.Errorf("could not load recording %q: %w", fname, err)
	}

	var (
		ctx = context.Background()
		out = make([]uint32, size)
		rdo = blkread.NewReader(tr, blkread.WithLogger(log.New(io.Discard, "", 0)))

		nresp  int
		nwords int
		nerrs  int
	)

	fmt.Fprintf(w, "=== %s ===\n", fname)
	for tr.Len() > 0 {
		res, err := rdo.Read(ctx, 0, out, params)
		fmt.Fprintf(w, "resp % 4d: words=%d status=%v flags=%v", nresp, res.Words, res.Status, res.Flags)
		nresp++
		if err != nil {
			nerrs++
			fmt.Fprintf(w, " error=%v\n", err)
			if !partial {
				continue
			}
		} else {
			fmt.Fprintf(w, "\n")
		}
		nwords += res.Words
		dump(w, out[:res.Words])
	}
	fmt.Fprintf(w, "responses: %d, payload words: %d, errors: %d\n", nresp, nwords, nerrs)

	return nil
}

func dump(w io.Writer, words []uint32) {
	const n = 8
	for i := 0; i < len(words); i += n {
		end := i + n
		if end > len(words) {
			end = len(words)
		}
		fmt.Fprintf(w, " ")
		for _, v := range words[i:end] {
			fmt.Fprintf(w, " %08x", v)
		}
		fmt.Fprintf(w, "\n")
	}
}
