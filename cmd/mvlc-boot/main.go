// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mvlc-boot (re)starts one mvlc-blt server per recording.
//
// Usage: mvlc-boot [OPTIONS] RECORDING1 [RECORDING2 ...]
//
// Each server logs into DIR/mvlc-blt-<i>.log.
// With -pmon, the resource usage of each server is recorded into
// DIR/mvlc-blt-<i>-pmon.log.
package main // import "github.com/go-lpc/mvlc/cmd/mvlc-boot"

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("mvlc-boot: ")
	log.SetFlags(0)

	var (
		doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")
		bin    = flag.String("bin", "mvlc-blt", "path to the block read server")
		args   = flag.String("args", "", "space separated options passed to each server")
		dir    = flag.String("dir", os.Getenv("MVLCLOGDIR"), "directory holding log files")
	)

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input recording")
	}

	stop := make(chan os.Signal, 1)
	cmds := commands(*bin, strings.Fields(*args), flag.Args())

	killall(*bin)

	err := run(*doMon, *doFreq, cmds, *dir, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func commands(bin string, opts []string, fnames []string) []*exec.Cmd {
	cmds := make([]*exec.Cmd, len(fnames))
	for i, fname := range fnames {
		args := append(append([]string{}, opts...), fname)
		cmds[i] = exec.Command(bin, args...)
	}
	return cmds
}

// killall kills the servers left over by a previous boot.
func killall(bin string) {
	name := filepath.Base(bin)
	kill := exec.Command("killall", name)
	kill.Stderr = os.Stderr
	kill.Stdout = os.Stdout
	err := kill.Run()
	if err != nil {
		log.Printf("could not kill %q: %+v", name, err)
	}
}

func run(doMon bool, freq time.Duration, cmds []*exec.Cmd, dir string, stop chan os.Signal) error {
	if len(cmds) == 0 {
		return errors.New("no server to start")
	}

	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	if dir == "" {
		dir = "/var/log/mvlc"
	}

	var (
		grp   errgroup.Group
		abort = make(chan int)
	)
	for i := range cmds {
		i := i
		grp.Go(func() error {
			name := fmt.Sprintf("%s-%d", filepath.Base(cmds[i].Path), i)
			return start(name, cmds[i], dir, abort, doMon, freq)
		})
	}

	go func() {
		<-stop
		close(abort)
	}()

	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot block read servers: %w", err)
	}
	return nil
}

func start(name string, cmd *exec.Cmd, dir string, kill chan int, doMon bool, freq time.Duration) error {
	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	if doMon {
		p, err := pmon.Monitor(cmd.Process.Pid)
		if err != nil {
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
		if err != nil {
			return fmt.Errorf("could not create pmon log file for %q: %w", name, err)
		}
		defer f.Close()
		p.W = f
		p.Freq = freq

		go func() {
			log.Printf("run pmon %q...", name)
			err := p.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", name, err)
			}
		}()

		defer func() {
			err := p.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", name, err)
			}
		}()
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	select {
	case <-kill:
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %+v", name, err)
		}
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", name, err)
		}
	}

	return nil
}
