/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command poolbench compares containers and frame buffers backed by slab pools
// with the same workloads on the Go heap.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/cloudwego/poolkit/container/slabpool"
	"github.com/cloudwego/poolkit/unsafex/malloc"
)

type args struct {
	iterations int
	maxSize    int
	growSize   int
	seed       int64
	tests      []string
	frames     int
	frameSize  int
	rounds     int
	source     string
	workers    int
	help       bool
}

func parseArgs(fs *pflag.FlagSet, argv []string) (*args, error) {
	a := &args{}
	fs.IntVar(&a.iterations, "iterations", 1024, "resize iterations of each container test")
	fs.IntVar(&a.maxSize, "range", 1024, "containers are resized to a random size in [0, range]")
	fs.IntVar(&a.growSize, "grow-size", slabpool.DefaultGrowSize, "blocks per slab")
	fs.Int64Var(&a.seed, "seed", 0, "random seed, worker i uses seed+i")
	fs.StringSliceVar(&a.tests, "tests", []string{"push-front", "push-back", "map", "set", "frames"}, "tests to run")
	fs.IntVar(&a.frames, "frames", 100000, "frames per round of the frames test")
	fs.IntVar(&a.frameSize, "frame-size", defaultFrameSize, "bytes per frame, header included")
	fs.IntVar(&a.rounds, "rounds", 3, "rounds of the frames test")
	fs.StringVar(&a.source, "source", "heap", "slab source of the frames test: heap, mcache, mempool or mmap")
	fs.IntVar(&a.workers, "workers", 1, "goroutines running the tests, each with its own pools")
	fs.BoolVarP(&a.help, "help", "h", false, "print usage instructions and exit")
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if a.help {
		return a, nil
	}
	switch {
	case a.iterations < 0:
		return nil, errors.Errorf("--iterations must be >= 0, got %d", a.iterations)
	case a.maxSize < 0:
		return nil, errors.Errorf("--range must be >= 0, got %d", a.maxSize)
	case a.growSize <= 0:
		return nil, errors.Errorf("--grow-size must be > 0, got %d", a.growSize)
	case a.frames < 0:
		return nil, errors.Errorf("--frames must be >= 0, got %d", a.frames)
	case a.frameSize < frameHeaderSize:
		return nil, errors.Errorf("--frame-size must be >= %d, got %d", frameHeaderSize, a.frameSize)
	case a.workers <= 0:
		return nil, errors.Errorf("--workers must be > 0, got %d", a.workers)
	}
	for _, t := range a.tests {
		if _, ok := findContainerTest(t); !ok && t != "frames" {
			return nil, errors.Errorf("unknown test %q", t)
		}
	}
	if _, err := malloc.SourceByName(a.source); err != nil {
		return nil, err
	}
	return a, nil
}

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	fs := pflag.NewFlagSet("poolbench", pflag.ContinueOnError)
	a, err := parseArgs(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if a.help {
		fs.PrintDefaults()
		return
	}
	if err := run(logger, a); err != nil {
		level.Error(logger).Log("msg", "poolbench failed", "err", err)
		os.Exit(1)
	}
}

// bench runs the tests of one worker.
type bench struct {
	args   *args
	worker int
	logger log.Logger
	ops    *atomic.Int64
}

func run(logger log.Logger, a *args) error {
	level.Info(logger).Log("msg", "starting", "tests", strings.Join(a.tests, ","), "workers", a.workers,
		"grow_size", a.growSize, "source", a.source)

	var ops atomic.Int64
	start := time.Now()
	var g errgroup.Group
	for i := 0; i < a.workers; i++ {
		b := &bench{
			args:   a,
			worker: i,
			logger: log.With(logger, "worker", i),
			ops:    &ops,
		}
		g.Go(b.run)
	}
	err := g.Wait()
	level.Info(logger).Log("msg", "done", "ops", ops.Load(), "seconds", time.Since(start).Seconds())
	return err
}

func (b *bench) run() error {
	for _, name := range b.args.tests {
		var err error
		if name == "frames" {
			err = b.runFrames()
		} else {
			t, _ := findContainerTest(name)
			err = b.runContainer(t)
		}
		if err != nil {
			return errors.Wrapf(err, "worker %d: %s", b.worker, name)
		}
	}
	return nil
}

func (b *bench) runContainer(t containerTest) error {
	seed := b.args.seed + int64(b.worker)

	heap := t.heap()
	d, n, err := runResizer(heap, b.args.iterations, b.args.maxSize, seed)
	b.ops.Add(int64(n))
	if err != nil {
		return err
	}
	b.report(t.name, "heap", d, n)
	_ = heap.close()

	pooled, err := t.pool(&slabpool.Option{GrowSize: b.args.growSize})
	if err != nil {
		return err
	}
	d, n, err = runResizer(pooled, b.args.iterations, b.args.maxSize, seed)
	b.ops.Add(int64(n))
	if err != nil {
		_ = pooled.close()
		return err
	}
	b.report(t.name, "pool", d, n)
	return pooled.close()
}

func (b *bench) report(test, alloc string, d time.Duration, ops int) {
	level.Info(b.logger).Log("test", test, "alloc", alloc, "ops", ops, "seconds", fmt.Sprintf("%.6f", d.Seconds()))
}

func (b *bench) runFrames() error {
	src, err := malloc.SourceByName(b.args.source)
	if err != nil {
		return err
	}
	pooled, err := newPoolFrames(b.args.frameSize, b.args.growSize, src)
	if err != nil {
		return err
	}
	allocs := []struct {
		name string
		a    frameAllocator
	}{
		{"heap", heapFrames{size: b.args.frameSize}},
		{src.Name(), pooled},
	}
	frames := make([][]byte, b.args.frames)
	for _, x := range allocs {
		for round := 0; round < b.args.rounds; round++ {
			r, err := runFrameRound(x.a, frames)
			if err != nil {
				_ = pooled.close()
				return err
			}
			b.ops.Add(2 * int64(len(frames)))
			level.Info(b.logger).Log("test", "frames", "alloc", x.name, "round", round,
				"length", r.sample.length, "flags", r.sample.flags,
				"fill_seconds", fmt.Sprintf("%.6f", r.fill.Seconds()),
				"free_seconds", fmt.Sprintf("%.6f", r.free.Seconds()))
		}
	}
	st := pooled.p.Stats()
	level.Debug(b.logger).Log("msg", "frame pool", "slabs", st.Slabs, "reserved", st.Reserved, "block_size", st.BlockSize)
	if err := pooled.close(); err != nil {
		return errors.Wrap(err, "close frame pool")
	}
	return nil
}
