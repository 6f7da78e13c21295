/*
 *	hellorpc demonstrates swapping the wire codec of an RPC client.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package runner drives greet calls against a peer on a bounded
// worker pool. Every task owns its own client end to end; the pool
// only mediates admission, never call state.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.arsenm.dev/hellorpc/client"
	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/hello"

	"golang.org/x/sync/errgroup"
)

// Defaults applied to Config fields left at their zero value
const (
	DefaultAddr         = "localhost:50051"
	DefaultTasks        = 15
	DefaultDrainTimeout = 10 * time.Second
	DefaultCallTimeout  = 5 * time.Second
	DefaultPayloadSize  = 1024
)

// shutdownTimeout bounds each task's client teardown
const shutdownTimeout = 5 * time.Second

// Config configures a load run
type Config struct {
	// Addr is the greeter peer to dial. Defaults to DefaultAddr.
	Addr string

	// Codec selects the wire format. Defaults to codec.Default.
	Codec codec.CodecFunc

	// Workers bounds how many tasks run at once.
	// Defaults to 4x the available CPUs.
	Workers int

	// Tasks is how many greet calls to perform in total.
	// Zero tasks is valid and runs an empty pool.
	Tasks int

	// DrainTimeout bounds how long Run waits for outstanding
	// tasks after the last one is submitted. Defaults to
	// DefaultDrainTimeout.
	DrainTimeout time.Duration

	// CallTimeout is the per-call deadline given to each task.
	// Defaults to DefaultCallTimeout; negative disables it.
	CallTimeout time.Duration

	// PayloadSize is the size of the filler buffer rendered into
	// each greeting. Defaults to DefaultPayloadSize.
	PayloadSize int
}

// withDefaults fills in the zero fields of cfg.
// Tasks is kept as-is, as zero tasks is meaningful.
func (cfg Config) withDefaults() Config {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Default
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * 4
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.PayloadSize <= 0 {
		cfg.PayloadSize = DefaultPayloadSize
	}
	return cfg
}

// Result records the outcome of one task
type Result struct {
	Task  int
	Reply *hello.Reply
	Err   error
}

// Report aggregates the outcomes of a run
type Report struct {
	// Completed counts tasks that finished with a reply
	Completed int
	// Failed counts tasks that finished with an error
	Failed int
	// Abandoned counts tasks still running when the drain
	// timeout expired
	Abandoned int
}

// Run performs cfg.Tasks greet calls against cfg.Addr on a bounded
// worker pool and reports the outcomes. One task failing never
// affects its siblings. Run returns once every task has finished or
// the drain timeout expires, whichever comes first; tasks running
// past the deadline are counted as abandoned and left to finish on
// their own.
func Run(ctx context.Context, cfg Config) Report {
	cfg = cfg.withDefaults()

	// Queue every task up front so submission never blocks
	tasks := make(chan int, cfg.Tasks)
	for i := 0; i < cfg.Tasks; i++ {
		tasks <- i
	}
	close(tasks)

	results := make(chan Result, cfg.Tasks)

	var eg errgroup.Group
	for i := 0; i < cfg.Workers; i++ {
		eg.Go(func() error {
			for n := range tasks {
				results <- runTask(ctx, cfg, n)
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		// Workers never fail; the group is only a join
		_ = eg.Wait()
		close(done)
	}()

	drain := time.NewTimer(cfg.DrainTimeout)
	defer drain.Stop()

	var report Report
	seen := 0
	record := func(res Result) {
		seen++
		if res.Err != nil {
			report.Failed++
		} else {
			report.Completed++
		}
	}

	// flush collects already-queued results without blocking,
	// then counts the remainder as abandoned. The drain timer can
	// fire in the same instant a result lands; a finished task
	// must never be counted as abandoned.
	flush := func() Report {
		for seen < cfg.Tasks {
			select {
			case res := <-results:
				record(res)
			default:
				report.Abandoned = cfg.Tasks - seen
				return report
			}
		}
		return report
	}

	for seen < cfg.Tasks {
		select {
		case res := <-results:
			record(res)
		case <-drain.C:
			return flush()
		case <-ctx.Done():
			return flush()
		}
	}

	// All results are in; let the workers wind down
	select {
	case <-done:
	case <-drain.C:
	}

	return report
}

// runTask runs one task end to end. The task's client is torn down
// on every exit path, including call failure.
func runTask(ctx context.Context, cfg Config, n int) Result {
	c, err := client.Dial(cfg.Addr, cfg.Codec)
	if err != nil {
		return Result{Task: n, Err: err}
	}
	defer c.Shutdown(shutdownTimeout)

	if cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		defer cancel()
	}

	reply, err := c.Greet(ctx, fillerPayload(cfg.PayloadSize))
	return Result{Task: n, Reply: reply, Err: err}
}

// fillerPayload renders an n-byte 0xFF buffer as text, giving each
// greeting a payload of predictable size
func fillerPayload(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 0xFF
	}
	return fmt.Sprint(buf)
}
