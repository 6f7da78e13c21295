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

package client

import (
	"context"
	"errors"
	"time"

	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/hello"
)

// Status classifies call failures
type Status string

// Statuses reported by StatusError
const (
	StatusUnavailable      Status = "unavailable"
	StatusDeadlineExceeded Status = "deadline exceeded"
	StatusServerError      Status = "server error"
)

// StatusError is returned when a call completes with a non-OK status
type StatusError struct {
	Status Status
	Msg    string
	Err    error
}

func (e *StatusError) Error() string {
	switch {
	case e.Msg != "":
		return string(e.Status) + ": " + e.Msg
	case e.Err != nil:
		return string(e.Status) + ": " + e.Err.Error()
	default:
		return string(e.Status)
	}
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// CallOptions configures how a stub performs its calls.
// Options are copied into each stub, never shared.
type CallOptions struct {
	// Timeout bounds each call. Zero means no per-call deadline.
	Timeout time.Duration
}

// Stub performs the Greeter.SayHello method over a Channel, using
// whatever codec the channel was built with. Stubs are values;
// rebuilding one with different options leaves the original intact,
// so a base stub can be shared and specialized per call site.
type Stub struct {
	ch   *Channel
	opts CallOptions
}

// NewStub returns a stub bound to ch with default call options
func NewStub(ch *Channel) Stub {
	return Stub{ch: ch}
}

// WithOptions returns a new stub sharing the same channel,
// with opts replacing the previous call options
func (s Stub) WithOptions(opts CallOptions) Stub {
	return Stub{ch: s.ch, opts: opts}
}

// WithTimeout returns a new stub whose calls are bounded by d
func (s Stub) WithTimeout(d time.Duration) Stub {
	opts := s.opts
	opts.Timeout = d
	return Stub{ch: s.ch, opts: opts}
}

// SayHello performs the Greeter.SayHello method and returns
// the peer's reply
func (s Stub) SayHello(ctx context.Context, req *hello.Request) (*hello.Reply, error) {
	if req == nil {
		req = &hello.Request{}
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	// Send the request by value so codecs that carry concrete
	// types, such as gob, see the registered message type
	reply := &hello.Reply{}
	err := s.ch.Invoke(ctx, hello.Receiver, hello.MethodSayHello, *req, reply)
	if err != nil {
		return nil, callError(err)
	}

	return reply, nil
}

// callError classifies transport-level failures. Status and codec
// errors already carry their kind and pass through untouched.
func callError(err error) error {
	var (
		st  *StatusError
		enc *codec.EncodeError
		dec *codec.DecodeError
	)

	switch {
	case errors.As(err, &st), errors.As(err, &enc), errors.As(err, &dec):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &StatusError{Status: StatusDeadlineExceeded, Err: err}
	default:
		return &StatusError{Status: StatusUnavailable, Err: err}
	}
}
