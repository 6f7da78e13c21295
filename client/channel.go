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
	"io"
	"net"
	"sync"

	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/internal/reflectutil"
	"go.arsenm.dev/hellorpc/internal/types"

	"github.com/gofrs/uuid"
)

// ErrClosed is returned by calls whose channel was closed
// before a response arrived
var ErrClosed = errors.New("channel is closed")

// Channel owns one connection to a peer and routes responses to
// their in-flight calls. A Channel belongs to exactly one Client
// and must never be shared between concurrently-running clients.
type Channel struct {
	conn  io.ReadWriteCloser
	codec codec.Codec

	// encMtx serializes writes, as stubs rebuilt from the same
	// channel may call concurrently
	encMtx sync.Mutex

	mtx    sync.Mutex
	closed bool
	calls  map[string]chan *types.Response
}

// NewChannel creates a channel bound to conn using the given codec
func NewChannel(conn io.ReadWriteCloser, cf codec.CodecFunc) *Channel {
	ch := &Channel{
		conn:  conn,
		codec: cf(conn),
		calls: map[string]chan *types.Response{},
	}

	go ch.recv()

	return ch
}

// Invoke performs a single unary call and decodes the
// response payload into ret. A nil ret discards the payload.
func (ch *Channel) Invoke(ctx context.Context, rcvr, method string, arg, ret any) error {
	// Create new v4 UUID to identify this call
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	idStr := id.String()

	respCh := make(chan *types.Response, 1)

	ch.mtx.Lock()
	if ch.closed {
		ch.mtx.Unlock()
		return ErrClosed
	}
	ch.calls[idStr] = respCh
	ch.mtx.Unlock()
	defer ch.forget(idStr)

	// Encode request using codec
	ch.encMtx.Lock()
	err = ch.codec.Encode(types.Request{
		ID:       idStr,
		Receiver: rcvr,
		Method:   method,
		Arg:      arg,
	})
	ch.encMtx.Unlock()
	if err != nil {
		// The codec fuses rendering and writing, so pull
		// connection failures apart from marshal failures to
		// keep the two error kinds distinct
		if isTransportErr(err) {
			return &StatusError{Status: StatusUnavailable, Err: err}
		}
		return &codec.EncodeError{Err: err}
	}

	// Wait for the matching response
	var resp *types.Response
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	// recv closes pending call channels when the connection goes away
	if resp == nil {
		return ErrClosed
	}

	// If response is an error, return error
	if resp.IsError {
		return &StatusError{Status: StatusServerError, Msg: resp.Error}
	}

	// If there is no return value, stop now
	if resp.Return == nil || ret == nil {
		return nil
	}

	err = reflectutil.Decode(resp.Return, ret)
	if err != nil {
		return &codec.DecodeError{Err: err}
	}

	return nil
}

// isTransportErr reports whether err came from the connection
// rather than from rendering a value
func isTransportErr(err error) bool {
	var netErr net.Error
	return errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &netErr)
}

// forget removes a call from the routing table
func (ch *Channel) forget(id string) {
	ch.mtx.Lock()
	delete(ch.calls, id)
	ch.mtx.Unlock()
}

// recv reads responses off the connection and routes each one
// to the call waiting for it
func (ch *Channel) recv() {
	for {
		resp := &types.Response{}
		// Attempt to decode response using codec
		err := ch.codec.Decode(resp)
		if err != nil {
			break
		}

		// Get channel from routing table, skip if it doesn't exist
		ch.mtx.Lock()
		respCh, ok := ch.calls[resp.ID]
		if ok {
			delete(ch.calls, resp.ID)
		}
		ch.mtx.Unlock()

		if ok {
			respCh <- resp
		}
	}

	// The connection is gone. Release every waiting call.
	ch.mtx.Lock()
	ch.closed = true
	for id, respCh := range ch.calls {
		close(respCh)
		delete(ch.calls, id)
	}
	ch.mtx.Unlock()
}

// Close closes the underlying connection. In-flight calls
// fail with ErrClosed.
func (ch *Channel) Close() error {
	return ch.conn.Close()
}
