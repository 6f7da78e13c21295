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
	"io"
	"net"
	"sync"
	"time"

	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/hello"
)

// Client owns one channel to a greeter peer for its whole life.
// Create one with Dial or NewClient, use it for any number of
// Greet calls, then call Shutdown. Shutdown is idempotent and
// safe on every exit path.
type Client struct {
	ch   *Channel
	stub Stub

	wg   sync.WaitGroup
	once sync.Once
}

// Dial connects to a greeter peer over plaintext TCP
func Dial(addr string, cf codec.CodecFunc) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, &StatusError{Status: StatusUnavailable, Err: err}
	}

	return NewClient(conn, cf), nil
}

// NewClient creates a client on an existing connection
func NewClient(conn io.ReadWriteCloser, cf codec.CodecFunc) *Client {
	ch := NewChannel(conn, cf)
	return &Client{
		ch:   ch,
		stub: NewStub(ch),
	}
}

// Stub returns the client's stub. Rebuild it with WithTimeout or
// WithOptions to change call options; the client's own stub is
// never mutated.
func (c *Client) Stub() Stub {
	return c.stub
}

// Greet asks the peer to greet name and returns its reply.
// Failures surface to the caller; nothing is swallowed here.
func (c *Client) Greet(ctx context.Context, name string) (*hello.Reply, error) {
	c.wg.Add(1)
	defer c.wg.Done()

	return c.stub.SayHello(ctx, &hello.Request{Name: name})
}

// Shutdown closes the client's channel, waiting up to timeout for
// in-flight calls to finish first. Calls still running after the
// wait fail with ErrClosed. Shutdown may be called any number of
// times, on a nil client, and after a failed Dial; only the first
// call on a live client does any work, and close errors are
// swallowed.
func (c *Client) Shutdown(timeout time.Duration) {
	if c == nil {
		return
	}

	c.once.Do(func() {
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
		}

		c.ch.Close()
	})
}
