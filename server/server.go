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

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/internal/reflectutil"
	"go.arsenm.dev/hellorpc/internal/types"
	"golang.org/x/net/websocket"
)

// ErrNoSuchMethod is reported to clients that call a method
// no handler was registered for
var ErrNoSuchMethod = errors.New("no such method was found")

// HandlerFunc handles a single unary call. arg is the request
// payload as the codec decoded it; use DecodeArg to convert it
// into a typed value.
type HandlerFunc func(ctx context.Context, arg any) (any, error)

// Server dispatches unary calls to registered handlers
type Server struct {
	mtx      sync.RWMutex
	handlers map[string]HandlerFunc
}

// New creates and returns a new server
func New() *Server {
	return &Server{
		handlers: map[string]HandlerFunc{},
	}
}

// Handle registers fn for calls to the given receiver and method
func (s *Server) Handle(rcvr, method string, fn HandlerFunc) {
	s.mtx.Lock()
	s.handlers[rcvr+"."+method] = fn
	s.mtx.Unlock()
}

// DecodeArg converts an argument as decoded by a codec into
// the value pointed to by out
func DecodeArg(arg any, out any) error {
	return reflectutil.Decode(arg, out)
}

// Serve starts the server using the provided listener
// and codec function
func (s *Server) Serve(ctx context.Context, ln net.Listener, cf codec.CodecFunc) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			break
		} else if err != nil {
			continue
		}

		// Create new instance of codec bound to conn
		c := cf(conn)
		// Handle connection
		go s.handleConn(ctx, c)
	}
}

// ServeWS starts a server using WebSocket. This may be useful for
// clients written in other languages, such as JS for a browser.
func (s *Server) ServeWS(ctx context.Context, addr string, cf codec.CodecFunc) error {
	// Create new WebSocket server
	ws := websocket.Server{}

	// Create new WebSocket config
	ws.Config = websocket.Config{
		Version: websocket.ProtocolVersionHybi13,
	}

	// Set server handler
	ws.Handler = func(c *websocket.Conn) {
		s.handleConn(c.Request().Context(), cf(c))
	}

	server := &http.Server{
		Addr: addr,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		Handler: http.HandlerFunc(ws.ServeHTTP),
	}

	// Listen and serve on given address
	return server.ListenAndServe()
}

// ServeConn uses the provided connection to serve the client.
// This may be useful if something other than a net.Listener
// needs to be used, such as a net.Pipe in tests.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriter, cf codec.CodecFunc) {
	s.handleConn(ctx, cf(conn))
}

// handleConn handles a connection
func (s *Server) handleConn(ctx context.Context, c codec.Codec) {
	for {
		var call types.Request
		// Read request using codec
		err := c.Decode(&call)
		if err == io.EOF {
			break
		} else if err != nil {
			// A stream codec cannot resync after a bad frame,
			// so report the failure and drop the connection
			s.sendErr(c, call, err)
			break
		}

		s.mtx.RLock()
		fn, ok := s.handlers[call.Receiver+"."+call.Method]
		s.mtx.RUnlock()
		if !ok {
			s.sendErr(c, call, ErrNoSuchMethod)
			continue
		}

		// Execute decoded call
		val, err := fn(ctx, call.Arg)
		if err != nil {
			s.sendErr(c, call, err)
			continue
		}

		// Encode response using codec
		c.Encode(types.Response{
			ID:     call.ID,
			Return: val,
		})
	}
}

// sendErr sends an error response
func (s *Server) sendErr(c codec.Codec, req types.Request, err error) {
	// Encode error response using codec
	c.Encode(types.Response{
		ID:      req.ID,
		IsError: true,
		Error:   err.Error(),
	})
}
