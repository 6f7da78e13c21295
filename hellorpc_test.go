package hellorpc_test

import (
	"context"
	"encoding/gob"
	"net"
	"testing"
	"time"

	"go.arsenm.dev/hellorpc/client"
	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/hello"
	"go.arsenm.dev/hellorpc/server"
)

// newGreeter returns a server that echoes "hello, " + name
func newGreeter() *server.Server {
	s := server.New()
	s.Handle(hello.Receiver, hello.MethodSayHello, func(_ context.Context, arg any) (any, error) {
		var req hello.Request
		if err := server.DecodeArg(arg, &req); err != nil {
			return nil, err
		}
		return hello.Reply{Message: "hello, " + req.Name}, nil
	})
	return s
}

func TestGreet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create new network pipe
	sConn, cConn := net.Pipe()

	s := newGreeter()
	// Serve the pipe connection using default codec
	go s.ServeConn(ctx, sConn, codec.Default)

	// Create new client using default codec
	c := client.NewClient(cConn, codec.Default)
	defer c.Shutdown(time.Second)

	reply, err := c.Greet(ctx, "Ann")
	if err != nil {
		t.Fatal(err)
	}

	if reply.Message != "hello, Ann" {
		t.Errorf(`expected "hello, Ann", got %q`, reply.Message)
	}
}

func TestCodecs(t *testing.T) {
	// Register message types for gob
	gob.Register(hello.Request{})
	gob.Register(hello.Reply{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create function to test each codec
	testCodec := func(cf codec.CodecFunc, name string) {
		// Create network pipe
		sConn, cConn := net.Pipe()

		s := newGreeter()
		// Serve the pipe connection using provided codec
		go s.ServeConn(ctx, sConn, cf)

		// Create new client using provided codec
		c := client.NewClient(cConn, cf)
		defer c.Shutdown(time.Second)

		reply, err := c.Greet(ctx, "Ann")
		if err != nil {
			t.Errorf("codec/%s: %v", name, err)
			return
		}

		if reply.Message != "hello, Ann" {
			t.Errorf(`codec/%s: expected "hello, Ann", got %q`, name, reply.Message)
		}
	}

	// Test all codecs
	testCodec(codec.JSON, "json")
	testCodec(codec.Msgpack, "msgpack")
	testCodec(codec.Gob, "gob")
}

func TestStubSayHello(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sConn, cConn := net.Pipe()

	s := newGreeter()
	go s.ServeConn(ctx, sConn, codec.Default)

	c := client.NewClient(cConn, codec.Default)
	defer c.Shutdown(time.Second)

	// Rebuild the stub with a deadline; the client's own
	// stub must be left untouched
	stub := c.Stub().WithTimeout(5 * time.Second)

	reply, err := stub.SayHello(ctx, &hello.Request{Name: "Bob"})
	if err != nil {
		t.Fatal(err)
	}

	if reply.Message != "hello, Bob" {
		t.Errorf(`expected "hello, Bob", got %q`, reply.Message)
	}
}
