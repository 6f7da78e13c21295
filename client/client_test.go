package client_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"go.arsenm.dev/hellorpc/client"
	"go.arsenm.dev/hellorpc/codec"
	"go.arsenm.dev/hellorpc/hello"
	"go.arsenm.dev/hellorpc/server"
)

func TestShutdownIdempotent(t *testing.T) {
	sConn, cConn := net.Pipe()
	defer sConn.Close()

	c := client.NewClient(cConn, codec.Default)

	c.Shutdown(time.Second)

	// The second call must return immediately, well within
	// the configured timeout
	start := time.Now()
	c.Shutdown(5 * time.Second)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("second shutdown took %s", elapsed)
	}
}

func TestShutdownNilClient(t *testing.T) {
	// Dial failures leave the caller with a nil client;
	// shutting it down must still be safe
	var c *client.Client
	c.Shutdown(time.Second)
}

func TestGreetAfterPeerClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sConn, cConn := net.Pipe()
	sConn.Close()

	c := client.NewClient(cConn, codec.Default)
	defer c.Shutdown(time.Second)

	// The call must surface an error, never panic, and the
	// client must still shut down cleanly afterwards
	_, err := c.Greet(ctx, "Ann")
	if err == nil {
		t.Fatal("expected error from greet on closed connection")
	}

	// A dead connection is a call failure, not a codec failure
	var st *client.StatusError
	if !errors.As(err, &st) {
		t.Fatalf("expected StatusError, got %T (%v)", err, err)
	}
	if st.Status != client.StatusUnavailable {
		t.Errorf("expected %q, got %q", client.StatusUnavailable, st.Status)
	}

	var enc *codec.EncodeError
	if errors.As(err, &enc) {
		t.Error("transport failure must not be reported as an encode error")
	}
}

func TestDialRefused(t *testing.T) {
	// Port 1 is reserved and nothing listens on it
	_, err := client.Dial("127.0.0.1:1", codec.Default)
	if err == nil {
		t.Fatal("expected dial error")
	}

	var st *client.StatusError
	if !errors.As(err, &st) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if st.Status != client.StatusUnavailable {
		t.Errorf("expected %q, got %q", client.StatusUnavailable, st.Status)
	}
}

func TestServerErrorStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sConn, cConn := net.Pipe()

	s := server.New()
	s.Handle(hello.Receiver, hello.MethodSayHello, func(context.Context, any) (any, error) {
		return nil, errors.New("greeting rejected")
	})
	go s.ServeConn(ctx, sConn, codec.Default)

	c := client.NewClient(cConn, codec.Default)
	defer c.Shutdown(time.Second)

	_, err := c.Greet(ctx, "Ann")

	var st *client.StatusError
	if !errors.As(err, &st) {
		t.Fatalf("expected StatusError, got %T (%v)", err, err)
	}
	if st.Status != client.StatusServerError {
		t.Errorf("expected %q, got %q", client.StatusServerError, st.Status)
	}
}

func TestStubDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sConn, cConn := net.Pipe()

	// A peer that accepts requests but never responds
	go io.Copy(io.Discard, sConn)

	c := client.NewClient(cConn, codec.Default)
	defer c.Shutdown(time.Second)

	stub := c.Stub().WithTimeout(50 * time.Millisecond)

	_, err := stub.SayHello(ctx, &hello.Request{Name: "Ann"})

	var st *client.StatusError
	if !errors.As(err, &st) {
		t.Fatalf("expected StatusError, got %T (%v)", err, err)
	}
	if st.Status != client.StatusDeadlineExceeded {
		t.Errorf("expected %q, got %q", client.StatusDeadlineExceeded, st.Status)
	}
}

func TestStubRebuildLeavesOriginal(t *testing.T) {
	_, cConn := net.Pipe()

	c := client.NewClient(cConn, codec.Default)
	defer c.Shutdown(time.Second)

	base := c.Stub()
	bounded := base.WithTimeout(time.Second)
	rebuilt := bounded.WithOptions(client.CallOptions{Timeout: time.Minute})

	if base == bounded || bounded == rebuilt {
		t.Error("rebuilding a stub must produce a new value")
	}
	if c.Stub() != base {
		t.Error("the client's own stub must never change")
	}
}
