package proto

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go-jeux"
)

func makeTestRegistry() *Registry {
	return MakeRegistry(jeux.MakeRegistry(), nil)
}

// stub connection for registry bookkeeping tests
type nullConn struct{}

func (nullConn) Read([]byte) (int, error)  { return 0, errors.New("closed") }
func (nullConn) Write([]byte) (int, error) { return 0, errors.New("closed") }
func (nullConn) Close() error              { return nil }

func TestCapacity(t *testing.T) {
	reg := makeTestRegistry()
	var clients []*Client
	for i := 0; i < MaxClients; i++ {
		cli := reg.Register(nullConn{})
		if cli == nil {
			t.Fatalf("Registration %d rejected below capacity", i)
		}
		clients = append(clients, cli)
	}
	if cli := reg.Register(nullConn{}); cli != nil {
		t.Fatal("Registration accepted beyond capacity")
	}
	reg.Unregister(clients[0])
	if cli := reg.Register(nullConn{}); cli == nil {
		t.Fatal("Registration rejected after a slot was freed")
	}
}

func TestNameClaim(t *testing.T) {
	reg := makeTestRegistry()
	a := reg.Register(nullConn{})
	b := reg.Register(nullConn{})

	if err := reg.claim("alice", a); err != nil {
		t.Fatal(err)
	}
	if err := reg.claim("alice", b); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected %s, got %v", ErrNameTaken, err)
	}
	if cli := reg.Lookup("alice"); cli != a {
		t.Error("Lookup returned the wrong session")
	}

	// Releasing under the wrong session must not free the name
	reg.release("alice", b)
	if cli := reg.Lookup("alice"); cli != a {
		t.Error("Foreign release dropped the claim")
	}
	reg.release("alice", a)
	if cli := reg.Lookup("alice"); cli != nil {
		t.Error("Name still claimed after release")
	}
	if err := reg.claim("alice", b); err != nil {
		t.Errorf("Reclaim after release failed: %s", err)
	}
}

func TestWaitForEmpty(t *testing.T) {
	reg := makeTestRegistry()
	clients := []*Client{
		reg.Register(nullConn{}),
		reg.Register(nullConn{}),
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.WaitForEmpty()
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForEmpty returned while sessions were registered")
	case <-time.After(10 * time.Millisecond):
	}

	for _, cli := range clients {
		reg.Unregister(cli)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForEmpty did not release all waiters")
	}

	// An empty registry does not block at all
	reg.WaitForEmpty()
}

func TestShutdownAllForcesEOF(t *testing.T) {
	reg := makeTestRegistry()
	srv, cli := net.Pipe()
	c := reg.Register(srv)
	go c.Handle()

	reg.ShutdownAll()

	cli.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := Recv(cli); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Expected %s after shutdown, got %v", ErrDisconnected, err)
	}

	done := make(chan struct{})
	go func() {
		reg.WaitForEmpty()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Service loop did not unregister after shutdown")
	}
}
