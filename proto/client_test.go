package proto

import (
	"bytes"
	"net"
	"sort"
	"strings"
	"testing"
	"time"

	"go-jeux"
)

// connect registers a served session and returns the test's end of
// the pipe.
func connect(t *testing.T, reg *Registry) net.Conn {
	t.Helper()
	srv, cli := net.Pipe()
	c := reg.Register(srv)
	if c == nil {
		t.Fatal("Registry full")
	}
	go c.Handle()
	return cli
}

func send(t *testing.T, conn net.Conn, typ Type, id, role uint8, payload []byte) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := Send(conn, &Header{Type: typ, Id: id, Role: role}, payload); err != nil {
		t.Fatalf("Send %s: %s", typ, err)
	}
}

func expect(t *testing.T, conn net.Conn, typ Type) (*Header, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	hdr, payload, err := Recv(conn)
	if err != nil {
		t.Fatalf("Expected %s, got error %s", typ, err)
	}
	if hdr.Type != typ {
		t.Fatalf("Expected %s, got %s", typ, hdr.Type)
	}
	return hdr, payload
}

func login(t *testing.T, conn net.Conn, name string) {
	t.Helper()
	send(t, conn, LOGIN, 0, 0, []byte(name))
	expect(t, conn, ACK)
}

func TestLogin(t *testing.T) {
	reg := makeTestRegistry()
	alice := connect(t, reg)
	eve := connect(t, reg)

	// Requests before login are rejected
	send(t, alice, USERS, 0, 0, nil)
	expect(t, alice, NACK)

	login(t, alice, "alice")

	// A second login on the same session is rejected
	send(t, alice, LOGIN, 0, 0, []byte("alice2"))
	expect(t, alice, NACK)

	// A name can only be logged in once
	send(t, eve, LOGIN, 0, 0, []byte("alice"))
	expect(t, eve, NACK)
	login(t, eve, "eve")
}

func TestUsers(t *testing.T) {
	reg := makeTestRegistry()
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, USERS, 0, 0, nil)
	_, payload := expect(t, alice, ACK)

	if strings.HasSuffix(string(payload), "\n") {
		t.Error("User list has a trailing newline")
	}
	lines := strings.Split(string(payload), "\n")
	sort.Strings(lines)
	want := []string{"alice\t1500", "bob\t1500"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %q", len(want), payload)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Expected %q, got %q", want[i], lines[i])
		}
	}
}

func TestInviteDecline(t *testing.T) {
	reg := makeTestRegistry()
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	// Inviting an unknown player fails
	send(t, alice, INVITE, 0, 1, []byte("nobody"))
	expect(t, alice, NACK)

	// An invite with a meaningless role byte fails
	send(t, alice, INVITE, 0, 3, []byte("bob"))
	expect(t, alice, NACK)

	send(t, alice, INVITE, 0, 1, []byte("bob"))
	hdr, payload := expect(t, bob, INVITED)
	if hdr.Id != 0 || hdr.Role != 1 {
		t.Errorf("INVITED with id %d, role %d", hdr.Id, hdr.Role)
	}
	if string(payload) != "alice" {
		t.Errorf("INVITED names %q", payload)
	}
	expect(t, alice, ACK)

	// Only the target may decline
	send(t, alice, DECLINE, 0, 0, nil)
	expect(t, alice, NACK)

	send(t, bob, DECLINE, 0, 0, nil)
	if hdr, _ := expect(t, alice, DECLINED); hdr.Id != 0 {
		t.Errorf("DECLINED with id %d", hdr.Id)
	}
	expect(t, bob, ACK)

	// The invitation is gone on both sides
	send(t, bob, DECLINE, 0, 0, nil)
	expect(t, bob, NACK)
	send(t, alice, REVOKE, 0, 0, nil)
	expect(t, alice, NACK)
}

func TestRevoke(t *testing.T) {
	reg := makeTestRegistry()
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, INVITE, 0, 2, []byte("bob"))
	expect(t, bob, INVITED)
	expect(t, alice, ACK)

	// Only the source may revoke
	send(t, bob, REVOKE, 0, 0, nil)
	expect(t, bob, NACK)

	send(t, alice, REVOKE, 0, 0, nil)
	if hdr, _ := expect(t, bob, REVOKED); hdr.Id != 0 {
		t.Errorf("REVOKED with id %d", hdr.Id)
	}
	expect(t, alice, ACK)
}

// The full happy path: invite, accept, X wins the top row, ratings
// move.
func TestPlayToWin(t *testing.T) {
	players := jeux.MakeRegistry()
	reg := MakeRegistry(players, nil)
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	// role=2: bob plays Second, alice plays First
	send(t, alice, INVITE, 0, 2, []byte("bob"))
	hdr, _ := expect(t, bob, INVITED)
	if hdr.Role != 2 {
		t.Fatalf("INVITED with role %d", hdr.Role)
	}
	expect(t, alice, ACK)

	send(t, bob, ACCEPT, 0, 0, nil)
	// The source moves first, so the board goes to alice
	if _, payload := expect(t, alice, ACCEPTED); len(payload) != 29 {
		t.Errorf("ACCEPTED board has %d bytes: %q", len(payload), payload)
	}
	if _, payload := expect(t, bob, ACK); len(payload) != 0 {
		t.Errorf("Accepting ACK unexpectedly carries %q", payload)
	}

	move := func(from, to net.Conn, cell string, last bool) {
		t.Helper()
		send(t, from, MOVE, 0, 0, []byte(cell))
		_, payload := expect(t, to, MOVED)
		if !strings.HasPrefix(string(payload), "\n") {
			t.Errorf("MOVED payload misses leading newline: %q", payload)
		}
		if last == strings.Contains(string(payload), "to move") {
			t.Errorf("Bad to-move trailer in %q", payload)
		}
		if !last {
			expect(t, from, ACK)
		}
	}

	move(alice, bob, "1", false)
	move(bob, alice, "4", false)
	move(alice, bob, "2", false)
	move(bob, alice, "5", false)
	move(alice, bob, "3", true) // X completes the top row

	if hdr, _ := expect(t, alice, ENDED); hdr.Role != 1 {
		t.Errorf("ENDED with role %d, expected 1", hdr.Role)
	}
	if hdr, _ := expect(t, bob, ENDED); hdr.Role != 1 {
		t.Errorf("ENDED with role %d, expected 1", hdr.Role)
	}
	expect(t, alice, ACK)

	if r := players.Register("alice").Rating(); r != 1516 {
		t.Errorf("Winner has rating %d", r)
	}
	if r := players.Register("bob").Rating(); r != 1484 {
		t.Errorf("Loser has rating %d", r)
	}

	// The game is gone; further moves are rejected
	send(t, alice, MOVE, 0, 0, []byte("6"))
	expect(t, alice, NACK)
}

func TestPlayToDraw(t *testing.T) {
	players := jeux.MakeRegistry()
	reg := MakeRegistry(players, nil)
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, INVITE, 0, 2, []byte("bob"))
	expect(t, bob, INVITED)
	expect(t, alice, ACK)
	send(t, bob, ACCEPT, 0, 0, nil)
	expect(t, alice, ACCEPTED)
	expect(t, bob, ACK)

	cells := []string{"1", "2", "3", "5", "4", "6", "8", "7", "9"}
	for i, cell := range cells {
		from, to := alice, bob
		if i%2 == 1 {
			from, to = bob, alice
		}
		send(t, from, MOVE, 0, 0, []byte(cell))
		expect(t, to, MOVED)
		if i < len(cells)-1 {
			expect(t, from, ACK)
		}
	}

	if hdr, _ := expect(t, alice, ENDED); hdr.Role != 0 {
		t.Errorf("ENDED with role %d, expected 0", hdr.Role)
	}
	if hdr, _ := expect(t, bob, ENDED); hdr.Role != 0 {
		t.Errorf("ENDED with role %d, expected 0", hdr.Role)
	}
	expect(t, alice, ACK)

	// Equal players draw; neither rating budges
	if r := players.Register("alice").Rating(); r != 1500 {
		t.Errorf("Rating moved to %d after an even draw", r)
	}
	if r := players.Register("bob").Rating(); r != 1500 {
		t.Errorf("Rating moved to %d after an even draw", r)
	}
}

func TestResignGame(t *testing.T) {
	players := jeux.MakeRegistry()
	reg := MakeRegistry(players, nil)
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, INVITE, 0, 2, []byte("bob"))
	expect(t, bob, INVITED)
	expect(t, alice, ACK)

	// Resigning before acceptance fails
	send(t, bob, RESIGN, 0, 0, nil)
	expect(t, bob, NACK)

	send(t, bob, ACCEPT, 0, 0, nil)
	expect(t, alice, ACCEPTED)
	expect(t, bob, ACK)

	send(t, bob, RESIGN, 0, 0, nil)
	expect(t, alice, RESIGNED)
	// First (alice) wins by resignation
	if hdr, _ := expect(t, bob, ENDED); hdr.Role != 1 {
		t.Errorf("ENDED with role %d, expected 1", hdr.Role)
	}
	if hdr, _ := expect(t, alice, ENDED); hdr.Role != 1 {
		t.Errorf("ENDED with role %d, expected 1", hdr.Role)
	}
	expect(t, bob, ACK)

	if r := players.Register("bob").Rating(); r >= 1500 {
		t.Errorf("Resigner has rating %d", r)
	}
}

// A resignation arriving while the opponent's game-ending move is
// still being dispatched must fail instead of posting a second
// result.
func TestResignRacesGameEnd(t *testing.T) {
	players := jeux.MakeRegistry()
	reg := MakeRegistry(players, nil)
	asrv, alice := net.Pipe()
	bsrv, bob := net.Pipe()
	ca, cb := reg.Register(asrv), reg.Register(bsrv)
	go ca.Handle()
	go cb.Handle()
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, INVITE, 0, 2, []byte("bob"))
	expect(t, bob, INVITED)
	expect(t, alice, ACK)
	send(t, bob, ACCEPT, 0, 0, nil)
	expect(t, alice, ACCEPTED)
	expect(t, bob, ACK)

	// Terminate the game directly, reproducing the window inside
	// the winning move between applying it and closing the
	// invitation.
	g := cb.lookupInvite(0).Game()
	for _, m := range []jeux.Move{
		{Cell: 1, Piece: jeux.X}, {Cell: 4, Piece: jeux.O},
		{Cell: 2, Piece: jeux.X}, {Cell: 5, Piece: jeux.O},
		{Cell: 3, Piece: jeux.X},
	} {
		m := m
		if err := g.Apply(&m); err != nil {
			t.Fatal(err)
		}
	}

	send(t, bob, RESIGN, 0, 0, nil)
	expect(t, bob, NACK)

	if r := players.Register("alice").Rating(); r != 1500 {
		t.Errorf("Rejected resignation moved a rating to %d", r)
	}
	if r := players.Register("bob").Rating(); r != 1500 {
		t.Errorf("Rejected resignation moved a rating to %d", r)
	}
}

// recConn captures everything a session writes.
type recConn struct{ bytes.Buffer }

func (*recConn) Close() error { return nil }

func TestInviteIdExhaustion(t *testing.T) {
	cli := &Client{nextid: 255}
	inv, err := MakeInvitation(cli, &Client{}, jeux.FIRST, jeux.SECOND)
	if err != nil {
		t.Fatal(err)
	}
	if id := cli.AddInvitation(inv); id != 255 {
		t.Fatalf("Expected the last addressable id, got %d", id)
	}
	// Ids are a single byte on the wire; beyond 256 a session's
	// entries could never be addressed again, so they are refused.
	if id := cli.AddInvitation(inv); id != -1 {
		t.Errorf("Expected refusal, got id %d", id)
	}
}

func TestAcceptAfterSourceRemoval(t *testing.T) {
	reg := makeTestRegistry()
	src := reg.Register(&recConn{})
	tgt := reg.Register(&recConn{})
	inv, err := MakeInvitation(src, tgt, jeux.FIRST, jeux.SECOND)
	if err != nil {
		t.Fatal(err)
	}
	// Only the target still holds the invitation, as when the
	// source's logout races the acceptance.
	id := tgt.AddInvitation(inv)

	if _, err := tgt.Accept(id); err != nil {
		t.Fatal(err)
	}
	if n := src.rwc.(*recConn).Len(); n != 0 {
		t.Errorf("Source was sent %d bytes despite holding no entry", n)
	}
}

// A vanishing connection with a pending invitation plays out like an
// orderly decline or revoke for the peer.
func TestDisconnectCleanup(t *testing.T) {
	reg := makeTestRegistry()
	alice := connect(t, reg)
	bob := connect(t, reg)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, INVITE, 0, 1, []byte("bob"))
	expect(t, bob, INVITED)
	expect(t, alice, ACK)

	// Alice disappears; her service loop revokes the invitation.
	alice.Close()
	expect(t, bob, REVOKED)

	bob.Close()
	done := make(chan struct{})
	go func() {
		reg.WaitForEmpty()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sessions did not drain")
	}

	// The name is free again for a new session.
	carol := connect(t, reg)
	login(t, carol, "alice")
	carol.Close()
}
