package main

import "testing"

func newFakeClient() *Client {
	return &Client{send: make(chan []byte, 1)}
}

func TestRegistryBindAndLookup(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeClient()

	r.Bind("u1", c)
	if r.ClientOf("u1") != c {
		t.Error("bind did not register the connection")
	}
	if r.UserOf(c) != "u1" {
		t.Error("reverse mapping missing")
	}
	if r.StatusOf("u1") != StatusIdle {
		t.Error("new user should start Idle")
	}
}

func TestRegistryReconnectSupersedes(t *testing.T) {
	r := NewConnectionRegistry()
	old := newFakeClient()
	fresh := newFakeClient()

	r.Bind("u1", old)
	r.Bind("u1", fresh)

	if r.ClientOf("u1") != fresh {
		t.Error("reconnect did not supersede the old connection")
	}
	if r.UserOf(old) != "" {
		t.Error("old connection still mapped to the user")
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 binding, got %d", r.Count())
	}
}

func TestRegistryStaleIdentityRemoved(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeClient()

	r.Bind("u1", c)
	r.Bind("u2", c) // same connection re-identifies

	if r.ClientOf("u1") != nil {
		t.Error("stale identity should have been removed")
	}
	if r.ClientOf("u2") != c || r.UserOf(c) != "u2" {
		t.Error("new identity not bound")
	}
}

func TestRegistryBindClosedIsNoop(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeClient()
	c.closed.Store(true)

	r.Bind("u1", c)
	if r.ClientOf("u1") != nil {
		t.Error("binding a closed connection must be a no-op")
	}
}

func TestRegistryUnbind(t *testing.T) {
	r := NewConnectionRegistry()
	c := newFakeClient()

	r.Bind("u1", c)
	r.SetStatus("u1", StatusInSpace)
	r.Unbind(c)

	if r.ClientOf("u1") != nil || r.UserOf(c) != "" {
		t.Error("unbind left mappings behind")
	}
	// The logical user outlives the connection.
	if r.StatusOf("u1") != StatusInSpace {
		t.Error("unbind must not reset the user's status")
	}
}

func TestRegistryUnbindIgnoresSupersededConnection(t *testing.T) {
	r := NewConnectionRegistry()
	old := newFakeClient()
	fresh := newFakeClient()

	r.Bind("u1", old)
	r.Bind("u1", fresh)
	r.Unbind(old) // the abandoned socket finally closes

	if r.ClientOf("u1") != fresh {
		t.Error("closing the superseded connection must not unbind the new one")
	}
}
