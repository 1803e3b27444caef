package client

import "sync"

// observers holds the callbacks registered for connection events. Callbacks
// run synchronously, in registration order, on the goroutine that raised the
// event.
type observers struct {
	mu        sync.Mutex
	connected []func()
	errors    []func(error)
	closed    []func()
}

// OnConnected registers fn to run once the login handshake succeeds.
func (c *Conn) OnConnected(fn func()) {
	c.observers.mu.Lock()
	c.observers.connected = append(c.observers.connected, fn)
	c.observers.mu.Unlock()
}

// OnError registers fn to run when a transport or protocol failure ends the
// connection.
func (c *Conn) OnError(fn func(error)) {
	c.observers.mu.Lock()
	c.observers.errors = append(c.observers.errors, fn)
	c.observers.mu.Unlock()
}

// OnClose registers fn to run when the connection is closed, for whatever
// reason.
func (c *Conn) OnClose(fn func()) {
	c.observers.mu.Lock()
	c.observers.closed = append(c.observers.closed, fn)
	c.observers.mu.Unlock()
}

func (o *observers) emitConnected() {
	o.mu.Lock()
	fns := append([]func(){}, o.connected...)
	o.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (o *observers) emitError(err error) {
	o.mu.Lock()
	fns := append([]func(error){}, o.errors...)
	o.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

func (o *observers) emitClose() {
	o.mu.Lock()
	fns := append([]func(){}, o.closed...)
	o.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
