package transport

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rosapi/protocol"
	"github.com/luma/rosapi/storage"
)

const (
	readBufferSize = 4096
	writeQueueSize = 127
)

// TCP is an emulated RouterOS API service.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr      string
	reuseport bool

	numListeners int
	listeners    []*TCPListener

	device *Device
	store  storage.Store

	log   *zap.Logger
	trace bool
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	store := options.Store
	if store == nil {
		inmemory := storage.NewInmemoryStore()
		if err := inmemory.Restore([]byte(storage.DefaultState)); err != nil {
			panic(err)
		}
		store = inmemory
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport:    options.Reuseport,
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		device:       NewDevice(options.Username, options.Password, store),
		store:        store,
		trace:        options.Trace,
		log:          log,
	}
}

// Start opens every listener before returning, so clients can connect as
// soon as it succeeds.
func (w *TCP) Start(parentCtx context.Context) (err error) {
	ctx, cancel := context.WithCancel(parentCtx)
	w.cancel = cancel

	w.log.Info("Starting tcp listeners", zap.Int("count", w.numListeners))

	for i := 0; i < w.numListeners; i++ {
		if lerr := w.startListener(ctx); lerr != nil {
			err = multierr.Append(err, lerr)
		}
	}

	if len(w.listeners) == 0 {
		cancel()
		return err
	}

	if err != nil {
		// Running with fewer listeners than asked for is not fatal
		w.log.Warn("Some listeners failed to start", zap.Error(err))
	}

	return nil
}

func (t *TCP) Store() storage.Store {
	return t.store
}

// Addrs returns the address of every listener.
func (t *TCP) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(t.listeners))
	for _, l := range t.listeners {
		addrs = append(addrs, l.Addr())
	}

	return addrs
}

func (w *TCP) startListener(ctx context.Context) error {
	addr := w.addr
	if len(w.listeners) > 0 && !w.reuseport {
		// Without SO_REUSEPORT the port can only be bound once
		return nil
	}

	if len(w.listeners) > 0 {
		// Share the port the first listener got, which matters for port 0
		addr = w.listeners[0].Addr().String()
	}

	listen := net.Listen
	if w.reuseport {
		listen = reuseport.Listen
	}

	ln, err := listen("tcp", addr)
	if err != nil {
		return err
	}

	listener := NewTCPListener(
		ctx,
		ln,
		w.device,
		w.trace,
		w.log.Named("listener").With(zap.Int("listener", len(w.listeners))),
	)

	w.listeners = append(w.listeners, listener)

	w.stopWaiter.Add(1)
	go func() {
		defer w.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			w.log.Error("Listener failed", zap.Error(err))
		}
	}()

	return nil
}

// Close immediately closes all listeners and connections.
func (w *TCP) Close() (err error) {
	w.log.Info("Stopping TCP server")
	if w.cancel != nil {
		w.cancel()
	}

	for _, listener := range w.listeners {
		err = multierr.Append(err, listener.Close())
	}

	w.stopWaiter.Wait()
	w.log.Info("Listeners stopped")

	return err
}

type TCPListener struct {
	ctx context.Context

	listener net.Listener
	device   *Device
	trace    bool
	log      *zap.Logger

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}
	loopWaiter  sync.WaitGroup
}

func NewTCPListener(
	ctx context.Context,
	listener net.Listener,
	device *Device,
	trace bool,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		listener:    listener,
		device:      device,
		trace:       trace,
		activeConns: make(map[*TCPConn]struct{}),
		log:         log,
	}
}

func (t *TCPListener) Addr() net.Addr {
	return t.listener.Addr()
}

// Close stops accepting and closes every active connection.
func (t *TCPListener) Close() error {
	err := t.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	t.mu.Lock()
	conns := make([]*TCPConn, 0, len(t.activeConns))
	for conn := range t.activeConns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	for _, conn := range conns {
		err = multierr.Append(err, conn.Close())
	}

	return err
}

func (t *TCPListener) Listen() error {
	go func() {
		<-t.ctx.Done()

		t.log.Info("Closing listener")
		if err := t.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	defer func() {
		t.log.Info("Waiting for Read/Write loops to stop")
		t.loopWaiter.Wait()
		t.log.Info("Listener stopped")
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// The listener was closed while we were waiting for new
				// connections, that's fine.
				return nil
			}

			return err
		}

		tcpConn := NewTCPConn(t.ctx, conn, t.device, t.trace, t.log.Named("conn"))
		t.addConn(tcpConn)

		t.loopWaiter.Add(1)
		go func() {
			defer t.loopWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Start()
		}()
	}
}

func (t *TCPListener) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

// TCPConn is one API session with the emulated device.
type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup
	closeOnce  sync.Once

	conn    net.Conn
	device  *Device
	session Session

	writeQueue chan []byte

	trace bool
	log   *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn net.Conn,
	device *Device,
	trace bool,
	log *zap.Logger,
) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)

	return &TCPConn{
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		device:     device,
		writeQueue: make(chan []byte, writeQueueSize),
		trace:      trace,
		log:        log.With(zap.String("remote", conn.RemoteAddr().String())),
	}
}

// Close stops both loops and closes the socket.
func (t *TCPConn) Close() (err error) {
	t.closeOnce.Do(func() {
		t.cancel()

		// Unblocks the read loop
		err = t.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})

	return err
}

// Start runs the read and write loops and returns once both have exited and
// the socket is closed.
func (t *TCPConn) Start() {
	t.loopWaiter.Add(2)

	go func() {
		defer t.loopWaiter.Done()
		t.ReadLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.WriteLoop()
	}()

	t.loopWaiter.Wait()
	t.Close()
}

func (t *TCPConn) ReadLoop() {
	log := t.log.Named("readLoop")
	dec := protocol.NewDecoder(0)
	buf := make([]byte, readBufferSize)

	defer func() {
		// Let the write loop drain, then stop
		select {
		case t.writeQueue <- nil:
		case <-t.ctx.Done():
		}

		log.Debug("Read loop exited")
	}()

	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])

			for {
				sentence, derr := dec.Next()
				if errors.Is(derr, protocol.ErrNeedMore) {
					break
				}

				if derr != nil {
					log.Warn("Failed to decode client sentence", zap.Error(derr))
					return
				}

				if t.trace {
					log.Info("Received", zap.Strings("words", sentence))
				}

				for _, reply := range t.device.Handle(t.ctx, &t.session, sentence) {
					if t.trace {
						log.Info("Sending", zap.Strings("words", reply))
					}

					t.Write(protocol.EncodeSentence(reply...))
				}

				if t.session.Quit {
					log.Info("Client quit, exiting...")
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debug("Client hung up", zap.Error(err))
			}

			return
		}
	}
}

func (t *TCPConn) WriteLoop() {
	log := t.log.Named("writeLoop")

	for {
		select {
		case <-t.ctx.Done():
			return

		case data := <-t.writeQueue:
			if data == nil {
				// Our read loop has terminated, we should too
				log.Debug("Write loop terminating as read loop has exited")
				return
			}

			if _, err := t.conn.Write(data); err != nil {
				log.Warn("Failed to write from write queue", zap.Error(err))
				t.Close()
				return
			}
		}
	}
}

// Write queues data for the write loop. Write! Write! Write!
func (t *TCPConn) Write(data []byte) (int, error) {
	select {
	case t.writeQueue <- data:
		return len(data), nil

	case <-t.ctx.Done():
		return 0, t.ctx.Err()
	}
}
