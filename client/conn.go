package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rosapi/protocol"
)

const (
	readBufferSize   = 4096
	replyBacklogSize = 16
)

type closeWriter interface {
	CloseWrite() error
}

// Conn is a session with a single RouterOS device.
//
// The protocol as used here has no request tags, so a Conn has at most one
// command in flight. Replies are matched to commands purely by order.
type Conn struct {
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	state State
	conn  net.Conn
	err   error

	// exchange is the single pending request slot
	exchange chan struct{}

	replies chan *protocol.Reply

	// closing is closed as soon as the connection starts shutting down
	closing chan struct{}

	// done is closed when the read loop exits
	done chan struct{}

	observers observers
}

func New(opts Options) *Conn {
	opts = opts.withDefaults()

	return &Conn{
		opts:     opts,
		log:      opts.Log.Named("conn").With(zap.String("addr", opts.Addr())),
		state:    Unconnected,
		exchange: make(chan struct{}, 1),
		replies:  make(chan *protocol.Reply, replyBacklogSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle phase.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Err returns the error that closed the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Connect dials the device and logs in. The whole operation is bounded by
// Options.Timeout. On any failure the Conn is closed and cannot be reused.
func (c *Conn) Connect(ctx context.Context) error {
	if !c.transition(Unconnected, Connecting) {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		err = c.timeoutOr(ctx, err)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.state != Connecting {
		// Closed while we were dialing
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}

	c.conn = conn
	c.state = LoggingIn
	c.mu.Unlock()

	go c.readLoop(conn)

	if err := c.login(ctx); err != nil {
		err = c.timeoutOr(ctx, err)
		c.fail(err)
		return err
	}

	if !c.transition(LoggingIn, Ready) {
		return ErrNotConnected
	}

	c.log.Info("Connected", zap.String("user", c.opts.Username))
	c.observers.emitConnected()

	return nil
}

func (c *Conn) dial(ctx context.Context) (net.Conn, error) {
	addr := c.opts.Addr()

	if c.opts.Dial != nil {
		return c.opts.Dial(ctx, "tcp", addr)
	}

	if c.opts.TLS {
		dialer := &tls.Dialer{
			Config: &tls.Config{
				InsecureSkipVerify: true, //nolint:gosec // devices use self-signed certificates
			},
		}
		return dialer.DialContext(ctx, "tcp", addr)
	}

	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", addr)
}

func (c *Conn) login(ctx context.Context) error {
	reply, err := c.roundTrip(ctx, []string{protocol.CmdLogin})
	if err != nil {
		return err
	}

	if err := reply.ErrorOrNil(); err != nil {
		return &LoginError{Round: 1, Err: err}
	}

	reply, err = c.roundTrip(ctx, protocol.LoginWords(c.opts.Username, c.opts.Password))
	if err != nil {
		return err
	}

	if err := reply.ErrorOrNil(); err != nil {
		return &LoginError{Round: 2, Err: err}
	}

	return nil
}

// Send runs a command and returns its records. The first word is the command
// path, the rest are attribute or query words passed through as is.
//
// A `!trap` is returned as a *protocol.TrapError and leaves the connection
// usable. Only one command may be in flight, a concurrent call fails with
// ErrBusy.
func (c *Conn) Send(ctx context.Context, words ...string) ([]map[string]string, error) {
	reply, err := c.Run(ctx, words...)
	if err != nil {
		return nil, err
	}

	return reply.Data, nil
}

// Run is Send, but returns the whole reply. When the device traps the command
// both the reply and the trap are returned.
func (c *Conn) Run(ctx context.Context, words ...string) (*protocol.Reply, error) {
	if len(words) == 0 {
		return nil, protocol.ErrEmptyCommand
	}

	if c.State() != Ready {
		return nil, ErrNotConnected
	}

	reply, err := c.roundTrip(ctx, words)
	if err != nil {
		return nil, err
	}

	return reply, reply.ErrorOrNil()
}

// roundTrip writes one command and waits for its reply.
func (c *Conn) roundTrip(ctx context.Context, words []string) (*protocol.Reply, error) {
	select {
	case c.exchange <- struct{}{}:
	default:
		return nil, ErrBusy
	}
	defer func() { <-c.exchange }()

	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if conn == nil || (state != Ready && state != LoggingIn) {
		return nil, ErrNotConnected
	}

	if c.opts.Debug {
		c.log.Debug("Sending", zap.Strings("words", redact(words)))
	}

	if err := protocol.WriteSentence(conn, words...); err != nil {
		if c.State() == Closed {
			// Closed while we were writing
			return nil, c.closedErr()
		}

		err = fmt.Errorf("failed to write command: %w", err)
		c.fail(err)
		return nil, err
	}

	select {
	case reply := <-c.replies:
		return reply, nil

	case <-c.closing:
		// A final reply may have been queued right before the shutdown
		select {
		case reply := <-c.replies:
			return reply, nil
		default:
		}

		return nil, c.closedErr()

	case <-ctx.Done():
		// The reply will still arrive but nothing can tell it apart from the
		// reply to the next command.
		c.fail(ctx.Err())
		return nil, ctx.Err()
	}
}

func (c *Conn) readLoop(conn net.Conn) {
	log := c.log.Named("readLoop")
	asm := protocol.NewAssembler(c.opts.MaxBuffer)
	buf := make([]byte, readBufferSize)

	defer func() {
		asm.Reset()
		close(c.done)
		log.Debug("Read loop exited")
	}()

	for {
		n, err := conn.Read(buf)

		if n > 0 {
			replies, ferr := asm.Feed(buf[:n])

			for _, sentences := range replies {
				reply := protocol.DecodeReply(sentences)

				if c.opts.Debug {
					for _, s := range sentences {
						log.Debug("Received", zap.Strings("words", s))
					}
				}

				select {
				case c.replies <- reply:
				case <-c.closing:
					return
				}

				if reply.Fatal != nil {
					log.Warn("Device sent !fatal", zap.String("reason", reply.Fatal.Reason))
					c.fail(reply.Fatal)
					return
				}
			}

			if ferr != nil {
				c.fail(ferr)
				return
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("connection closed by device: %w", err)
			}

			c.fail(err)
			return
		}
	}
}

// Close half-closes the connection, waits for the device to hang up and then
// releases the socket. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()

	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}

	conn := c.conn
	c.state = Closed
	c.err = ErrNotConnected
	close(c.closing)
	c.mu.Unlock()

	if conn == nil {
		c.observers.emitClose()
		return nil
	}

	var err error

	if cw, ok := conn.(closeWriter); ok {
		if cerr := cw.CloseWrite(); cerr != nil {
			err = multierr.Append(err, cerr)
		} else {
			select {
			case <-c.done:
			case <-time.After(c.opts.Timeout):
				c.log.Warn("Device did not hang up, closing anyway")
			}
		}
	}

	if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = multierr.Append(err, cerr)
	}

	<-c.done

	c.log.Info("Closed")
	c.observers.emitClose()

	return err
}

// fail moves the connection to Closed because of err. Only the first failure
// is recorded and reported. Whoever moves the state to Closed closes
// c.closing.
func (c *Conn) fail(err error) {
	c.mu.Lock()

	if c.state == Closed {
		c.mu.Unlock()
		return
	}

	conn := c.conn
	c.state = Closed
	c.err = err
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.log.Warn("Connection failed", zap.Error(err))

	c.observers.emitError(err)
	c.observers.emitClose()

	// Observers run before the pending command is released
	close(c.closing)
}

func (c *Conn) transition(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != from {
		return false
	}

	c.state = to
	return true
}

func (c *Conn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err == nil {
		return ErrNotConnected
	}

	return c.err
}

func (c *Conn) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, c.opts.Timeout, err)
	}

	return err
}

// redact hides the password word of a login sentence.
func redact(words []string) []string {
	out := make([]string, len(words))

	for i, w := range words {
		if strings.HasPrefix(w, "=password=") {
			w = "=password=***"
		}
		out[i] = w
	}

	return out
}
