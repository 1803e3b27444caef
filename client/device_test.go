package client_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	. "github.com/onsi/ginkgo"

	"github.com/luma/rosapi/client"
	"github.com/luma/rosapi/protocol"
)

// device is the far end of a net.Pipe, scripted by each test.
type device struct {
	conn net.Conn
	dec  *protocol.Decoder
}

func (d *device) read() protocol.Sentence {
	buf := make([]byte, 512)

	for {
		s, err := d.dec.Next()
		if err == nil {
			return s
		}

		if !errors.Is(err, protocol.ErrNeedMore) {
			return nil
		}

		n, err := d.conn.Read(buf)
		if err != nil {
			return nil
		}

		d.dec.Write(buf[:n])
	}
}

func (d *device) write(sentences ...[]string) {
	var out []byte
	for _, s := range sentences {
		out = append(out, protocol.EncodeSentence(s...)...)
	}

	d.conn.Write(out)
}

func (d *device) acceptLogin() protocol.Sentence {
	d.read()
	d.write([]string{"!done"})

	creds := d.read()
	d.write([]string{"!done"})

	return creds
}

func (d *device) drain() {
	for d.read() != nil {
	}
}

// countingConn counts the writes made by the client.
type countingConn struct {
	net.Conn
	writes *int32
}

func (c countingConn) Write(b []byte) (int, error) {
	atomic.AddInt32(c.writes, 1)
	return c.Conn.Write(b)
}

// stallingConn holds the write numbered at until release is closed.
type stallingConn struct {
	net.Conn
	n       int32
	at      int32
	writing chan struct{}
	release chan struct{}
}

func (c *stallingConn) Write(b []byte) (int, error) {
	if atomic.AddInt32(&c.n, 1) == c.at {
		close(c.writing)
		<-c.release
	}

	return c.Conn.Write(b)
}

func pipeDialer(writes *int32, script func(d *device)) client.DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		clientSide, deviceSide := net.Pipe()

		go func() {
			defer GinkgoRecover()
			defer deviceSide.Close()

			script(&device{conn: deviceSide, dec: protocol.NewDecoder(0)})
		}()

		return countingConn{Conn: clientSide, writes: writes}, nil
	}
}
