package client

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHost    = "192.168.88.1"
	DefaultPort    = 8728
	DefaultTLSPort = 8729
	DefaultTimeout = 10 * time.Second
)

// DialFunc opens the byte stream to the device. It matches
// (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type Options struct {
	// Host of the device
	Host string

	// Port of the API service. Zero picks 8728, or 8729 when TLS is set.
	Port int

	Username string
	Password string

	// Timeout bounds Connect, including the login handshake. It also bounds
	// how long Close waits for the device to hang up. Commands have no timeout
	// of their own, use the context passed to Send.
	Timeout time.Duration

	// TLS connects to the api-ssl service. Certificates are not verified as
	// devices ship with self-signed ones.
	TLS bool

	// Debug logs every sentence sent and received.
	Debug bool

	// MaxBuffer bounds the bytes buffered while waiting for the rest of a word.
	MaxBuffer int

	// Dial replaces the default TCP or TLS dialer.
	Dial DialFunc

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}

	if o.Port == 0 {
		o.Port = DefaultPort
		if o.TLS {
			o.Port = DefaultTLSPort
		}
	}

	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}

// Addr returns the host:port the connection dials.
func (o Options) Addr() string {
	o = o.withDefaults()
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}
