package transport

import (
	"github.com/luma/rosapi/storage"
	"go.uber.org/zap"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on. Zero picks a free port, see TCP.Addrs.
	Port int

	// Reuseport controls setting SO_REUSEPORT so that several listeners can
	// share the port.
	Reuseport bool

	// Trace logs every sentence received and sent. This is only useful in
	// local debugging
	Trace bool

	NumListeners int

	// Username and Password accepted by /login
	Username string
	Password string

	Store storage.Store

	Log *zap.Logger
}
