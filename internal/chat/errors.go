package chat

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// ErrorKind tells whether a connection failure warrants a reconnect.
type ErrorKind int

// Error kinds.
const (
	Fatal ErrorKind = iota
	Recoverable
)

func (k ErrorKind) String() string {
	if k == Recoverable {
		return "recoverable"
	}
	return "fatal"
}

var (
	// ErrCommandQueueFull is returned by Send when the inbound command channel
	// has no free slot.
	ErrCommandQueueFull = errors.New("chat command queue full")

	// ErrRetriesExhausted is wrapped in the fatal error returned after too many
	// consecutive failed reconnect attempts.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// ConnectionError is returned by Connection.Run when the connection ends.
type ConnectionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("chat connection (%s): %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// recoverable lists the transport failures that are retried. Anything not
// matched here is fatal.
var recoverable = []func(error) bool{
	func(err error) bool { return err == nil },
	func(err error) bool { return errors.Is(err, io.EOF) },
	func(err error) bool { return errors.Is(err, io.ErrUnexpectedEOF) },
	func(err error) bool { return errors.Is(err, net.ErrClosed) },
	func(err error) bool { return errors.Is(err, twitch.ErrConnectionIsNotOpen) },
	func(err error) bool { return errors.Is(err, syscall.ECONNRESET) },
	func(err error) bool { return errors.Is(err, syscall.ECONNREFUSED) },
	func(err error) bool { return errors.Is(err, syscall.ECONNABORTED) },
	func(err error) bool { return errors.Is(err, syscall.EPIPE) },
	func(err error) bool {
		var ne net.Error
		return errors.As(err, &ne) && ne.Timeout()
	},
	func(err error) bool {
		var oe *net.OpError
		return errors.As(err, &oe)
	},
	func(err error) bool {
		var de *net.DNSError
		return errors.As(err, &de)
	},
	func(err error) bool {
		var re tls.RecordHeaderError
		return errors.As(err, &re)
	},
	func(err error) bool {
		var ae tls.AlertError
		return errors.As(err, &ae)
	},
	func(err error) bool {
		var ce *tls.CertificateVerificationError
		return errors.As(err, &ce)
	},
	func(err error) bool {
		var ue x509.UnknownAuthorityError
		return errors.As(err, &ue)
	},
}

// Classify maps a session failure to Recoverable or Fatal. A nil error means
// the server closed the session cleanly and is recoverable.
func Classify(err error) ErrorKind {
	if errors.Is(err, twitch.ErrLoginAuthenticationFailed) || errors.Is(err, twitch.ErrClientDisconnected) {
		return Fatal
	}
	for _, match := range recoverable {
		if match(err) {
			return Recoverable
		}
	}
	return Fatal
}
