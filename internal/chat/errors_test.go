package chat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/google/go-cmp/cmp"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "clean close", err: nil, want: Recoverable},
		{name: "eof", err: io.EOF, want: Recoverable},
		{name: "wrapped eof", err: fmt.Errorf("read: %w", io.EOF), want: Recoverable},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: Recoverable},
		{name: "closed connection", err: net.ErrClosed, want: Recoverable},
		{name: "timeout", err: timeoutError{}, want: Recoverable},
		{name: "deadline exceeded", err: os.ErrDeadlineExceeded, want: Recoverable},
		{name: "connection reset", err: &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, want: Recoverable},
		{name: "broken pipe", err: syscall.EPIPE, want: Recoverable},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "irc.chat.twitch.tv"}, want: Recoverable},
		{name: "tls record header", err: tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, want: Recoverable},
		{name: "tls alert", err: tls.AlertError(40), want: Recoverable},
		{name: "session not open", err: twitch.ErrConnectionIsNotOpen, want: Recoverable},
		{name: "login rejected", err: twitch.ErrLoginAuthenticationFailed, want: Fatal},
		{name: "client disconnected", err: twitch.ErrClientDisconnected, want: Fatal},
		{name: "protocol violation", err: errors.New("unexpected command"), want: Fatal},
		{name: "context canceled", err: context.Canceled, want: Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify(%v) mismatch (-want +got):\n%s", tt.err, diff)
			}
		})
	}
}

func TestConnectionErrorUnwrap(t *testing.T) {
	err := &ConnectionError{Kind: Fatal, Err: fmt.Errorf("%w: %w", ErrRetriesExhausted, io.EOF)}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Error("expected ErrRetriesExhausted in chain")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("expected io.EOF in chain")
	}
	if diff := cmp.Diff("chat connection (fatal): reconnect attempts exhausted: EOF", err.Error()); diff != "" {
		t.Errorf("Error() mismatch (-want +got):\n%s", diff)
	}
}
