// Package mailbox opens sessions against a remote mailbox and exposes the
// few operations an import run needs.
package mailbox

import (
	"context"
	"fmt"
	"time"
)

// Protocol names the mailbox access protocol.
type Protocol string

const (
	ProtocolPOP3 Protocol = "POP3"
	ProtocolIMAP Protocol = "IMAP"
)

// Options carries everything needed to reach and log into a mailbox.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	// TrustAll disables certificate verification. This is unsafe and only
	// meant for servers with self-signed certificates.
	TrustAll    bool
	DialTimeout time.Duration
}

// Ref identifies one message inside an open session.
type Ref struct {
	Num int    // POP3 message number, IMAP UID
	UID string // server-assigned unique ID, empty if unsupported
}

func (r Ref) String() string {
	if r.UID != "" {
		return r.UID
	}
	return fmt.Sprintf("#%d", r.Num)
}

// Session is one open connection to the inbox. The message list is a
// snapshot taken when List is called.
type Session interface {
	// List returns every message currently in the inbox.
	List() ([]Ref, error)

	// Retrieve returns the raw RFC 5322 bytes without marking the message read.
	Retrieve(ref Ref) ([]byte, error)

	// MarkRead flags the message as read, leaving it on the server.
	MarkRead(ref Ref) error

	// Delete removes the message. Removal may be deferred until Close.
	Delete(ref Ref) error

	// Close ends the session and commits pending deletions.
	Close() error
}

// Dialer opens mailbox sessions.
type Dialer interface {
	Open(ctx context.Context) (Session, error)
}
