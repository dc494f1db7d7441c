package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	pop3client "github.com/knadh/go-pop3"
)

// POP3Dialer opens POP3/POP3S sessions.
type POP3Dialer struct {
	opt    Options
	marks  *ReadMarks
	logger *slog.Logger
}

// NewPOP3 creates a POP3 dialer. POP3 has no read flag, so marks records
// which messages were marked read; it may be nil.
func NewPOP3(opt Options, marks *ReadMarks, logger *slog.Logger) *POP3Dialer {
	return &POP3Dialer{opt: opt, marks: marks, logger: logger}
}

func (d *POP3Dialer) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(d.opt.Host, strconv.Itoa(d.opt.Port))
	client := pop3client.New(pop3client.Opt{
		Host:          d.opt.Host,
		Port:          d.opt.Port,
		DialTimeout:   d.opt.DialTimeout,
		TLSEnabled:    d.opt.UseTLS,
		TLSSkipVerify: d.opt.TrustAll,
	})

	conn, err := client.NewConn()
	if err != nil {
		return nil, fmt.Errorf("pop3 connect %s: %w", addr, err)
	}

	if err := conn.Auth(d.opt.Username, d.opt.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("pop3 auth %s: %w", d.opt.Username, err)
	}

	return &pop3Session{conn: conn, marks: d.marks, logger: d.logger}, nil
}

type pop3Session struct {
	conn   *pop3client.Conn
	marks  *ReadMarks
	logger *slog.Logger
}

func (s *pop3Session) List() ([]Ref, error) {
	msgs, err := s.conn.Uidl(0)
	if err != nil {
		s.logger.Debug("pop3 UIDL unsupported, falling back to LIST", "error", err)
		msgs, err = s.conn.List(0)
		if err != nil {
			return nil, fmt.Errorf("pop3 list: %w", err)
		}
	}

	refs := make([]Ref, 0, len(msgs))
	for _, m := range msgs {
		refs = append(refs, Ref{Num: m.ID, UID: m.UID})
	}
	return refs, nil
}

func (s *pop3Session) Retrieve(ref Ref) ([]byte, error) {
	buf, err := s.conn.RetrRaw(ref.Num)
	if err != nil {
		return nil, fmt.Errorf("pop3 retrieve %s: %w", ref, err)
	}
	return buf.Bytes(), nil
}

func (s *pop3Session) MarkRead(ref Ref) error {
	if s.marks == nil {
		return nil
	}
	if ref.UID == "" {
		// Message numbers are not stable across sessions.
		s.logger.Debug("pop3 message has no UID, read mark not recorded", "ref", ref)
		return nil
	}
	if at, ok := s.marks.MarkedAt(ref.UID); ok {
		s.logger.Debug("message was already marked read, imported again", "ref", ref, "marked_at", at)
		return nil
	}
	return s.marks.Mark(ref.UID)
}

func (s *pop3Session) Delete(ref Ref) error {
	if err := s.conn.Dele(ref.Num); err != nil {
		return fmt.Errorf("pop3 delete %s: %w", ref, err)
	}
	return nil
}

// Close issues QUIT, which is when the server applies DELE commands.
func (s *pop3Session) Close() error {
	if err := s.conn.Quit(); err != nil {
		return fmt.Errorf("pop3 quit: %w", err)
	}
	return nil
}
