package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

const inbox = "INBOX"

// IMAPDialer opens IMAP/IMAPS sessions on the INBOX folder.
type IMAPDialer struct {
	opt    Options
	logger *slog.Logger
}

// NewIMAP creates an IMAP dialer.
func NewIMAP(opt Options, logger *slog.Logger) *IMAPDialer {
	return &IMAPDialer{opt: opt, logger: logger}
}

func (d *IMAPDialer) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(d.opt.Host, strconv.Itoa(d.opt.Port))

	var client *imapclient.Client
	var err error

	if d.opt.UseTLS {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: &tls.Config{
				ServerName:         d.opt.Host,
				InsecureSkipVerify: d.opt.TrustAll,
			},
		})
	} else {
		client, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("imap connect %s: %w", addr, err)
	}

	if err := client.Login(d.opt.Username, d.opt.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imap login %s: %w", d.opt.Username, err)
	}

	if _, err := client.Select(inbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		client.Close()
		return nil, fmt.Errorf("imap select %s: %w", inbox, err)
	}

	return &imapSession{client: client, logger: d.logger}, nil
}

type imapSession struct {
	client  *imapclient.Client
	logger  *slog.Logger
	deleted []imap.UID
}

func (s *imapSession) List() ([]Ref, error) {
	// Messages already flagged \Deleted are on their way out.
	data, err := s.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagDeleted},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := data.AllUIDs()
	refs := make([]Ref, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, Ref{Num: int(uid), UID: strconv.FormatUint(uint64(uid), 10)})
	}
	return refs, nil
}

func (s *imapSession) Retrieve(ref Ref) ([]byte, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	buffers, err := s.client.Fetch(imap.UIDSetNum(imap.UID(ref.Num)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch %s: %w", ref, err)
	}
	if len(buffers) == 0 {
		return nil, fmt.Errorf("imap fetch %s: message not found", ref)
	}

	content := buffers[0].FindBodySection(section)
	if content == nil {
		return nil, fmt.Errorf("imap fetch %s: empty body", ref)
	}
	return content, nil
}

func (s *imapSession) MarkRead(ref Ref) error {
	if err := s.addFlag(ref, imap.FlagSeen); err != nil {
		return fmt.Errorf("imap mark read %s: %w", ref, err)
	}
	return nil
}

func (s *imapSession) Delete(ref Ref) error {
	if err := s.addFlag(ref, imap.FlagDeleted); err != nil {
		return fmt.Errorf("imap delete %s: %w", ref, err)
	}
	s.deleted = append(s.deleted, imap.UID(ref.Num))
	return nil
}

func (s *imapSession) addFlag(ref Ref, flag imap.Flag) error {
	return s.client.Store(imap.UIDSetNum(imap.UID(ref.Num)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{flag},
	}, nil).Close()
}

// Close expunges the messages this session deleted, logs out and drops
// the connection. Without UIDPLUS they stay flagged \Deleted.
func (s *imapSession) Close() error {
	var errs []error
	if len(s.deleted) > 0 {
		if s.client.Caps().Has(imap.CapUIDPlus) {
			if err := s.client.UIDExpunge(imap.UIDSetNum(s.deleted...)).Close(); err != nil {
				errs = append(errs, fmt.Errorf("imap expunge: %w", err))
			}
		} else {
			s.logger.Warn("server lacks UIDPLUS, deleted messages left flagged until expunged elsewhere",
				"count", len(s.deleted))
		}
	}
	if err := s.client.Logout().Wait(); err != nil {
		errs = append(errs, fmt.Errorf("imap logout: %w", err))
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debug("imap close", "error", err)
	}
	return errors.Join(errs...)
}
