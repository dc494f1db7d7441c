// Package importer implements the mail importer: it polls a mailbox, keeps
// the messages whose sender is whitelisted and hands them to the sink as
// normalized records.
package importer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tracyhatemice/mailimport/internal/archive"
	"github.com/tracyhatemice/mailimport/internal/host"
	"github.com/tracyhatemice/mailimport/internal/mailbox"
	"github.com/tracyhatemice/mailimport/internal/sink"
	"github.com/tracyhatemice/mailimport/internal/whitelist"
)

const (
	Kind      = "MAIL"
	ConfigKey = "IMPORT_MAIL"
	Version   = 1
)

// Descriptor registers the mail importer with a host registry.
var Descriptor = host.Descriptor{Kind: Kind, ConfigKey: ConfigKey, Version: Version}

// Importer is one configured mail importer instance.
type Importer struct {
	name      string
	print     string
	settings  Settings
	whitelist *whitelist.Store
	dialer    mailbox.Dialer
	sink      sink.Sink
	archive   *archive.Mbox
	logger    *slog.Logger
	now       func() time.Time
	disabled  bool
}

// Option customizes an Importer.
type Option func(*Importer)

// WithDialer replaces the mailbox dialer derived from the settings.
func WithDialer(d mailbox.Dialer) Option {
	return func(i *Importer) { i.dialer = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// Factory adapts New to host.Factory.
func Factory(inst host.Instance, deps host.Deps) (host.Importer, error) {
	return New(inst, deps)
}

// New builds an importer from its instance properties. Configuration
// problems are logged, not returned; an importer without any whitelisted
// sender is created disabled and reported dirty.
func New(inst host.Instance, deps host.Deps, opts ...Option) (*Importer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("mail importer %s: no sink", inst.Name)
	}

	i := &Importer{
		name:   inst.Name,
		print:  inst.Print,
		sink:   deps.Sink,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.settings = ResolveSettings(inst.Properties, deps.ImportDir, logger)
	i.resolvePassword(deps.Secrets)
	i.whitelist = loadWhitelist(i.settings, logger)

	if i.dialer == nil {
		d, err := newDialer(i.settings, inst.Name, deps.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("mail importer %s: %w", inst.Name, err)
		}
		i.dialer = d
	}

	if i.settings.ArchivePath != "" {
		a, err := archive.OpenMbox(i.settings.ArchivePath)
		if err != nil {
			logger.Warn("archive disabled", "path", i.settings.ArchivePath, "error", err)
		} else {
			i.archive = a
		}
	}

	i.checkWhitelist(deps.Dirty)
	return i, nil
}

func (i *Importer) Name() string { return i.name }

// Settings returns the resolved configuration.
func (i *Importer) Settings() Settings { return i.settings }

// Whitelist returns the accepted-sender store.
func (i *Importer) Whitelist() *whitelist.Store { return i.whitelist }

// Disabled reports whether the importer refused to run for lack of
// accepted senders.
func (i *Importer) Disabled() bool { return i.disabled }

// ResetState does nothing: no state survives between cycles.
func (i *Importer) ResetState() {}

// TryRecover does nothing: there is no recovery checkpoint.
func (i *Importer) TryRecover() {}

// Close releases the archive file, if any.
func (i *Importer) Close() error {
	if i.archive == nil {
		return nil
	}
	a := i.archive
	i.archive = nil
	return a.Close()
}

func (i *Importer) resolvePassword(secrets host.Secrets) {
	if i.settings.Password != "" || i.settings.PasswordKey == "" {
		return
	}
	if secrets == nil {
		i.logger.Warn("password keyring key set but no keyring available", "key", KeyPasswordKeyring)
		return
	}
	pass, err := secrets.Get(i.settings.PasswordKey)
	if err != nil {
		i.logger.Warn("cannot read password from keyring", "key", i.settings.PasswordKey, "error", err)
		return
	}
	i.settings.Password = pass
}

// loadWhitelist reads the whitelist file, falling back to the single
// mail_read_from address when the file yields nothing.
func loadWhitelist(s Settings, logger *slog.Logger) *whitelist.Store {
	store := whitelist.New(nil)
	if s.WhitelistPath != "" {
		store = whitelist.Load(s.WhitelistFormat, s.WhitelistPath, logger)
	}
	if store.Len() == 0 && s.FallbackFrom != "" {
		store = whitelist.Single(s.FallbackFrom)
	}
	return store
}

func newDialer(s Settings, name, dataDir string, logger *slog.Logger) (mailbox.Dialer, error) {
	opt := s.MailboxOptions()
	if s.Protocol == mailbox.ProtocolIMAP {
		return mailbox.NewIMAP(opt, logger), nil
	}

	var marks *mailbox.ReadMarks
	if s.PostAction == PostActionMark && dataDir != "" {
		var err error
		marks, err = mailbox.OpenReadMarks(filepath.Join(dataDir, "readmarks", sanitize(name)+".read"))
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded read marks", "count", marks.Count())
	}
	return mailbox.NewPOP3(opt, marks, logger), nil
}

func sanitize(name string) string {
	if name == "" {
		return "default"
	}
	out := make([]byte, 0, len(name))
	for _, b := range []byte(name) {
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_' {
			out = append(out, b)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
