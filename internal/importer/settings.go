package importer

import (
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tracyhatemice/mailimport/internal/mailbox"
	"github.com/tracyhatemice/mailimport/internal/whitelist"
)

// Property keys understood by the mail importer.
const (
	KeyAddress         = "mail_pop3_address"
	KeyLogin           = "mail_pop3_login"
	KeyPassword        = "mail_pop3_pass"
	KeyPasswordKeyring = "mail_pop3_pass_keyring"
	KeySecurity        = "mail_pop3_security"
	KeyTrustAll        = "mail_pop3_trust_all"
	KeyProtocol        = "mail_protocol"
	KeyDialTimeout     = "mail_dial_timeout"
	KeyPostAction      = "mail_post_action"
	KeyWhitelistFormat = "mail_read_whitelist_format"
	KeyWhitelist       = "mail_read_whitelist"
	KeyReadFrom        = "mail_read_from"
	KeyFallbackDir     = "mail_read_fallback_dir"
	KeyReadFormat      = "mail_read_format"
	KeySendReport      = "mail_send_report"
	KeyArchive         = "mail_archive"
	KeyAuditLog        = "opt_log"
)

// Security is the transport security mode.
type Security string

const (
	SecurityNone Security = "NONE"
	SecuritySSL  Security = "SSL"
)

// PostAction is applied to a source message once its record was emitted.
type PostAction string

const (
	PostActionMark   PostAction = "MARK"
	PostActionDelete PostAction = "DELETE"
)

const defaultDialTimeout = 30 * time.Second

// Settings is the resolved, immutable configuration of one importer.
type Settings struct {
	Protocol        mailbox.Protocol
	Security        Security
	PostAction      PostAction
	WhitelistFormat whitelist.Format

	Host        string
	Port        int
	Login       string
	Password    string
	PasswordKey string
	DialTimeout time.Duration

	WhitelistPath string
	FallbackFrom  string
	FallbackDir   string
	ArchivePath   string

	TrustAll   bool
	ReadFormat bool
	SendReport bool
	AuditLog   bool
}

// ResolveSettings reads importer properties. Bad values never fail the
// whole resolution: each one is logged and its default kept.
func ResolveSettings(props map[string]string, importDir string, logger *slog.Logger) Settings {
	s := Settings{
		Login:         props[KeyLogin],
		Password:      props[KeyPassword],
		PasswordKey:   props[KeyPasswordKeyring],
		FallbackFrom:  props[KeyReadFrom],
		FallbackDir:   props[KeyFallbackDir],
		TrustAll:      truthy(props[KeyTrustAll]),
		ReadFormat:    truthy(props[KeyReadFormat]),
		AuditLog:      truthy(props[KeyAuditLog]),
		DialTimeout:   defaultDialTimeout,
		WhitelistPath: resolvePath(importDir, props[KeyWhitelist]),
		ArchivePath:   resolvePath(importDir, props[KeyArchive]),
	}

	s.Protocol = resolveEnum(props, KeyProtocol, mailbox.ProtocolPOP3,
		[]mailbox.Protocol{mailbox.ProtocolPOP3, mailbox.ProtocolIMAP}, logger)
	s.Security = resolveEnum(props, KeySecurity, SecurityNone,
		[]Security{SecurityNone, SecuritySSL}, logger)
	s.PostAction = resolveEnum(props, KeyPostAction, PostActionMark,
		[]PostAction{PostActionMark, PostActionDelete}, logger)
	s.WhitelistFormat = resolveEnum(props, KeyWhitelistFormat, whitelist.FormatNormal,
		[]whitelist.Format{whitelist.FormatNormal, whitelist.FormatExtended}, logger)

	// Replies need the sender details only the extended read path provides.
	if truthy(props[KeySendReport]) && s.ReadFormat {
		s.SendReport = true
		logger.Warn("acknowledgement replies are not sent by this importer", "key", KeySendReport)
	}

	s.Host, s.Port = resolveAddress(props[KeyAddress], s.Protocol, s.Security, logger)

	if v, ok := props[KeyDialTimeout]; ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			logger.Warn("cannot set parameter", "key", KeyDialTimeout, "value", v)
		} else {
			s.DialTimeout = time.Duration(secs) * time.Second
		}
	}

	if s.FallbackDir == "" {
		logger.Warn("no fallback directory set, messages without whitelist directories will have none",
			"key", KeyFallbackDir)
	}
	if s.TrustAll {
		logger.Warn("certificate verification disabled", "key", KeyTrustAll)
	}

	return s
}

// UseTLS reports whether the connection is encrypted.
func (s Settings) UseTLS() bool {
	return s.Security == SecuritySSL
}

// MailboxOptions converts the settings into transport options.
func (s Settings) MailboxOptions() mailbox.Options {
	return mailbox.Options{
		Host:        s.Host,
		Port:        s.Port,
		Username:    s.Login,
		Password:    s.Password,
		UseTLS:      s.UseTLS(),
		TrustAll:    s.TrustAll,
		DialTimeout: s.DialTimeout,
	}
}

func resolveEnum[T ~string](props map[string]string, key string, def T, valid []T, logger *slog.Logger) T {
	v, ok := props[key]
	if !ok {
		return def
	}
	for _, candidate := range valid {
		if T(v) == candidate {
			return candidate
		}
	}
	logger.Warn("cannot set parameter", "key", key, "value", v, "default", def)
	return def
}

func resolveAddress(addr string, proto mailbox.Protocol, sec Security, logger *slog.Logger) (string, int) {
	port := defaultPort(proto, sec)
	if addr == "" {
		return "", port
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port given.
		return addr, port
	}
	p, err := strconv.Atoi(portStr)
	if err != nil || p <= 0 || p > 65535 {
		logger.Warn("cannot set parameter", "key", KeyAddress, "value", addr, "default_port", port)
		return host, port
	}
	return host, p
}

func defaultPort(proto mailbox.Protocol, sec Security) int {
	switch {
	case proto == mailbox.ProtocolIMAP && sec == SecuritySSL:
		return 993
	case proto == mailbox.ProtocolIMAP:
		return 143
	case sec == SecuritySSL:
		return 995
	default:
		return 110
	}
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func truthy(v string) bool {
	return v == "1"
}
